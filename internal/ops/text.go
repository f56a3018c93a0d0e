package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cutagent/internal/edl"
)

var positionExprs = map[string][2]string{
	edl.PositionCenter:       {"(w-text_w)/2", "(h-text_h)/2"},
	edl.PositionTopCenter:    {"(w-text_w)/2", "20"},
	edl.PositionBottomCenter: {"(w-text_w)/2", "h-text_h-20"},
	edl.PositionTopLeft:      {"20", "20"},
	edl.PositionTopRight:     {"w-text_w-20", "20"},
	edl.PositionBottomLeft:   {"20", "h-text_h-20"},
	edl.PositionBottomRight:  {"w-text_w-20", "h-text_h-20"},
}

// PositionExprs converts a preset or "x,y" position into drawtext x/y expressions.
func PositionExprs(position string) (string, string, bool) {
	if xy, ok := positionExprs[position]; ok {
		return xy[0], xy[1], true
	}
	return edl.CustomPosition(position)
}

var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `'\\\''`,
	`:`, `\:`,
	`;`, `\;`,
)

// EscapeDrawtext escapes a value for a quoted drawtext text= option.
func EscapeDrawtext(text string) string {
	return drawtextEscaper.Replace(text)
}

// TextRequest burns Entries onto Source.
type TextRequest struct {
	Source  string
	Entries []edl.TextEntry
	Output  string
	Codec   string
}

// Text renders every entry as a chained drawtext filter.
func Text(ctx context.Context, tools Tools, req TextRequest) (Result, error) {
	if err := CheckTextEntries(req.Entries); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	args, err := TextArgs(req.Source, req.Entries, req.Output, EncodeCodec(req.Codec))
	if err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, args); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// TextArgs builds the drawtext invocation for entries.
func TextArgs(source string, entries []edl.TextEntry, output, codec string) ([]string, error) {
	filters := make([]string, 0, len(entries))
	for i, entry := range entries {
		f, err := DrawtextFilter(i, entry)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return []string{"-i", source, "-vf", strings.Join(filters, ","), "-c:v", codec, "-c:a", "aac", output}, nil
}

// DrawtextFilter renders one entry. Timing is only emitted when the entry
// sets start or end.
func DrawtextFilter(index int, entry edl.TextEntry) (string, error) {
	if err := CheckTextEntry(index, entry); err != nil {
		return "", err
	}
	x, y, _ := PositionExprs(entry.Position)
	parts := []string{
		fmt.Sprintf("text='%s'", EscapeDrawtext(entry.Text)),
		"fontsize=" + strconv.Itoa(entry.FontSize),
		"fontcolor=" + entry.FontColor,
		"x=" + x,
		"y=" + y,
	}
	parts = append(parts, textStyle(entry.Font, entry.BGColor, entry.BGPadding,
		entry.ShadowColor, entry.ShadowOffset, entry.StrokeColor, entry.StrokeWidth)...)
	if entry.Start != "" || entry.End != "" {
		start, end, err := TextWindow(entry)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("enable='between(t,%s,%s)'", num(start), num(end)))
	}
	return "drawtext=" + strings.Join(parts, ":"), nil
}

// textStyle renders the optional font, box, shadow and outline options shared
// by text entries and animated text layers.
func textStyle(font, bgColor string, bgPadding int, shadowColor string, shadowOffset int, strokeColor string, strokeWidth int) []string {
	var parts []string
	if font != "" {
		parts = append(parts, fmt.Sprintf("font='%s'", font))
	}
	if bgColor != "" {
		parts = append(parts, "box=1", "boxcolor="+bgColor, "boxborderw="+strconv.Itoa(bgPadding))
	}
	if shadowColor != "" {
		off := strconv.Itoa(shadowOffset)
		parts = append(parts, "shadowcolor="+shadowColor, "shadowx="+off, "shadowy="+off)
	}
	if strokeColor != "" {
		parts = append(parts, "bordercolor="+strokeColor, "borderw="+strconv.Itoa(strokeWidth))
	}
	return parts
}
