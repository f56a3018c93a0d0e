package ops

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cutagent/internal/animation"
	"cutagent/internal/edl"
	"cutagent/internal/services"
)

// AnimateRequest composites Layers onto Source. Image layer paths must
// already be resolved to files.
type AnimateRequest struct {
	Source string
	Layers []edl.Layer
	FPS    int
	Output string
	Codec  string
}

// Animate renders text layers as one drawtext chain, then overlays each
// image layer in order.
func Animate(ctx context.Context, tools Tools, req AnimateRequest) (Result, error) {
	if err := CheckLayers(req.Layers); err != nil {
		return Result{}, err
	}
	info, err := tools.Probe(ctx, req.Source)
	if err != nil {
		return Result{}, err
	}
	args, err := AnimateArgs(req.Source, req.Layers, req.FPS, req.Output, EncodeCodec(req.Codec))
	if err != nil {
		return Result{}, err
	}
	if err := tools.Encode(ctx, args); err != nil {
		return Result{}, err
	}
	return Result{Success: true, OutputPath: req.Output, Duration: DurationOf(info.Duration)}, nil
}

// PropertyNames returns the animated property names of a layer, sorted.
func PropertyNames(layer edl.Layer) []string {
	names := make([]string, 0, len(layer.Properties))
	for name := range layer.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var animateEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `'\\\''`,
	`:`, `\:`,
	`;`, `\;`,
	`%`, `%%`,
)

// AnimateArgs builds the filter_complex invocation for layers.
func AnimateArgs(source string, layers []edl.Layer, fps int, output, codec string) ([]string, error) {
	args := []string{"-i", source}
	var texts, images []edl.Layer
	for _, layer := range layers {
		switch layer.Type {
		case edl.LayerText:
			texts = append(texts, layer)
		case edl.LayerImage:
			images = append(images, layer)
			args = append(args, "-i", layer.Path)
		}
	}

	var graph []string
	current := "0:v"
	if len(texts) > 0 {
		chain := make([]string, 0, len(texts))
		for _, layer := range texts {
			f, err := animatedDrawtext(layer)
			if err != nil {
				return nil, err
			}
			chain = append(chain, f)
		}
		graph = append(graph, fmt.Sprintf("[0:v]%s[textout]", strings.Join(chain, ",")))
		current = "textout"
	}

	for i, layer := range images {
		input := i + 1
		imgLabel := fmt.Sprintf("img%d", input)
		graph = append(graph, fmt.Sprintf("[%d:v]format=rgba%s[%s]", input, imageAdjustments(layer), imgLabel))

		overlay, err := overlayParams(layer)
		if err != nil {
			return nil, err
		}
		out := fmt.Sprintf("ovr%d", i)
		graph = append(graph, fmt.Sprintf("[%s][%s]overlay=%s[%s]", current, imgLabel, overlay, out))
		current = out
	}

	if len(graph) == 0 {
		return nil, services.New(services.CodeEmptyAnimationLayers,
			"No renderable animation layers after processing", nil).
			WithRecovery("Check that layers have valid type and properties")
	}

	args = append(args,
		"-filter_complex", strings.Join(graph, ";"),
		"-map", "["+current+"]",
		"-map", "0:a?",
		"-c:v", codec,
		"-c:a", "aac",
	)
	if fps > 0 {
		args = append(args, "-r", strconv.Itoa(fps))
	}
	return append(args, output), nil
}

func propertyExpr(layer edl.Layer, name string) (string, bool, error) {
	prop, ok := layer.Properties[name]
	if !ok {
		return "", false, nil
	}
	expr, err := animation.Interpolate("t", prop.Keyframes, prop.Easing)
	if err != nil {
		return "", true, services.New(services.CodeInvalidAnimationEasing, err.Error(),
			map[string]any{"property": name, "easing": prop.Easing}).WithCause(err)
	}
	return expr, true, nil
}

func animatedDrawtext(layer edl.Layer) (string, error) {
	parts := []string{fmt.Sprintf("text='%s'", animateEscaper.Replace(layer.Text))}

	for _, axis := range []struct{ name, fallback string }{
		{"x", "(w-text_w)/2"},
		{"y", "(h-text_h)/2"},
	} {
		expr, ok, err := propertyExpr(layer, axis.name)
		if err != nil {
			return "", err
		}
		if !ok {
			expr = axis.fallback
		}
		parts = append(parts, fmt.Sprintf("%s='%s'", axis.name, expr))
	}

	size, ok, err := propertyExpr(layer, "font_size")
	if err != nil {
		return "", err
	}
	if ok {
		parts = append(parts, fmt.Sprintf("fontsize='%s'", size))
	} else {
		parts = append(parts, "fontsize="+strconv.Itoa(layer.FontSize))
	}
	parts = append(parts, "fontcolor="+layer.FontColor)
	parts = append(parts, textStyle(layer.Font, layer.BGColor, layer.BGPadding,
		layer.ShadowColor, layer.ShadowOffset, layer.StrokeColor, layer.StrokeWidth)...)

	alpha, ok, err := propertyExpr(layer, "opacity")
	if err != nil {
		return "", err
	}
	if ok {
		parts = append(parts, fmt.Sprintf("alpha='%s'", alpha))
	}
	parts = append(parts, enableBetween(layer))
	return "drawtext=" + strings.Join(parts, ":"), nil
}

// imageAdjustments applies static scale and opacity. Only single-keyframe
// tracks can be baked into the image stream; animated ones are ignored here.
func imageAdjustments(layer edl.Layer) string {
	var out string
	if prop, ok := layer.Properties["scale"]; ok && len(prop.Keyframes) == 1 {
		s := num(prop.Keyframes[0].Value)
		out += fmt.Sprintf(",scale=iw*%s:ih*%s", s, s)
	}
	if prop, ok := layer.Properties["opacity"]; ok && len(prop.Keyframes) == 1 {
		out += ",colorchannelmixer=aa=" + num(prop.Keyframes[0].Value)
	}
	return out
}

func overlayParams(layer edl.Layer) (string, error) {
	var parts []string
	for _, axis := range []struct{ name, fallback string }{
		{"x", "(W-w)/2"},
		{"y", "(H-h)/2"},
	} {
		expr, ok, err := propertyExpr(layer, axis.name)
		if err != nil {
			return "", err
		}
		if !ok {
			expr = axis.fallback
		}
		parts = append(parts, fmt.Sprintf("%s='%s'", axis.name, expr))
	}
	parts = append(parts, enableBetween(layer))
	return strings.Join(parts, ":"), nil
}

func enableBetween(layer edl.Layer) string {
	return fmt.Sprintf("enable='between(t,%s,%s)'", num(layer.Start), num(layer.End))
}
