package ops

import (
	"fmt"
	"strings"

	"cutagent/internal/edl"
	"cutagent/internal/media/ffprobe"
	"cutagent/internal/services"
)

// Parameter bounds.
const (
	MinSpeedFactor = 0.25
	MaxSpeedFactor = 100.0
	MinGainDB      = -60.0
	MaxGainDB      = 60.0
	MinTargetLUFS  = -70.0
	MaxTargetLUFS  = -5.0
	MinTruePeak    = -10.0
	MaxTruePeak    = 0.0

	// TrimTolerance is how far past the source end a trim may reach before
	// it is rejected instead of clamped.
	TrimTolerance = 0.05
	// KeyframeTolerance is the largest cut-to-keyframe distance that
	// stream copy can honour without a warning.
	KeyframeTolerance = 0.1
	// OpenEnd stands in for "until the end" in text timing.
	OpenEnd = 99999.0
)

// CheckTrimRange rejects empty or inverted trims.
func CheckTrimRange(start, end edl.Timecode, startSec, endSec float64) error {
	if startSec >= endSec {
		return services.New(services.CodeTrimStartAfterEnd,
			fmt.Sprintf("Start time (%s) is at or after end time (%s)", start, end),
			map[string]any{"start": string(start), "end": string(end)})
	}
	return nil
}

// ClampTrimEnd applies the boundary tolerance. It returns the usable end and,
// when the end was pulled back onto the source duration, a warning. A start
// that lands at or past the clamped end is rejected.
func ClampTrimEnd(source string, start, end edl.Timecode, startSec, endSec, duration float64) (float64, string, error) {
	if endSec <= duration {
		return endSec, "", nil
	}
	if endSec-duration > TrimTolerance {
		return 0, "", services.New(services.CodeTrimBeyondDuration,
			fmt.Sprintf("End time %s (%.3fs) exceeds duration (%.3fs)", end, endSec, duration),
			map[string]any{"source": source, "duration": duration, "end": string(end)})
	}
	if startSec >= duration {
		return 0, "", services.New(services.CodeTrimBeyondDuration,
			fmt.Sprintf("Start time %s (%.3fs) is at or past the source duration (%.3fs)", start, startSec, duration),
			map[string]any{"source": source, "duration": duration, "start": string(start), "end": string(end)})
	}
	return duration, fmt.Sprintf("End time %s (%.3fs) slightly exceeds duration (%.3fs); clamped to duration",
		end, endSec, duration), nil
}

// CheckSplitPoint rejects points past the end of the source.
func CheckSplitPoint(source string, point, duration float64) error {
	if point > duration {
		return services.New(services.CodeSplitPointBeyondDuration,
			fmt.Sprintf("Split point %.3fs exceeds duration %.3fs", point, duration),
			map[string]any{"source": source, "duration": duration, "point": point}).
			WithRecovery("Remove split points beyond the source duration")
	}
	return nil
}

// CheckSegments rejects an empty segment list.
func CheckSegments(kind edl.Kind, segments []string) error {
	if len(segments) == 0 {
		return services.New(services.CodeInvalidEDL,
			fmt.Sprintf("%s requires at least one segment", kind),
			map[string]any{"operation": string(kind)}).
			WithRecovery("List at least one segment path or reference")
	}
	return nil
}

// CheckTransition validates the crossfade parameters that do not need probing.
func CheckTransition(transition *string, seconds float64, segments int) error {
	if transition == nil {
		return nil
	}
	if *transition != edl.TransitionCrossfade {
		return services.New(services.CodeInvalidTransition,
			fmt.Sprintf("Unsupported transition %q", *transition),
			map[string]any{"transition": *transition, "supported": []string{edl.TransitionCrossfade}}).
			WithRecovery("Use transition 'crossfade' or omit it")
	}
	if err := CheckTransitionDuration(seconds); err != nil {
		return err
	}
	if segments < 2 {
		return services.New(services.CodeInvalidTransition,
			"crossfade transition requires at least two segments",
			map[string]any{"segments_count": segments}).
			WithRecovery("Add another segment or remove the transition")
	}
	return nil
}

// CheckTransitionDuration rejects non-positive crossfade lengths.
func CheckTransitionDuration(seconds float64) error {
	if seconds <= 0 {
		return services.New(services.CodeInvalidTransitionDuration,
			fmt.Sprintf("transition_duration must be > 0, got %s", num(seconds)),
			map[string]any{"transition_duration": seconds}).
			WithRecovery("Use a positive transition_duration such as 0.5")
	}
	return nil
}

// CheckCrossfadeSegment rejects segments too short to fade across.
func CheckCrossfadeSegment(index int, duration, transition float64) error {
	if duration <= transition {
		return services.New(services.CodeInvalidTransitionDuration,
			fmt.Sprintf("Segment %d duration (%.3fs) must be greater than transition_duration (%.3fs)", index, duration, transition),
			map[string]any{"segment_index": index, "duration": duration, "transition_duration": transition}).
			WithRecovery("Shorten transition_duration or use longer segments")
	}
	return nil
}

// CheckReorderIndex rejects indices outside the segment list.
func CheckReorderIndex(idx, count int) error {
	if idx < 0 || idx >= count {
		return services.New(services.CodeReorderIndexOutOfRange,
			fmt.Sprintf("Reorder index %d is out of range (0-%d)", idx, count-1),
			map[string]any{"segments_count": count, "invalid_index": idx}).
			WithRecovery(fmt.Sprintf("Use indices between 0 and %d", count-1))
	}
	return nil
}

// CheckStream accepts "audio" or "video".
func CheckStream(stream string) error {
	if stream != edl.StreamAudio && stream != edl.StreamVideo {
		return services.New(services.CodeInvalidStreamType,
			fmt.Sprintf("Invalid stream type: %q (must be 'audio' or 'video')", stream),
			map[string]any{"stream": stream}).
			WithRecovery("Use stream='audio' or stream='video'")
	}
	return nil
}

// CheckFade validates fade lengths. duration < 0 means unknown and skips the
// length comparison.
func CheckFade(fadeIn, fadeOut, duration float64) error {
	ctx := map[string]any{"fade_in": fadeIn, "fade_out": fadeOut}
	switch {
	case fadeIn < 0 || fadeOut < 0:
		return services.New(services.CodeInvalidFadeDuration, "fade_in and fade_out must be >= 0", ctx).
			WithRecovery("Use non-negative fade durations in seconds")
	case fadeIn == 0 && fadeOut == 0:
		return services.New(services.CodeInvalidFadeDuration, "at least one of fade_in or fade_out must be > 0", ctx).
			WithRecovery("Set fade_in, fade_out, or both")
	case duration >= 0 && fadeIn+fadeOut > duration:
		ctx["duration"] = duration
		return services.New(services.CodeInvalidFadeDuration,
			fmt.Sprintf("fade durations (%.3fs) exceed clip duration (%.3fs)", fadeIn+fadeOut, duration), ctx).
			WithRecovery("Shorten the fades so fade_in + fade_out fits within the clip")
	}
	return nil
}

// CheckSpeedFactor enforces the supported atempo/setpts range.
func CheckSpeedFactor(factor float64) error {
	if factor < MinSpeedFactor || factor > MaxSpeedFactor {
		return services.New(services.CodeInvalidSpeedFactor,
			fmt.Sprintf("factor must be between %s and %s, got %s", num(MinSpeedFactor), num(MaxSpeedFactor), num(factor)),
			map[string]any{"factor": factor})
	}
	return nil
}

// CheckMixLevel enforces 0 <= level <= 1.
func CheckMixLevel(level float64) error {
	if level < 0 || level > 1 {
		return services.New(services.CodeInvalidMixLevel,
			fmt.Sprintf("mix_level must be between 0.0 and 1.0, got %s", num(level)),
			map[string]any{"mix_level": level})
	}
	return nil
}

// CheckGain enforces the gain range.
func CheckGain(gainDB float64) error {
	if gainDB < MinGainDB || gainDB > MaxGainDB {
		return services.New(services.CodeInvalidGainValue,
			fmt.Sprintf("gain_db must be between -60.0 and 60.0, got %s", num(gainDB)),
			map[string]any{"gain_db": gainDB})
	}
	return nil
}

// CheckNormalizeTarget enforces the loudnorm target ranges.
func CheckNormalizeTarget(targetLUFS, truePeak float64) error {
	if targetLUFS < MinTargetLUFS || targetLUFS > MaxTargetLUFS {
		return services.New(services.CodeInvalidNormalizeTarget,
			fmt.Sprintf("target_lufs must be between -70.0 and -5.0, got %s", num(targetLUFS)),
			map[string]any{"target_lufs": targetLUFS})
	}
	if truePeak < MinTruePeak || truePeak > MaxTruePeak {
		return services.New(services.CodeInvalidNormalizeTarget,
			fmt.Sprintf("true_peak_dbtp must be between -10.0 and 0.0, got %s", num(truePeak)),
			map[string]any{"true_peak_dbtp": truePeak})
	}
	return nil
}

// RequireAudio fails when the probed source has no audio stream.
func RequireAudio(source string, info ffprobe.Info) error {
	if !info.HasAudio() {
		return services.New(services.CodeAudioStreamMissing,
			fmt.Sprintf("Source has no audio stream: %s", source),
			map[string]any{"source": source})
	}
	return nil
}

// CheckTextEntries validates every entry of a text operation.
func CheckTextEntries(entries []edl.TextEntry) error {
	if len(entries) == 0 {
		return services.New(services.CodeEmptyTextEntries,
			"No text entries provided; at least one is required", nil).
			WithRecovery("Add at least one entry with a 'text' field")
	}
	for i, entry := range entries {
		if err := CheckTextEntry(i, entry); err != nil {
			return err
		}
	}
	return nil
}

// CheckTextEntry validates font size, position and timing of one entry.
func CheckTextEntry(index int, entry edl.TextEntry) error {
	if entry.FontSize <= 0 {
		return services.New(services.CodeInvalidFontSize,
			fmt.Sprintf("font_size must be > 0, got %d", entry.FontSize),
			map[string]any{"entry_index": index, "font_size": entry.FontSize}).
			WithRecovery("Use a positive font_size such as 48")
	}
	if !edl.ValidPosition(entry.Position) {
		return services.New(services.CodeInvalidTextPosition,
			fmt.Sprintf("Invalid text position: %q", entry.Position),
			map[string]any{"entry_index": index, "position": entry.Position, "valid_presets": edl.PositionPresets()}).
			WithRecovery("Use a preset ("+strings.Join(edl.PositionPresets(), ", ")+") or 'x,y' pixel coordinates")
	}
	if _, _, err := TextWindow(entry); err != nil {
		if coded, ok := services.AsError(err); ok && coded.Context != nil {
			coded.Context["entry_index"] = index
		}
		return err
	}
	return nil
}

// TextWindow returns the display interval of an entry, defaulting to the
// whole clip. It fails on unparsable or inverted timing.
func TextWindow(entry edl.TextEntry) (float64, float64, error) {
	start, end := 0.0, OpenEnd
	var err error
	if entry.Start != "" {
		if start, err = entry.Start.Seconds(); err != nil {
			return 0, 0, err
		}
	}
	if entry.End != "" {
		if end, err = entry.End.Seconds(); err != nil {
			return 0, 0, err
		}
	}
	if start >= end {
		return 0, 0, services.New(services.CodeInvalidTextTiming,
			fmt.Sprintf("Text start (%s) is at or after end (%s)", entry.Start, entry.End),
			map[string]any{"start": string(entry.Start), "end": string(entry.End)}).
			WithRecovery("Make start earlier than end, or omit one of them")
	}
	return start, end, nil
}

// CheckLayers validates every layer of an animate operation.
func CheckLayers(layers []edl.Layer) error {
	if len(layers) == 0 {
		return services.New(services.CodeEmptyAnimationLayers,
			"No animation layers provided; at least one is required", nil).
			WithRecovery("Add at least one layer to the 'layers' list")
	}
	for i, layer := range layers {
		if err := CheckLayer(i, layer); err != nil {
			return err
		}
	}
	return nil
}

// CheckLayer validates type, required content, timing and properties of a layer.
func CheckLayer(index int, layer edl.Layer) error {
	if !edl.ValidLayerType(layer.Type) {
		return services.New(services.CodeInvalidLayerType,
			fmt.Sprintf("Layer %d: invalid type %q", index, layer.Type),
			map[string]any{"layer_index": index, "type": layer.Type}).
			WithRecovery(fmt.Sprintf("Use one of: %s", strings.Join(edl.LayerTypes(), ", ")))
	}
	if layer.Type == edl.LayerText && layer.Text == "" {
		return services.New(services.CodeMissingLayerField,
			fmt.Sprintf("Layer %d: text layer requires a 'text' field", index),
			map[string]any{"layer_index": index, "field": "text"}).
			WithRecovery("Add a 'text' field to the text animation layer")
	}
	if layer.Type == edl.LayerImage && layer.Path == "" {
		return services.New(services.CodeMissingLayerField,
			fmt.Sprintf("Layer %d: image layer requires a 'path' field", index),
			map[string]any{"layer_index": index, "field": "path"}).
			WithRecovery("Add a 'path' field pointing to the image file")
	}
	if layer.Start >= layer.End {
		return services.New(services.CodeInvalidLayerTiming,
			fmt.Sprintf("Layer %d: start (%s) must be before end (%s)", index, num(layer.Start), num(layer.End)),
			map[string]any{"layer_index": index, "start": layer.Start, "end": layer.End}).
			WithRecovery("Make the layer start earlier than its end")
	}
	for _, name := range PropertyNames(layer) {
		prop := layer.Properties[name]
		if !edl.Animatable(layer.Type, name) {
			return services.New(services.CodeInvalidAnimationProperty,
				fmt.Sprintf("Layer %d: property %q is not animatable for %q layers", index, name, layer.Type),
				map[string]any{"layer_index": index, "property": name}).
				WithRecovery(fmt.Sprintf("Animatable properties for %s: %s", layer.Type, strings.Join(edl.AnimatableProperties(layer.Type), ", ")))
		}
		if !edl.ValidEasing(prop.Easing) {
			return services.New(services.CodeInvalidAnimationEasing,
				fmt.Sprintf("Layer %d: unknown easing %q on property %q", index, prop.Easing, name),
				map[string]any{"layer_index": index, "easing": prop.Easing}).
				WithRecovery(fmt.Sprintf("Use one of: %s", strings.Join(edl.Easings(), ", ")))
		}
		if len(prop.Keyframes) == 0 {
			return services.New(services.CodeMissingField,
				fmt.Sprintf("Layer %d: property %q has no keyframes", index, name),
				map[string]any{"layer_index": index, "property": name}).
				WithRecovery("Add at least one keyframe with 't' and 'value'")
		}
	}
	return nil
}
