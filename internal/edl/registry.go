package edl

import "encoding/json"

// Field describes one operation field for the capabilities schema.
type Field struct {
	Name string
	Type string
}

// Spec is the registry entry for one operation kind.
type Spec struct {
	Kind         Kind
	Description  string
	Required     []string
	Fields       []Field
	SupportsCopy bool

	decode func(json.RawMessage) (Operation, error)
}

func decoder[T Operation](defaults T) func(json.RawMessage) (Operation, error) {
	return func(raw json.RawMessage) (Operation, error) {
		v := defaults
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

var registry = []Spec{
	{
		Kind:         KindTrim,
		Description:  "Extract a segment between two timestamps",
		Required:     []string{"source", "start", "end"},
		Fields:       []Field{{"source", "str"}, {"start", "time"}, {"end", "time"}},
		SupportsCopy: true,
		decode:       decoder(Trim{}),
	},
	{
		Kind:         KindSplit,
		Description:  "Split a video at one or more timestamps",
		Required:     []string{"source", "points"},
		Fields:       []Field{{"source", "str"}, {"points", "list[time]"}},
		SupportsCopy: true,
		decode:       decoder(Split{}),
	},
	{
		Kind:        KindConcat,
		Description: "Concatenate multiple files in order",
		Required:    []string{"segments"},
		Fields: []Field{
			{"segments", "list[str]"},
			{"transition", "None | 'crossfade'"},
			{"transition_duration", "float (>0, default 0.5)"},
		},
		SupportsCopy: true,
		decode:       decoder(Concat{}),
	},
	{
		Kind:         KindReorder,
		Description:  "Reorder segments by index and concatenate",
		Required:     []string{"segments", "order"},
		Fields:       []Field{{"segments", "list[str]"}, {"order", "list[int]"}},
		SupportsCopy: true,
		decode:       decoder(Reorder{}),
	},
	{
		Kind:         KindExtract,
		Description:  "Extract audio or video stream",
		Required:     []string{"source", "stream"},
		Fields:       []Field{{"source", "str"}, {"stream", "'audio' | 'video'"}},
		SupportsCopy: true,
		decode:       decoder(Extract{}),
	},
	{
		Kind:        KindFade,
		Description: "Apply fade-in/fade-out to audio and video",
		Required:    []string{"source"},
		Fields: []Field{
			{"source", "str"},
			{"fade_in", "float (seconds)"},
			{"fade_out", "float (seconds)"},
			{"output", "str (optional output path override)"},
		},
		decode: decoder(Fade{}),
	},
	{
		Kind:        KindSpeed,
		Description: "Change playback speed (slow-motion or speed-up)",
		Required:    []string{"source"},
		Fields: []Field{
			{"source", "str"},
			{"factor", "float (0.25-100.0; >1 = faster, <1 = slower)"},
		},
		decode: decoder(Speed{Factor: 1.0}),
	},
	{
		Kind:        KindMixAudio,
		Description: "Overlay background music or audio onto a video's existing audio",
		Required:    []string{"source", "audio"},
		Fields: []Field{
			{"source", "str (video with original audio)"},
			{"audio", "str (audio file to mix in)"},
			{"mix_level", "float (0.0-1.0, default 0.3)"},
		},
		decode: decoder(MixAudio{MixLevel: 0.3}),
	},
	{
		Kind:        KindVolume,
		Description: "Adjust audio volume by a dB gain value",
		Required:    []string{"source"},
		Fields: []Field{
			{"source", "str"},
			{"gain_db", "float (-60.0 to 60.0; positive = louder)"},
		},
		SupportsCopy: true,
		decode:       decoder(Volume{}),
	},
	{
		Kind:        KindReplaceAudio,
		Description: "Replace a video's audio track with a different audio file",
		Required:    []string{"source", "audio"},
		Fields: []Field{
			{"source", "str (video, keeps video stream)"},
			{"audio", "str (replacement audio file)"},
		},
		SupportsCopy: true,
		decode:       decoder(ReplaceAudio{}),
	},
	{
		Kind:        KindNormalize,
		Description: "Normalize audio loudness using EBU R128 (loudnorm)",
		Required:    []string{"source"},
		Fields: []Field{
			{"source", "str"},
			{"target_lufs", "float (default -16.0, range -70 to -5)"},
			{"true_peak_dbtp", "float (default -1.5, range -10 to 0)"},
		},
		decode: decoder(Normalize{TargetLUFS: -16.0, TruePeakDBTP: -1.5}),
	},
	{
		Kind:        KindText,
		Description: "Burn one or more text overlays onto a video",
		Required:    []string{"source", "entries"},
		Fields: []Field{
			{"source", "str"},
			{"entries", "list[{text, position ('center' | preset | 'x,y'), font_size (48), font_color ('white'), start?, end?, bg_color?, bg_padding (10), font?, shadow_color?, shadow_offset, stroke_color?, stroke_width}]"},
		},
		decode: decoder(Text{}),
	},
	{
		Kind:        KindAnimate,
		Description: "Apply keyframe-driven animations (text/image layers) onto a video",
		Required:    []string{"source", "layers"},
		Fields: []Field{
			{"source", "str"},
			{"fps", "int (default 30)"},
			{"layers", "list[{type ('text' | 'image'), start (0.0), end (5.0), properties {name: {keyframes [{t, value}], easing}}, text | path, styling}]"},
		},
		decode: decoder(Animate{FPS: 30}),
	},
}

var registryIndex = func() map[Kind]int {
	idx := make(map[Kind]int, len(registry))
	for i, spec := range registry {
		idx[spec.Kind] = i
	}
	return idx
}()

// Kinds returns every operation kind in registry order.
func Kinds() []Kind {
	out := make([]Kind, len(registry))
	for i, spec := range registry {
		out[i] = spec.Kind
	}
	return out
}

// Specs returns a copy of the registry.
func Specs() []Spec {
	return append([]Spec(nil), registry...)
}

// Lookup returns the registry entry for kind.
func Lookup(kind Kind) (Spec, bool) {
	i, ok := registryIndex[kind]
	if !ok {
		return Spec{}, false
	}
	return registry[i], true
}

// KindNames returns the kinds as plain strings.
func KindNames() []string {
	out := make([]string, len(registry))
	for i, spec := range registry {
		out[i] = string(spec.Kind)
	}
	return out
}
