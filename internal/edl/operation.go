package edl

import "encoding/json"

// Kind is the value of an operation's "op" discriminator.
type Kind string

const (
	KindTrim         Kind = "trim"
	KindSplit        Kind = "split"
	KindConcat       Kind = "concat"
	KindReorder      Kind = "reorder"
	KindExtract      Kind = "extract"
	KindFade         Kind = "fade"
	KindSpeed        Kind = "speed"
	KindMixAudio     Kind = "mix_audio"
	KindVolume       Kind = "volume"
	KindReplaceAudio Kind = "replace_audio"
	KindNormalize    Kind = "normalize"
	KindText         Kind = "text"
	KindAnimate      Kind = "animate"
)

// Operation is one step of an EDL. The set of implementations is closed:
// only the variants in this package satisfy it.
type Operation interface {
	Kind() Kind
	OpID() string
	operation()
}

// Base carries the fields every operation shares.
type Base struct {
	ID string `json:"id,omitempty"`
}

// OpID returns the optional name other operations can reference as $id.
func (b Base) OpID() string { return b.ID }

func (Base) operation() {}

// Trim extracts the segment between Start and End.
type Trim struct {
	Base
	Source string   `json:"source"`
	Start  Timecode `json:"start"`
	End    Timecode `json:"end"`
}

func (Trim) Kind() Kind { return KindTrim }

// Split cuts Source at each point.
type Split struct {
	Base
	Source string     `json:"source"`
	Points []Timecode `json:"points"`
}

func (Split) Kind() Kind { return KindSplit }

// TransitionCrossfade is the only supported concat transition.
const TransitionCrossfade = "crossfade"

// DefaultTransitionDuration applies when a crossfade omits transition_duration.
const DefaultTransitionDuration = 0.5

// Concat joins Segments in order, optionally crossfading between them.
type Concat struct {
	Base
	Segments           []string `json:"segments"`
	Transition         *string  `json:"transition,omitempty"`
	TransitionDuration *float64 `json:"transition_duration,omitempty"`
}

func (Concat) Kind() Kind { return KindConcat }

// Crossfade reports whether the concat uses the crossfade transition.
func (c Concat) Crossfade() bool {
	return c.Transition != nil && *c.Transition == TransitionCrossfade
}

// TransitionSeconds returns the crossfade length with the default applied.
func (c Concat) TransitionSeconds() float64 {
	if c.TransitionDuration == nil {
		return DefaultTransitionDuration
	}
	return *c.TransitionDuration
}

// Reorder concatenates Segments in the order given by Order.
type Reorder struct {
	Base
	Segments []string `json:"segments"`
	Order    []int    `json:"order"`
}

func (Reorder) Kind() Kind { return KindReorder }

const (
	StreamAudio = "audio"
	StreamVideo = "video"
)

// Extract keeps only the audio or video stream.
type Extract struct {
	Base
	Source string `json:"source"`
	Stream string `json:"stream"`
}

func (Extract) Kind() Kind { return KindExtract }

// Fade applies fade-in and fade-out to audio and video.
type Fade struct {
	Base
	Source  string  `json:"source"`
	Output  *string `json:"output,omitempty"`
	FadeIn  float64 `json:"fade_in"`
	FadeOut float64 `json:"fade_out"`
}

func (Fade) Kind() Kind { return KindFade }

// Speed changes playback rate by Factor.
type Speed struct {
	Base
	Source string  `json:"source"`
	Factor float64 `json:"factor"`
}

func (Speed) Kind() Kind { return KindSpeed }

// MixAudio overlays Audio onto the existing audio of Source at MixLevel.
type MixAudio struct {
	Base
	Source   string  `json:"source"`
	Audio    string  `json:"audio"`
	MixLevel float64 `json:"mix_level"`
}

func (MixAudio) Kind() Kind { return KindMixAudio }

// Volume adjusts audio gain in decibels.
type Volume struct {
	Base
	Source string  `json:"source"`
	GainDB float64 `json:"gain_db"`
}

func (Volume) Kind() Kind { return KindVolume }

// ReplaceAudio swaps the audio track of Source for Audio.
type ReplaceAudio struct {
	Base
	Source string `json:"source"`
	Audio  string `json:"audio"`
}

func (ReplaceAudio) Kind() Kind { return KindReplaceAudio }

// Normalize applies EBU R128 loudness normalization.
type Normalize struct {
	Base
	Source       string  `json:"source"`
	TargetLUFS   float64 `json:"target_lufs"`
	TruePeakDBTP float64 `json:"true_peak_dbtp"`
}

func (Normalize) Kind() Kind { return KindNormalize }

// Text burns one or more text overlays onto Source.
type Text struct {
	Base
	Source  string      `json:"source"`
	Entries []TextEntry `json:"entries"`
}

func (Text) Kind() Kind { return KindText }

// TextEntry is a single overlay. Empty optional strings mean "unset".
type TextEntry struct {
	Text         string   `json:"text"`
	Position     string   `json:"position"`
	FontSize     int      `json:"font_size"`
	FontColor    string   `json:"font_color"`
	Start        Timecode `json:"start,omitempty"`
	End          Timecode `json:"end,omitempty"`
	BGColor      string   `json:"bg_color,omitempty"`
	BGPadding    int      `json:"bg_padding"`
	Font         string   `json:"font,omitempty"`
	ShadowColor  string   `json:"shadow_color,omitempty"`
	ShadowOffset int      `json:"shadow_offset"`
	StrokeColor  string   `json:"stroke_color,omitempty"`
	StrokeWidth  int      `json:"stroke_width"`
}

// UnmarshalJSON applies entry defaults before decoding.
func (e *TextEntry) UnmarshalJSON(data []byte) error {
	type plain TextEntry
	v := plain{Position: PositionCenter, FontSize: 48, FontColor: "white", BGPadding: 10}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = TextEntry(v)
	return nil
}

// Animate composites keyframe-driven text and image layers onto Source.
type Animate struct {
	Base
	Source string  `json:"source"`
	Layers []Layer `json:"layers"`
	FPS    int     `json:"fps"`
}

func (Animate) Kind() Kind { return KindAnimate }

// Clone returns a copy whose layers can be modified without touching a.
func (a Animate) Clone() Animate {
	out := a
	out.Layers = make([]Layer, len(a.Layers))
	for i, layer := range a.Layers {
		props := make(map[string]Property, len(layer.Properties))
		for name, prop := range layer.Properties {
			prop.Keyframes = append([]Keyframe(nil), prop.Keyframes...)
			props[name] = prop
		}
		layer.Properties = props
		out.Layers[i] = layer
	}
	return out
}

const (
	LayerText  = "text"
	LayerImage = "image"
)

// Layer is a text or image layer visible between Start and End.
type Layer struct {
	Type       string              `json:"type"`
	Start      float64             `json:"start"`
	End        float64             `json:"end"`
	Properties map[string]Property `json:"properties"`

	Text         string `json:"text,omitempty"`
	FontSize     int    `json:"font_size"`
	FontColor    string `json:"font_color"`
	Font         string `json:"font,omitempty"`
	BGColor      string `json:"bg_color,omitempty"`
	BGPadding    int    `json:"bg_padding"`
	ShadowColor  string `json:"shadow_color,omitempty"`
	ShadowOffset int    `json:"shadow_offset"`
	StrokeColor  string `json:"stroke_color,omitempty"`
	StrokeWidth  int    `json:"stroke_width"`

	Path string `json:"path,omitempty"`
}

// UnmarshalJSON applies layer defaults before decoding.
func (l *Layer) UnmarshalJSON(data []byte) error {
	type plain Layer
	v := plain{End: 5.0, FontSize: 48, FontColor: "white", BGPadding: 10}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Layer(v)
	return nil
}

// Property animates one layer attribute through Keyframes.
type Property struct {
	Keyframes []Keyframe `json:"keyframes"`
	Easing    string     `json:"easing"`
}

// UnmarshalJSON defaults the easing to linear.
func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property
	v := plain{Easing: EasingLinear}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Property(v)
	return nil
}

// Keyframe pins a property Value at output time T in seconds.
type Keyframe struct {
	T     float64 `json:"t"`
	Value float64 `json:"value"`
}
