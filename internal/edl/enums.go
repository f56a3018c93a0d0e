package edl

import (
	"regexp"
	"sort"
)

// Text position presets.
const (
	PositionCenter       = "center"
	PositionTopCenter    = "top-center"
	PositionBottomCenter = "bottom-center"
	PositionTopLeft      = "top-left"
	PositionTopRight     = "top-right"
	PositionBottomLeft   = "bottom-left"
	PositionBottomRight  = "bottom-right"
)

var positionPresets = map[string]bool{
	PositionCenter: true, PositionTopCenter: true, PositionBottomCenter: true,
	PositionTopLeft: true, PositionTopRight: true, PositionBottomLeft: true, PositionBottomRight: true,
}

var customPosition = regexp.MustCompile(`^(\d+)\s*,\s*(\d+)$`)

// PositionPresets lists the named positions in sorted order.
func PositionPresets() []string { return sortedKeys(positionPresets) }

// IsPositionPreset reports whether p is a named position.
func IsPositionPreset(p string) bool { return positionPresets[p] }

// CustomPosition parses an "x,y" pixel position.
func CustomPosition(p string) (x, y string, ok bool) {
	m := customPosition.FindStringSubmatch(p)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ValidPosition reports whether p is a preset or an "x,y" pair.
func ValidPosition(p string) bool {
	if IsPositionPreset(p) {
		return true
	}
	_, _, ok := CustomPosition(p)
	return ok
}

// Easing names.
const (
	EasingLinear    = "linear"
	EasingEaseIn    = "ease-in"
	EasingEaseOut   = "ease-out"
	EasingEaseInOut = "ease-in-out"
	EasingSpring    = "spring"
)

var easings = map[string]bool{
	EasingLinear: true, EasingEaseIn: true, EasingEaseOut: true, EasingEaseInOut: true, EasingSpring: true,
}

// Easings lists the supported easing names in sorted order.
func Easings() []string { return sortedKeys(easings) }

// ValidEasing reports whether name is a supported easing.
func ValidEasing(name string) bool { return easings[name] }

var layerTypes = map[string]bool{LayerText: true, LayerImage: true}

// LayerTypes lists the animation layer types.
func LayerTypes() []string { return sortedKeys(layerTypes) }

// ValidLayerType reports whether t is text or image.
func ValidLayerType(t string) bool { return layerTypes[t] }

var animatable = map[string]map[string]bool{
	LayerText:  {"x": true, "y": true, "opacity": true, "font_size": true},
	LayerImage: {"x": true, "y": true, "opacity": true, "scale": true},
}

// AnimatableProperties lists the properties a layer type can animate.
func AnimatableProperties(layerType string) []string { return sortedKeys(animatable[layerType]) }

// Animatable reports whether prop can be animated on a layerType layer.
func Animatable(layerType, prop string) bool { return animatable[layerType][prop] }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
