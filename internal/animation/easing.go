package animation

import (
	"fmt"
	"math"

	"cutagent/internal/edl"
)

// Ease evaluates easing at normalized progress u, clamped to [0,1].
func Ease(easing string, u float64) (float64, error) {
	u = math.Max(0, math.Min(1, u))
	switch easing {
	case edl.EasingLinear:
		return u, nil
	case edl.EasingEaseIn:
		return u * u, nil
	case edl.EasingEaseOut:
		return 1 - (1-u)*(1-u), nil
	case edl.EasingEaseInOut:
		return u * u * (3 - 2*u), nil
	case edl.EasingSpring:
		return 1 - math.Exp(-4*u)*math.Cos(12*u), nil
	}
	return 0, unknownEasing(easing)
}

// easedExpr wraps a progress expression in the easing curve.
func easedExpr(easing, u string) (string, error) {
	switch easing {
	case edl.EasingLinear:
		return u, nil
	case edl.EasingEaseIn:
		return fmt.Sprintf("(%s)*(%s)", u, u), nil
	case edl.EasingEaseOut:
		return fmt.Sprintf("(1-(1-(%s))*(1-(%s)))", u, u), nil
	case edl.EasingEaseInOut:
		return fmt.Sprintf("(%s)*(%s)*(3-2*(%s))", u, u, u), nil
	case edl.EasingSpring:
		return fmt.Sprintf("(1-exp(-4*(%s))*cos(12*(%s)))", u, u), nil
	}
	return "", unknownEasing(easing)
}

func unknownEasing(easing string) error {
	return fmt.Errorf("unknown easing %q (use one of %v)", easing, edl.Easings())
}
