package animation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"cutagent/internal/edl"
)

// ErrNoKeyframes is returned when a track has nothing to interpolate.
var ErrNoKeyframes = errors.New("keyframes must not be empty")

// Num renders a float the way every expression in this package does:
// shortest exact decimal, no exponent.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type segment struct {
	end  float64
	expr string
}

// Interpolate compiles keyframes into an expression over tVar. Before the
// first keyframe the first value holds, after the last the last value holds,
// and each span in between is eased from its start value to its end value.
func Interpolate(tVar string, keyframes []edl.Keyframe, easing string) (string, error) {
	if len(keyframes) == 0 {
		return "", ErrNoKeyframes
	}
	if !edl.ValidEasing(easing) {
		return "", unknownEasing(easing)
	}
	if len(keyframes) == 1 {
		return Num(keyframes[0].Value), nil
	}

	kfs := append([]edl.Keyframe(nil), keyframes...)
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].T < kfs[j].T })

	segments := make([]segment, 0, len(kfs)-1)
	for i := 0; i < len(kfs)-1; i++ {
		expr, err := spanExpr(tVar, kfs[i], kfs[i+1], easing)
		if err != nil {
			return "", err
		}
		segments = append(segments, segment{end: kfs[i+1].T, expr: expr})
	}

	expr := Num(kfs[len(kfs)-1].Value)
	for i := len(segments) - 1; i >= 0; i-- {
		expr = fmt.Sprintf("if(lt(%s,%s),%s,%s)", tVar, Num(segments[i].end), segments[i].expr, expr)
	}
	return fmt.Sprintf("if(lt(%s,%s),%s,%s)", tVar, Num(kfs[0].T), Num(kfs[0].Value), expr), nil
}

func spanExpr(tVar string, from, to edl.Keyframe, easing string) (string, error) {
	dt := to.T - from.T
	if dt <= 0 {
		return Num(to.Value), nil
	}
	if easing == edl.EasingSpring {
		delta := from.Value - to.Value
		if delta == 0 {
			return Num(to.Value), nil
		}
		elapsed := fmt.Sprintf("(%s-%s)", tVar, Num(from.T))
		return fmt.Sprintf("(%s)+(%s)*exp(-4*%s)*cos(12*%s)", Num(to.Value), Num(delta), elapsed, elapsed), nil
	}
	u := fmt.Sprintf("min(1,max(0,(%s-%s)/%s))", tVar, Num(from.T), Num(dt))
	eased, err := easedExpr(easing, u)
	if err != nil {
		return "", err
	}
	return lerp(from.Value, to.Value, eased), nil
}

func lerp(v0, v1 float64, eased string) string {
	delta := v1 - v0
	switch {
	case delta == 0:
		return Num(v0)
	case v0 == 0:
		return fmt.Sprintf("(%s)*(%s)", Num(delta), eased)
	default:
		return fmt.Sprintf("(%s)+(%s)*(%s)", Num(v0), Num(delta), eased)
	}
}
