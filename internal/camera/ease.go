package camera

import (
	"math"
	"strings"
)

// EaseFunc maps linear progress in [0,1] to eased progress
type EaseFunc func(t float64) float64

// DefaultEase is applied to points of interest that do not name an ease
const DefaultEase = "power1.inOut"

var eases = map[string]EaseFunc{
	"none":           linear,
	"linear":         linear,
	"sine.in":        func(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) },
	"sine.out":       func(t float64) float64 { return math.Sin(t * math.Pi / 2) },
	"sine.inout":     func(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 },
	"easeinoutcubic": powerInOut(3),
}

func init() {
	// power1 is quadratic, power4 quintic
	for p := 1; p <= 4; p++ {
		n := p + 1
		prefix := "power" + string(rune('0'+p))
		eases[prefix+".in"] = powerIn(n)
		eases[prefix+".out"] = powerOut(n)
		eases[prefix+".inout"] = powerInOut(n)
		eases[prefix] = powerOut(n)
	}
}

// Ease looks up an easing function by name. Names are case-insensitive; an
// empty name selects DefaultEase.
func Ease(name string) (EaseFunc, bool) {
	if name == "" {
		name = DefaultEase
	}
	fn, ok := eases[strings.ToLower(name)]
	return fn, ok
}

func linear(t float64) float64 {
	return t
}

func powerIn(n int) EaseFunc {
	return func(t float64) float64 {
		return pow(t, n)
	}
}

func powerOut(n int) EaseFunc {
	return func(t float64) float64 {
		return 1 - pow(1-t, n)
	}
}

func powerInOut(n int) EaseFunc {
	return func(t float64) float64 {
		if t < 0.5 {
			return pow(2, n-1) * pow(t, n)
		}
		return 1 - pow(-2*t+2, n)/2
	}
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
