// Package easing maps normalized progress k in [0,1] to eased progress.
//
// The Quadratic, Cubic, Sinusoidal, Exponential, Elastic and Bounce families
// follow the classic tween formulas exactly, so values match other
// implementations of the same curves in float64.
package easing

import "math"

// Func reshapes linear progress k into eased progress.
type Func func(k float64) float64

// Elastic parameters. The amplitude is below 1, so every elastic curve runs
// with a = 1 and s = p/4.
const (
	elasticAmplitude = 0.1
	elasticPeriod    = 0.4
)

func Linear(k float64) float64 {
	return k
}

func QuadraticIn(k float64) float64 {
	return k * k
}

func QuadraticOut(k float64) float64 {
	return k * (2 - k)
}

func QuadraticInOut(k float64) float64 {
	k *= 2
	if k < 1 {
		return 0.5 * k * k
	}
	k--
	return -0.5 * (k*(k-2) - 1)
}

func CubicIn(k float64) float64 {
	return k * k * k
}

func CubicOut(k float64) float64 {
	k--
	return k*k*k + 1
}

func CubicInOut(k float64) float64 {
	k *= 2
	if k < 1 {
		return 0.5 * k * k * k
	}
	k -= 2
	return 0.5 * (k*k*k + 2)
}

func SinusoidalIn(k float64) float64 {
	return 1 - math.Cos(k*math.Pi/2)
}

func SinusoidalOut(k float64) float64 {
	return math.Sin(k * math.Pi / 2)
}

func SinusoidalInOut(k float64) float64 {
	return 0.5 * (1 - math.Cos(math.Pi*k))
}

func ExponentialIn(k float64) float64 {
	if k == 0 {
		return 0
	}
	return math.Pow(1024, k-1)
}

func ExponentialOut(k float64) float64 {
	if k == 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*k)
}

func ExponentialInOut(k float64) float64 {
	if k == 0 {
		return 0
	}
	if k == 1 {
		return 1
	}
	k *= 2
	if k < 1 {
		return 0.5 * math.Pow(1024, k-1)
	}
	return 0.5 * (-math.Pow(2, -10*(k-1)) + 2)
}

// elasticShape returns the effective amplitude and phase shift.
func elasticShape() (a, s float64) {
	a, p := elasticAmplitude, elasticPeriod
	if a < 1 {
		return 1, p / 4
	}
	return a, p * math.Asin(1/a) / (2 * math.Pi)
}

func ElasticIn(k float64) float64 {
	if k == 0 {
		return 0
	}
	if k == 1 {
		return 1
	}
	a, s := elasticShape()
	k--
	return -(a * math.Pow(2, 10*k) * math.Sin((k-s)*(2*math.Pi)/elasticPeriod))
}

func ElasticOut(k float64) float64 {
	if k == 0 {
		return 0
	}
	if k == 1 {
		return 1
	}
	a, s := elasticShape()
	return a*math.Pow(2, -10*k)*math.Sin((k-s)*(2*math.Pi)/elasticPeriod) + 1
}

func ElasticInOut(k float64) float64 {
	if k == 0 {
		return 0
	}
	if k == 1 {
		return 1
	}
	a, s := elasticShape()
	k *= 2
	if k < 1 {
		k--
		return -0.5 * (a * math.Pow(2, 10*k) * math.Sin((k-s)*(2*math.Pi)/elasticPeriod))
	}
	k--
	return a*math.Pow(2, -10*k)*math.Sin((k-s)*(2*math.Pi)/elasticPeriod)*0.5 + 1
}

func BounceIn(k float64) float64 {
	return 1 - BounceOut(1-k)
}

// BounceOut is the standard 4-segment parabolic bounce curve.
func BounceOut(k float64) float64 {
	switch {
	case k < 1/2.75:
		return 7.5625 * k * k
	case k < 2/2.75:
		k -= 1.5 / 2.75
		return 7.5625*k*k + 0.75
	case k < 2.5/2.75:
		k -= 2.25 / 2.75
		return 7.5625*k*k + 0.9375
	default:
		k -= 2.625 / 2.75
		return 7.5625*k*k + 0.984375
	}
}

func BounceInOut(k float64) float64 {
	if k < 0.5 {
		return BounceIn(k*2) * 0.5
	}
	return BounceOut(k*2-1)*0.5 + 0.5
}
