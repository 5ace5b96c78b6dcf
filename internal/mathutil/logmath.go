package mathutil

import "math"

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
const LogZero = -1e30

// MinLogExp is the smallest difference b-a for which LogAdd(a, b) still
// changes a. exp(-36) ≈ 2.3e-16 is below float64 precision relative to 1.
const MinLogExp = -36.0

// MinMix is the smallest linear mixture weight that is still evaluated.
const MinMix = 1.0e-5

// LMinMix is log(MinMix). Components whose log weight is at or below this
// floor are omitted from mixture sums.
const LMinMix = -11.5129254649702

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Uses threshold-based early exit to skip expensive exp/log1p when the
// smaller value contributes less than float64 precision.
func LogAdd(a, b float64) float64 {
	if a > b {
		if b == LogZero {
			return a
		}
		d := b - a
		if d < MinLogExp {
			return a
		}
		return a + math.Log1p(math.Exp(d))
	}
	if a == LogZero {
		return b
	}
	d := a - b
	if d < MinLogExp {
		return b
	}
	return b + math.Log1p(math.Exp(d))
}

// LogSub returns log(exp(a) - exp(b)), assuming a > b.
func LogSub(a, b float64) float64 {
	if b == LogZero {
		return a
	}
	if a <= b {
		return LogZero
	}
	return a + math.Log1p(-math.Exp(b-a))
}

// MixLogWeight converts a linear mixture weight to the log domain, mapping
// weights below MinMix to LogZero.
func MixLogWeight(w float64) float64 {
	if w < MinMix {
		return LogZero
	}
	return math.Log(w)
}
