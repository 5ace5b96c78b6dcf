// Package simd holds the distance kernels on the scoring hot path.
package simd

// MahalanobisAccum computes sum((x[i]-mean[i])^2 * invVar[i]) for i in 0..len(x)-1.
// The loop is unrolled by four so the compiler keeps independent partial
// sums in registers.
func MahalanobisAccum(x, mean, invVar []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	mean = mean[:n]
	invVar = invVar[:n]
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := x[i] - mean[i]
		d1 := x[i+1] - mean[i+1]
		d2 := x[i+2] - mean[i+2]
		d3 := x[i+3] - mean[i+3]
		s0 += d0 * d0 * invVar[i]
		s1 += d1 * d1 * invVar[i+1]
		s2 += d2 * d2 * invVar[i+2]
		s3 += d3 * d3 * invVar[i+3]
	}
	for ; i < n; i++ {
		d := x[i] - mean[i]
		s0 += d * d * invVar[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// MahalanobisBounded accumulates the same distance as MahalanobisAccum, but
// starting from acc and checking the running total against limit after every
// segment of step dimensions. It returns (total, true) when the full sum was
// computed and (partial, false) as soon as a partial total exceeds limit.
// Every term is non-negative when invVar is positive, so an exceeded limit
// means the full sum exceeds it too.
func MahalanobisBounded(x, mean, invVar []float64, acc, limit float64, step int) (float64, bool) {
	n := len(x)
	if step <= 0 || step > n {
		step = n
	}
	for start := 0; start < n; start += step {
		end := start + step
		if end > n {
			end = n
		}
		acc += MahalanobisAccum(x[start:end], mean[start:end], invVar[start:end])
		if end < n && acc > limit {
			return acc, false
		}
	}
	return acc, true
}
