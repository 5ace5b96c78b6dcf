package acoustic

import (
	"math"
	"math/rand"

	"github.com/ieee0824/acscore/internal/simd"
)

var log2Pi = math.Log(2 * math.Pi)

// Gaussian represents a single multivariate Gaussian component with diagonal covariance.
type Gaussian struct {
	Mean      []float64 // [dim]
	Variance  []float64 // [dim] diagonal covariance
	LogWeight float64   // log mixture weight
	Class     int       // regression base class, selects the feature transform

	// Pre-computed values
	GConst float64   // dim*log(2π) + Σ log Variance[i]
	InvVar []float64 // [dim] 1/Variance
}

// Precompute recalculates GConst and InvVar.
// Must be called after updating Mean or Variance.
func (g *Gaussian) Precompute() {
	dim := len(g.Variance)
	g.GConst = float64(dim) * log2Pi
	g.InvVar = make([]float64, dim)
	for i, v := range g.Variance {
		g.GConst += math.Log(v)
		g.InvVar[i] = 1.0 / v
	}
}

// LogProb computes log N(x; Mean, Variance) = -0.5*(GConst + Σ (x_i-μ_i)² / σ²_i).
// The mixture weight is not included.
func (g *Gaussian) LogProb(x []float64) float64 {
	return -0.5 * (g.GConst + simd.MahalanobisAccum(x, g.Mean, g.InvVar))
}

// Stream is the mixture density of one state for one feature stream.
type Stream struct {
	Components []Gaussian
}

// Dim returns the feature width of the stream's components.
func (s *Stream) Dim() int {
	if len(s.Components) == 0 {
		return 0
	}
	return len(s.Components[0].Mean)
}

// NewStream creates a mixture from given parameters.
func NewStream(means, variances [][]float64, logWeights []float64) Stream {
	s := Stream{Components: make([]Gaussian, len(means))}
	for i := range s.Components {
		mean := make([]float64, len(means[i]))
		variance := make([]float64, len(variances[i]))
		copy(mean, means[i])
		copy(variance, variances[i])
		s.Components[i] = Gaussian{
			Mean:      mean,
			Variance:  variance,
			LogWeight: logWeights[i],
		}
		s.Components[i].Precompute()
	}
	return s
}

// NewRandomStream creates a k-component mixture of dimension dim with
// random means and variances drawn from rng.
func NewRandomStream(rng *rand.Rand, k, dim int) Stream {
	s := Stream{Components: make([]Gaussian, k)}
	logW := -math.Log(float64(k))
	for i := range s.Components {
		mean := make([]float64, dim)
		variance := make([]float64, dim)
		for d := 0; d < dim; d++ {
			mean[d] = rng.NormFloat64()
			variance[d] = 0.5 + rng.Float64()
		}
		s.Components[i] = Gaussian{
			Mean:      mean,
			Variance:  variance,
			LogWeight: logW,
		}
		s.Components[i].Precompute()
	}
	return s
}
