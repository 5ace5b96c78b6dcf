package acoustic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ieee0824/acscore/internal/mathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diagTransformer applies y = a[class]*x + b[class] per dimension and counts
// queries.
type diagTransformer struct {
	scale map[int][]float64
	bias  map[int][]float64
	calls int
}

func (d *diagTransformer) Apply(dst, x []float64, g *Gaussian, frame int) float64 {
	d.calls++
	a, ok := d.scale[g.Class]
	if !ok {
		copy(dst, x)
		return 0
	}
	b := d.bias[g.Class]
	logDet := 0.0
	for i := range x {
		dst[i] = a[i]*x[i] + b[i]
		logDet += math.Log(math.Abs(a[i]))
	}
	return logDet
}

func randomDiagTransformer(rng *rand.Rand, classes, dim int) *diagTransformer {
	d := &diagTransformer{scale: map[int][]float64{}, bias: map[int][]float64{}}
	for c := 0; c < classes; c++ {
		a := make([]float64, dim)
		b := make([]float64, dim)
		for i := range a {
			a[i] = 0.5 + rng.Float64()
			b[i] = rng.NormFloat64() * 0.3
		}
		d.scale[c] = a
		d.bias[c] = b
	}
	return d
}

func randomVec(rng *rand.Rand, dim int, spread float64) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.NormFloat64() * spread
	}
	return v
}

func TestAdapted_IdentityMatchesGaussian(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ms := NewRandomModelSet(rng, 4, []int{13}, 4)
	plain := NewGaussianEvaluator(ms, mathutil.LMinMix)
	ident := &diagTransformer{}

	for _, pde := range []bool{false, true} {
		ad := NewAdaptedEvaluator(ms, ident, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix, PDE: pde, PDEBlocks: 3})
		for i := 0; i < 50; i++ {
			x := randomVec(rng, 13, 1.5)
			for _, si := range ms.States {
				want, err := plain.StateLogProb(si, Observation{Streams: [][]float64{x}}, i)
				require.NoError(t, err)
				got, err := ad.StateLogProb(si, Observation{Streams: [][]float64{x}}, i)
				require.NoError(t, err)
				assert.InDelta(t, want, got, 1e-9, "pde=%v", pde)
			}
		}
	}
}

func TestAdapted_SingleComponentAddsDeterminant(t *testing.T) {
	ms := NewModelSet([]int{2}, 1)
	ms.States[0] = &StateInfo{Streams: []Stream{
		NewStream([][]float64{{1, -1}}, [][]float64{{1, 2}}, []float64{0}),
	}}
	require.NoError(t, ms.Precompute())
	xf := &diagTransformer{
		scale: map[int][]float64{0: {2, 0.5}},
		bias:  map[int][]float64{0: {0, 1}},
	}
	ad := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix})

	x := []float64{0.5, -3}
	got, err := ad.StreamLogProb(x, &ms.States[0].Streams[0], 2, 0)
	require.NoError(t, err)

	y := []float64{1, -0.5}
	want := ms.States[0].Streams[0].Components[0].LogProb(y) + math.Log(2) + math.Log(0.5)
	assert.InDelta(t, want, got, 1e-12)
	assert.Equal(t, 1, xf.calls)
}

func TestAdapted_QueriesProviderPerComponent(t *testing.T) {
	ms := NewModelSet([]int{1}, 1)
	ms.States[0] = &StateInfo{Streams: []Stream{
		NewStream(
			[][]float64{{0}, {1}, {2}},
			[][]float64{{1}, {1}, {1}},
			[]float64{math.Log(0.5), math.Log(0.5), mathutil.LogZero},
		),
	}}
	require.NoError(t, ms.Precompute())
	xf := &diagTransformer{}
	ad := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix})

	for f := 0; f < 3; f++ {
		_, err := ad.StateLogProb(ms.States[0], Observation{Streams: [][]float64{{0.3}}}, f)
		require.NoError(t, err)
	}
	// floored component is never transformed, the others every frame
	assert.Equal(t, 6, xf.calls)
}

func TestAdapted_PDEEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		dim := 1 + rng.Intn(39)
		nMix := 2 + rng.Intn(15)
		ms := NewModelSet([]int{dim}, 1)
		st := NewRandomStream(rng, nMix, dim)
		// spread means and weights so that some components are far away
		for m := range st.Components {
			g := &st.Components[m]
			for d := range g.Mean {
				g.Mean[d] *= 1 + 4*rng.Float64()
			}
			g.LogWeight = math.Log(rng.Float64()*0.99 + 1e-6)
			g.Class = rng.Intn(3)
		}
		ms.States[0] = &StateInfo{Streams: []Stream{st}}
		require.NoError(t, ms.Precompute())

		xf := randomDiagTransformer(rng, 3, dim)
		full := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix})
		pde := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix, PDE: true, PDEBlocks: 1 + rng.Intn(4)})

		for i := 0; i < 5; i++ {
			x := randomVec(rng, dim, 3)
			want, err := full.StreamLogProb(x, &ms.States[0].Streams[0], dim, i)
			require.NoError(t, err)
			got, err := pde.StreamLogProb(x, &ms.States[0].Streams[0], dim, i)
			require.NoError(t, err)
			if math.Abs(want-got) > 1e-4 {
				t.Fatalf("trial %d dim=%d mix=%d: pde=%f full=%f", trial, dim, nMix, got, want)
			}
		}
	}
}

func TestAdapted_PDEFirstComponentFloored(t *testing.T) {
	ms := NewModelSet([]int{2}, 1)
	ms.States[0] = &StateInfo{Streams: []Stream{
		NewStream(
			[][]float64{{0, 0}, {3, 3}, {-1, 1}},
			[][]float64{{1, 1}, {1, 1}, {2, 2}},
			[]float64{-30, math.Log(0.6), math.Log(0.4)},
		),
	}}
	require.NoError(t, ms.Precompute())
	xf := &diagTransformer{}
	full := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix})
	pde := NewAdaptedEvaluator(ms, xf, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix, PDE: true, PDEBlocks: 2})

	x := []float64{0.2, 0.1}
	want, err := full.StreamLogProb(x, &ms.States[0].Streams[0], 2, 0)
	require.NoError(t, err)
	got, err := pde.StreamLogProb(x, &ms.States[0].Streams[0], 2, 0)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestAdapted_DimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	ms := NewRandomModelSet(rng, 1, []int{4}, 2)
	ad := NewAdaptedEvaluator(ms, &diagTransformer{}, AdaptedOptions{MinMixLogWeight: mathutil.LMinMix, PDE: true})
	_, err := ad.StateLogProb(ms.States[0], Observation{Streams: [][]float64{{1, 2, 3}}}, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func BenchmarkAdapted_PDE_16mix_39dim(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ms := NewRandomModelSet(rng, 1, []int{39}, 16)
	ad := NewAdaptedEvaluator(ms, randomDiagTransformer(rng, 1, 39), AdaptedOptions{MinMixLogWeight: mathutil.LMinMix, PDE: true, PDEBlocks: 3})
	obs := Observation{Streams: [][]float64{randomVec(rng, 39, 1)}}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		ad.StateLogProb(ms.States[0], obs, 0)
	}
}

func BenchmarkAdapted_Full_16mix_39dim(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ms := NewRandomModelSet(rng, 1, []int{39}, 16)
	ad := NewAdaptedEvaluator(ms, randomDiagTransformer(rng, 1, 39), AdaptedOptions{MinMixLogWeight: mathutil.LMinMix})
	obs := Observation{Streams: [][]float64{randomVec(rng, 39, 1)}}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		ad.StateLogProb(ms.States[0], obs, 0)
	}
}
