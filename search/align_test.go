package search

import (
	"errors"
	"os"
	"testing"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/ieee0824/acscore/internal/mathutil"
	"github.com/ieee0824/acscore/outp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// makeTestModel creates one 3-state HMM per mean; all emitting states of an
// HMM share that mean so forced alignment finds clear boundaries.
func makeTestModel(t *testing.T, dim int, names []string, means []float64) *acoustic.ModelSet {
	t.Helper()
	ms := acoustic.NewModelSet([]int{dim}, 3*len(names))
	for i, name := range names {
		ids := make([]int, 3)
		for s := 0; s < 3; s++ {
			id := 3*i + s
			mean := make([]float64, dim)
			variance := make([]float64, dim)
			for d := range mean {
				mean[d] = means[i]
				variance[d] = 0.5
			}
			ms.States[id] = &acoustic.StateInfo{Streams: []acoustic.Stream{
				acoustic.NewStream([][]float64{mean}, [][]float64{variance}, []float64{0}),
			}}
			ids[s] = id
		}
		ms.AddHMM(acoustic.NewHMMDef(name, ids))
	}
	require.NoError(t, ms.Precompute())
	return ms
}

// makeFeatures creates dim-dimensional frames, n[i] of them set to vals[i].
func makeFeatures(dim int, n []int, vals []float64) acoustic.Sequence {
	var f [][]float64
	for i, count := range n {
		for k := 0; k < count; k++ {
			v := make([]float64, dim)
			for d := range v {
				v[d] = vals[i] + 0.1
			}
			f = append(f, v)
		}
	}
	return acoustic.SingleStream(f)
}

// orderedLookuper fails the test if a state is looked up at an earlier frame
// than before.
type orderedLookuper struct {
	t     *testing.T
	inner Lookuper
	last  map[int]int
	calls int
}

func (o *orderedLookuper) Lookup(state, frame int) (float64, error) {
	if prev, ok := o.last[state]; ok && frame < prev {
		o.t.Errorf("state %d looked up at frame %d after frame %d", state, frame, prev)
	}
	o.last[state] = frame
	o.calls++
	return o.inner.Lookup(state, frame)
}

func newCache(t *testing.T, ms *acoustic.ModelSet, block int, seq acoustic.Sequence) *outp.Cache {
	t.Helper()
	be := acoustic.NewBlockEvaluator(ms, acoustic.NewGaussianEvaluator(ms, mathutil.LMinMix), 1.0)
	c, err := outp.New(ms, be, outp.Options{BlockSize: block})
	require.NoError(t, err)
	c.Start(seq)
	return c
}

func hmmSeq(ms *acoustic.ModelSet, names ...string) []*acoustic.HMMDef {
	out := make([]*acoustic.HMMDef, len(names))
	for i, n := range names {
		out[i] = ms.HMMs[n]
	}
	return out
}

func TestForcedAlign_ThreeHMMs(t *testing.T) {
	dim := 4
	ms := makeTestModel(t, dim, []string{"a", "k", "i"}, []float64{0, 5, 10})
	seq := makeFeatures(dim, []int{10, 10, 10}, []float64{0, 5, 10})

	c := newCache(t, ms, 4, seq)
	lk := &orderedLookuper{t: t, inner: c, last: map[int]int{}}
	al, err := ForcedAlign(lk, hmmSeq(ms, "a", "k", "i"), seq.Len())
	require.NoError(t, err)

	require.Len(t, al.Segments, 3)
	assert.Equal(t, Segment{Name: "a", StartFrame: 0, EndFrame: 10}, al.Segments[0])
	assert.Equal(t, Segment{Name: "k", StartFrame: 10, EndFrame: 20}, al.Segments[1])
	assert.Equal(t, Segment{Name: "i", StartFrame: 20, EndFrame: 30}, al.Segments[2])
	assert.Greater(t, al.LogScore, mathutil.LogZero/2)

	st := c.Stats()
	assert.Equal(t, uint64(lk.calls), st.Hits+st.Misses)
	assert.Less(t, st.Misses, st.Hits)
}

func TestForcedAlign_BlockSizeDoesNotChangeResult(t *testing.T) {
	dim := 3
	ms := makeTestModel(t, dim, []string{"a", "k", "i"}, []float64{0, 5, 10})
	seq := makeFeatures(dim, []int{7, 12, 9}, []float64{0, 5, 10})
	hmms := hmmSeq(ms, "a", "k", "i", "a")
	seq = append(seq, makeFeatures(dim, []int{6}, []float64{0})...)

	ref, err := ForcedAlign(newCache(t, ms, 1, seq), hmms, seq.Len())
	require.NoError(t, err)
	for _, bs := range []int{2, 5, 8, 40} {
		got, err := ForcedAlign(newCache(t, ms, bs, seq), hmms, seq.Len())
		require.NoError(t, err)
		assert.Equal(t, ref, got, "block size %d", bs)
	}
}

func TestForcedAlign_RepeatedHMM(t *testing.T) {
	dim := 2
	ms := makeTestModel(t, dim, []string{"a", "k"}, []float64{0, 6})
	seq := makeFeatures(dim, []int{5, 5, 5}, []float64{0, 6, 0})

	al, err := ForcedAlign(newCache(t, ms, 3, seq), hmmSeq(ms, "a", "k", "a"), seq.Len())
	require.NoError(t, err)
	require.Len(t, al.Segments, 3)
	assert.Equal(t, 5, al.Segments[1].StartFrame)
	assert.Equal(t, 10, al.Segments[2].StartFrame)
}

func TestForcedAlign_Errors(t *testing.T) {
	dim := 2
	ms := makeTestModel(t, dim, []string{"a", "k"}, []float64{0, 6})
	seq := makeFeatures(dim, []int{4}, []float64{0})
	c := newCache(t, ms, 2, seq)

	_, err := ForcedAlign(c, nil, 4)
	assert.Error(t, err)

	_, err = ForcedAlign(c, hmmSeq(ms, "a", "k", "a", "k", "a"), 4)
	assert.Error(t, err)

	_, err = ForcedAlign(c, []*acoustic.HMMDef{{Name: "empty"}}, 4)
	assert.Error(t, err)

	// two 3-state hmms cannot both be traversed in 4 frames
	_, err = ForcedAlign(newCache(t, ms, 2, seq), hmmSeq(ms, "a", "k"), 4)
	assert.ErrorIs(t, err, ErrNoPath)
}

type failingLookuper struct{ err error }

func (f failingLookuper) Lookup(state, frame int) (float64, error) { return 0, f.err }

func TestForcedAlign_PropagatesLookupErrors(t *testing.T) {
	dim := 2
	ms := makeTestModel(t, dim, []string{"a"}, []float64{0})
	_, err := ForcedAlign(failingLookuper{err: outp.ErrBackwardLookup}, hmmSeq(ms, "a"), 5)
	assert.True(t, errors.Is(err, outp.ErrBackwardLookup))
}
