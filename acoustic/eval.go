package acoustic

import (
	"fmt"

	"github.com/ieee0824/acscore/internal/mathutil"
)

// StateScorer computes log b_j(o_t), the output log-probability of one shared
// state for one observation. frame is the observation's index in the
// utterance.
type StateScorer interface {
	StateLogProb(si *StateInfo, obs Observation, frame int) (float64, error)
}

// GaussianEvaluator scores diagonal-covariance mixtures directly, without
// feature transforms or pruning beyond the mixture weight floor.
type GaussianEvaluator struct {
	widths          []int
	minMixLogWeight float64
}

// NewGaussianEvaluator creates an evaluator for the streams of ms. Components
// whose log weight is at or below minMixLogWeight are skipped.
func NewGaussianEvaluator(ms *ModelSet, minMixLogWeight float64) *GaussianEvaluator {
	return &GaussianEvaluator{
		widths:          ms.StreamWidths,
		minMixLogWeight: minMixLogWeight,
	}
}

// StreamLogProb returns log p(x | mixture st) for a stream of the given width.
func (e *GaussianEvaluator) StreamLogProb(x []float64, st *Stream, width int) (float64, error) {
	if len(x) != width {
		return mathutil.LogZero, fmt.Errorf("%w: vector has %d dims, stream width %d", ErrDimensionMismatch, len(x), width)
	}
	if len(st.Components) == 1 {
		return st.Components[0].LogProb(x), nil
	}
	bx := mathutil.LogZero
	for m := range st.Components {
		g := &st.Components[m]
		if g.LogWeight <= e.minMixLogWeight {
			continue
		}
		bx = mathutil.LogAdd(bx, g.LogWeight+g.LogProb(x))
	}
	return bx, nil
}

// StateLogProb implements StateScorer.
func (e *GaussianEvaluator) StateLogProb(si *StateInfo, obs Observation, frame int) (float64, error) {
	return combineStreams(e.widths, si, obs, func(s int) (float64, error) {
		return e.StreamLogProb(obs.Streams[s], &si.Streams[s], e.widths[s])
	})
}

// combineStreams returns the single stream's score when there is one stream
// and no weights, and Σ_s w_s * score_s otherwise.
func combineStreams(widths []int, si *StateInfo, obs Observation, score func(s int) (float64, error)) (float64, error) {
	S := len(widths)
	if len(obs.Streams) != S {
		return mathutil.LogZero, fmt.Errorf("%w: observation has %d streams, model has %d", ErrDimensionMismatch, len(obs.Streams), S)
	}
	if S == 1 && si.StreamWeights == nil {
		return score(0)
	}
	bx := 0.0
	for s := 0; s < S; s++ {
		px, err := score(s)
		if err != nil {
			return mathutil.LogZero, fmt.Errorf("stream %d: %w", s, err)
		}
		w := 1.0
		if si.StreamWeights != nil {
			w = si.StreamWeights[s]
		}
		bx += w * px
	}
	return bx, nil
}
