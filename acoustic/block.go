package acoustic

import (
	"fmt"

	"github.com/ieee0824/acscore/internal/mathutil"
)

// BlockEvaluator scores a run of consecutive observations for one shared
// state and applies the acoustic scale. It holds no cache state.
type BlockEvaluator struct {
	ms      *ModelSet
	scorer  StateScorer
	acScale float64
}

// NewBlockEvaluator creates a block evaluator over ms using scorer for each
// frame.
func NewBlockEvaluator(ms *ModelSet, scorer StateScorer, acScale float64) *BlockEvaluator {
	return &BlockEvaluator{ms: ms, scorer: scorer, acScale: acScale}
}

// AcScale returns the acoustic scaling factor.
func (b *BlockEvaluator) AcScale() float64 { return b.acScale }

// ScoreBlock writes the scaled log-probability of state for obs[i] into
// dst[i]. obs[0] is frame start of the utterance; len(obs) may be shorter than
// the cache block near the end of an utterance.
func (b *BlockEvaluator) ScoreBlock(obs []Observation, start, state int, dst []float64) error {
	n := len(obs)
	if len(dst) < n {
		return fmt.Errorf("block of %d frames does not fit %d outputs", n, len(dst))
	}
	si, err := b.ms.State(state)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		dst[i], err = b.scorer.StateLogProb(si, obs[i], start+i)
		if err != nil {
			return fmt.Errorf("state %d frame %d: %w", state, start+i, err)
		}
	}

	// acoustic scaling
	if b.acScale != 1.0 {
		mathutil.ScaleVec(dst[:n], b.acScale)
	}
	return nil
}
