package acoustic

import (
	"fmt"

	"github.com/ieee0824/acscore/internal/mathutil"
	"github.com/ieee0824/acscore/internal/simd"
)

// Transformer supplies component-specific feature-space transforms.
// Apply writes the transform of x selected for component g into dst
// (len(dst) == len(x)) and returns the log-determinant correction to add to
// the component's log-density. frame is the index of x in the utterance.
// Implementations must return the same result for the same arguments.
type Transformer interface {
	Apply(dst, x []float64, g *Gaussian, frame int) float64
}

// AdaptedOptions configures an AdaptedEvaluator.
type AdaptedOptions struct {
	MinMixLogWeight float64
	PDE             bool // partial distance elimination across components
	PDEBlocks       int  // number of distance segments checked by PDE
}

// AdaptedEvaluator scores mixtures after applying a feature-space transform
// per component, optionally with partial distance elimination. It keeps a
// scratch vector and must not be shared between goroutines.
type AdaptedEvaluator struct {
	widths []int
	xf     Transformer
	opts   AdaptedOptions
	buf    []float64
}

// NewAdaptedEvaluator creates an evaluator for the streams of ms that queries
// xf for every component of every frame.
func NewAdaptedEvaluator(ms *ModelSet, xf Transformer, opts AdaptedOptions) *AdaptedEvaluator {
	maxW := 0
	for _, w := range ms.StreamWidths {
		if w > maxW {
			maxW = w
		}
	}
	if opts.PDEBlocks < 1 {
		opts.PDEBlocks = 1
	}
	return &AdaptedEvaluator{
		widths: ms.StreamWidths,
		xf:     xf,
		opts:   opts,
		buf:    make([]float64, maxW),
	}
}

// StreamLogProb returns log p(x | mixture st) with each component scored
// under its own transformed copy of x.
func (e *AdaptedEvaluator) StreamLogProb(x []float64, st *Stream, width, frame int) (float64, error) {
	if len(x) != width {
		return mathutil.LogZero, fmt.Errorf("%w: vector has %d dims, stream width %d", ErrDimensionMismatch, len(x), width)
	}
	y := e.buf[:width]
	comps := st.Components

	if len(comps) == 1 {
		g := &comps[0]
		det := e.xf.Apply(y, x, g, frame)
		return g.LogProb(y) + det, nil
	}

	if !e.opts.PDE {
		bx := mathutil.LogZero
		for m := range comps {
			g := &comps[m]
			if g.LogWeight <= e.opts.MinMixLogWeight {
				continue
			}
			det := e.xf.Apply(y, x, g, frame)
			bx = mathutil.LogAdd(bx, g.LogWeight+g.LogProb(y)+det)
		}
		return bx, nil
	}

	step := (width + e.opts.PDEBlocks - 1) / e.opts.PDEBlocks
	bx := mathutil.LogZero
	for m := range comps {
		g := &comps[m]
		wt := g.LogWeight
		if wt <= e.opts.MinMixLogWeight {
			continue
		}
		det := e.xf.Apply(y, x, g, frame)
		if bx == mathutil.LogZero {
			bx = wt + g.LogProb(y) + det
			continue
		}
		// LogAdd(bx, v) == bx whenever v < bx+MinLogExp, so a component whose
		// density already falls below thresh cannot change the sum.
		thresh := bx - wt - det + mathutil.MinLogExp
		sum, ok := simd.MahalanobisBounded(y, g.Mean, g.InvVar, g.GConst, -2*thresh, step)
		if !ok {
			continue
		}
		bx = mathutil.LogAdd(bx, wt-0.5*sum+det)
	}
	return bx, nil
}

// StateLogProb implements StateScorer.
func (e *AdaptedEvaluator) StateLogProb(si *StateInfo, obs Observation, frame int) (float64, error) {
	return combineStreams(e.widths, si, obs, func(s int) (float64, error) {
		return e.StreamLogProb(obs.Streams[s], &si.Streams[s], e.widths[s], frame)
	})
}
