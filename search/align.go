// Package search runs time-synchronous Viterbi passes whose acoustic scores
// come from an output-probability cache.
package search

import (
	"errors"
	"fmt"
	"math"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/ieee0824/acscore/internal/mathutil"
)

// ErrNoPath reports that no state sequence explains the observations.
var ErrNoPath = errors.New("search: no valid path")

var logHalf = math.Log(0.5)

// Lookuper returns the acoustic log-probability of a shared state at a frame.
// Lookups for one state arrive with non-decreasing frames. *outp.Cache and
// *outp.Locked implement it.
type Lookuper interface {
	Lookup(state, frame int) (float64, error)
}

// Segment is the frame span aligned to one HMM.
type Segment struct {
	Name       string
	StartFrame int // inclusive
	EndFrame   int // exclusive
}

// Alignment is the result of a forced alignment.
type Alignment struct {
	Segments []Segment
	LogScore float64
}

// ForcedAlign performs Viterbi forced alignment of T frames against a known
// HMM sequence. Frames are processed in order and a state is only scored at
// frames where some path reaches it.
func ForcedAlign(lk Lookuper, hmms []*acoustic.HMMDef, T int) (*Alignment, error) {
	N := len(hmms)
	if N == 0 {
		return nil, fmt.Errorf("empty hmm sequence")
	}
	if T < N {
		return nil, fmt.Errorf("too few frames (%d) for %d hmms", T, N)
	}

	// Flatten emitting states: composite index j covers (hmm p, emitting s).
	var (
		owner  []int // j -> p
		local  []int // j -> s in 1..E
		shared []int // j -> shared-state id
		last   = make([]int, N)
	)
	for p, h := range hmms {
		if h.NumEmitting() == 0 {
			return nil, fmt.Errorf("hmm %q has no emitting states", h.Name)
		}
		for s := 1; s <= h.NumEmitting(); s++ {
			owner = append(owner, p)
			local = append(local, s)
			shared = append(shared, h.States[s-1])
		}
		last[p] = len(owner) - 1
	}
	S := len(owner)

	// Exit transitions are floored like the training aligner: segments
	// trained in isolation often carry a LogZero exit.
	exitTrans := make([]float64, N)
	for p, h := range hmms {
		et := h.TransLog[h.NumEmitting()][h.ExitState()]
		if et <= mathutil.LogZero+1 {
			et = logHalf
		}
		exitTrans[p] = et
	}

	prev := mathutil.NewVecFill(S, mathutil.LogZero)
	curr := mathutil.NewVecFill(S, mathutil.LogZero)
	bp := make([][]int32, T)
	for t := range bp {
		bp[t] = make([]int32, S)
	}

	// t=0: only the first emitting state of the first hmm
	ac, err := lk.Lookup(shared[0], 0)
	if err != nil {
		return nil, fmt.Errorf("frame 0: %w", err)
	}
	prev[0] = hmms[0].TransLog[0][1] + ac

	for t := 1; t < T; t++ {
		mathutil.FillVec(curr, mathutil.LogZero)

		for j := 0; j < S; j++ {
			p := owner[j]
			s := local[j]
			h := hmms[p]

			bestScore := mathutil.LogZero
			bestPrev := int32(0)

			// self-loop
			if prev[j] > mathutil.LogZero+1 {
				score := prev[j] + h.TransLog[s][s]
				if score > bestScore {
					bestScore = score
					bestPrev = int32(j)
				}
			}

			// intra-hmm forward
			if s >= 2 && prev[j-1] > mathutil.LogZero+1 {
				score := prev[j-1] + h.TransLog[s-1][s]
				if score > bestScore {
					bestScore = score
					bestPrev = int32(j - 1)
				}
			}

			// cross-hmm: exit of p-1 into entry of p
			if s == 1 && p >= 1 {
				pj := last[p-1]
				if prev[pj] > mathutil.LogZero+1 {
					score := prev[pj] + exitTrans[p-1] + h.TransLog[0][1]
					if score > bestScore {
						bestScore = score
						bestPrev = int32(pj)
					}
				}
			}

			if bestScore > mathutil.LogZero+1 {
				ac, err := lk.Lookup(shared[j], t)
				if err != nil {
					return nil, fmt.Errorf("frame %d hmm %q state %d: %w", t, h.Name, s, err)
				}
				curr[j] = bestScore + ac
			}
			bp[t][j] = bestPrev
		}

		prev, curr = curr, prev
	}

	// The path must end in the last emitting state of the last hmm.
	bestJ := last[N-1]
	bestScore := prev[bestJ]
	if bestScore <= mathutil.LogZero+1 {
		return nil, ErrNoPath
	}
	bestScore += exitTrans[N-1]

	path := make([]int, T)
	path[T-1] = bestJ
	for t := T - 1; t > 0; t-- {
		path[t-1] = int(bp[t][path[t]])
	}

	result := &Alignment{LogScore: bestScore}
	currentP := owner[path[0]]
	startFrame := 0
	for t := 1; t < T; t++ {
		p := owner[path[t]]
		if p != currentP {
			result.Segments = append(result.Segments, Segment{
				Name:       hmms[currentP].Name,
				StartFrame: startFrame,
				EndFrame:   t,
			})
			currentP = p
			startFrame = t
		}
	}
	result.Segments = append(result.Segments, Segment{
		Name:       hmms[currentP].Name,
		StartFrame: startFrame,
		EndFrame:   T,
	})
	return result, nil
}
