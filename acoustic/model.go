package acoustic

import (
	"encoding/gob"
	"fmt"
	"io"
	"math/rand"
)

// StateInfo is the output distribution of one shared state: one mixture per
// feature stream, combined by stream weights.
type StateInfo struct {
	Streams       []Stream
	StreamWeights []float64 // nil means weight 1.0 for every stream
}

// ModelSet holds the shared states, stream layout, and HMM definitions of a
// loaded acoustic model. It is read-only while decoding.
type ModelSet struct {
	StreamWidths []int
	States       []*StateInfo // indexed by shared-state id
	HMMs         map[string]*HMMDef

	// NumSharedMix counts mixture pdfs tied directly between states. Scoring
	// such a set correctly needs a mixture-level cache.
	NumSharedMix int
}

// NewModelSet creates a model set with nStates empty shared states.
func NewModelSet(widths []int, nStates int) *ModelSet {
	ms := &ModelSet{
		StreamWidths: append([]int(nil), widths...),
		States:       make([]*StateInfo, nStates),
		HMMs:         make(map[string]*HMMDef),
	}
	return ms
}

// NewRandomModelSet creates a model set of nStates shared states, each with
// nMix random components per stream. Used for tests, benchmarks and demo
// models.
func NewRandomModelSet(rng *rand.Rand, nStates int, widths []int, nMix int) *ModelSet {
	ms := NewModelSet(widths, nStates)
	for i := range ms.States {
		si := &StateInfo{Streams: make([]Stream, len(widths))}
		for s, w := range widths {
			si.Streams[s] = NewRandomStream(rng, nMix, w)
		}
		ms.States[i] = si
	}
	return ms
}

// NumSharedStates returns the number of shared-state ids.
func (ms *ModelSet) NumSharedStates() int {
	return len(ms.States)
}

// State returns the shared state with the given id.
func (ms *ModelSet) State(idx int) (*StateInfo, error) {
	if idx < 0 || idx >= len(ms.States) || ms.States[idx] == nil {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrUnknownState, idx, len(ms.States))
	}
	return ms.States[idx], nil
}

// AddHMM registers an HMM definition under its name.
func (ms *ModelSet) AddHMM(h *HMMDef) {
	if ms.HMMs == nil {
		ms.HMMs = make(map[string]*HMMDef)
	}
	ms.HMMs[h.Name] = h
}

// Precompute validates the set and refreshes every component's GConst and
// InvVar. Call after building or editing a set by hand.
func (ms *ModelSet) Precompute() error {
	if len(ms.StreamWidths) == 0 {
		return fmt.Errorf("%w: no streams", ErrInvalidModel)
	}
	for i, si := range ms.States {
		if si == nil {
			return fmt.Errorf("%w: state %d is nil", ErrInvalidModel, i)
		}
		if len(si.Streams) != len(ms.StreamWidths) {
			return fmt.Errorf("%w: state %d has %d streams, want %d",
				ErrInvalidModel, i, len(si.Streams), len(ms.StreamWidths))
		}
		if si.StreamWeights != nil && len(si.StreamWeights) != len(ms.StreamWidths) {
			return fmt.Errorf("%w: state %d has %d stream weights, want %d",
				ErrInvalidModel, i, len(si.StreamWeights), len(ms.StreamWidths))
		}
		for s := range si.Streams {
			comps := si.Streams[s].Components
			if len(comps) == 0 {
				return fmt.Errorf("%w: state %d stream %d has no components", ErrInvalidModel, i, s)
			}
			for m := range comps {
				g := &comps[m]
				if len(g.Mean) != ms.StreamWidths[s] || len(g.Variance) != ms.StreamWidths[s] {
					return fmt.Errorf("%w: state %d stream %d mix %d: dim %d/%d, want %d",
						ErrInvalidModel, i, s, m, len(g.Mean), len(g.Variance), ms.StreamWidths[s])
				}
				for d, v := range g.Variance {
					if !(v > 0) {
						return fmt.Errorf("%w: state %d stream %d mix %d: variance[%d] = %g",
							ErrInvalidModel, i, s, m, d, v)
					}
				}
				g.Precompute()
			}
		}
	}
	for name, h := range ms.HMMs {
		if err := h.validate(len(ms.States)); err != nil {
			return fmt.Errorf("%w: hmm %q: %v", ErrInvalidModel, name, err)
		}
	}
	return nil
}

// serializable types for gob encoding
type serializedModel struct {
	StreamWidths []int
	NumSharedMix int
	States       []serializedState
	HMMs         []serializedHMM
}

type serializedState struct {
	Streams       [][]serializedGaussian
	StreamWeights []float64
}

type serializedGaussian struct {
	Mean      []float64
	Variance  []float64
	LogWeight float64
	Class     int
}

type serializedHMM struct {
	Name     string
	States   []int
	TransLog [][]float64
}

// Save serializes the model set to a writer using gob encoding.
func (ms *ModelSet) Save(w io.Writer) error {
	sm := serializedModel{
		StreamWidths: ms.StreamWidths,
		NumSharedMix: ms.NumSharedMix,
		States:       make([]serializedState, len(ms.States)),
	}
	for i, si := range ms.States {
		ss := serializedState{StreamWeights: si.StreamWeights}
		for _, st := range si.Streams {
			comps := make([]serializedGaussian, len(st.Components))
			for m, g := range st.Components {
				comps[m] = serializedGaussian{
					Mean:      g.Mean,
					Variance:  g.Variance,
					LogWeight: g.LogWeight,
					Class:     g.Class,
				}
			}
			ss.Streams = append(ss.Streams, comps)
		}
		sm.States[i] = ss
	}
	for _, h := range ms.HMMs {
		sm.HMMs = append(sm.HMMs, serializedHMM{Name: h.Name, States: h.States, TransLog: h.TransLog})
	}
	return gob.NewEncoder(w).Encode(sm)
}

// Load deserializes a model set from a reader and precomputes it.
func Load(r io.Reader) (*ModelSet, error) {
	var sm serializedModel
	if err := gob.NewDecoder(r).Decode(&sm); err != nil {
		return nil, err
	}

	ms := NewModelSet(sm.StreamWidths, len(sm.States))
	ms.NumSharedMix = sm.NumSharedMix
	for i, ss := range sm.States {
		si := &StateInfo{StreamWeights: ss.StreamWeights}
		for _, comps := range ss.Streams {
			var st Stream
			for _, sc := range comps {
				st.Components = append(st.Components, Gaussian{
					Mean:      sc.Mean,
					Variance:  sc.Variance,
					LogWeight: sc.LogWeight,
					Class:     sc.Class,
				})
			}
			si.Streams = append(si.Streams, st)
		}
		ms.States[i] = si
	}
	for _, sh := range sm.HMMs {
		ms.AddHMM(&HMMDef{Name: sh.Name, States: sh.States, TransLog: sh.TransLog})
	}
	if err := ms.Precompute(); err != nil {
		return nil, err
	}
	return ms, nil
}
