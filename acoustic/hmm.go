package acoustic

import (
	"fmt"
	"math"

	"github.com/ieee0824/acscore/internal/mathutil"
)

// HMMDef is a left-to-right HMM whose emitting states point at shared states.
// TransLog is indexed over all states: [0]=entry (non-emitting),
// [1..E]=emitting, [E+1]=exit (non-emitting).
type HMMDef struct {
	Name     string
	States   []int       // shared-state id of emitting state i+1
	TransLog [][]float64 // [E+2][E+2] log transition probs
}

// NewHMMDef creates a left-to-right HMM over the given shared states with
// self-loop and forward probabilities of 0.5.
func NewHMMDef(name string, states []int) *HMMDef {
	E := len(states)
	n := E + 2
	h := &HMMDef{
		Name:     name,
		States:   append([]int(nil), states...),
		TransLog: mathutil.NewMatFill(n, n, mathutil.LogZero),
	}

	// Entry -> first emitting state
	h.TransLog[0][1] = 0.0

	logHalf := math.Log(0.5)
	for i := 1; i <= E; i++ {
		h.TransLog[i][i] = logHalf
		h.TransLog[i][i+1] = logHalf
	}
	return h
}

// NumEmitting returns the number of emitting states.
func (h *HMMDef) NumEmitting() int {
	return len(h.States)
}

// ExitState returns the index of the non-emitting exit state.
func (h *HMMDef) ExitState() int {
	return len(h.States) + 1
}

func (h *HMMDef) validate(nStates int) error {
	if len(h.States) == 0 {
		return fmt.Errorf("no emitting states")
	}
	for i, s := range h.States {
		if s < 0 || s >= nStates {
			return fmt.Errorf("emitting state %d refers to shared state %d (have %d)", i+1, s, nStates)
		}
	}
	n := len(h.States) + 2
	if len(h.TransLog) != n {
		return fmt.Errorf("transition matrix has %d rows, want %d", len(h.TransLog), n)
	}
	for i, row := range h.TransLog {
		if len(row) != n {
			return fmt.Errorf("transition row %d has %d cols, want %d", i, len(row), n)
		}
	}
	return nil
}
