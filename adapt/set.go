package adapt

import (
	"fmt"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/sirupsen/logrus"
)

// Set maps regression base classes to transforms. It implements
// acoustic.Transformer. Components whose class has no transform use Default,
// or pass through unchanged when Default is nil.
type Set struct {
	Name    string
	ByClass map[int]*Transform
	Default *Transform
}

// NewSet creates an empty transform set.
func NewSet(name string) *Set {
	return &Set{Name: name, ByClass: make(map[int]*Transform)}
}

// Add registers t for class.
func (s *Set) Add(class int, t *Transform) {
	if s.ByClass == nil {
		s.ByClass = make(map[int]*Transform)
	}
	s.ByClass[class] = t
}

func (s *Set) transformFor(class int) *Transform {
	if t, ok := s.ByClass[class]; ok {
		return t
	}
	return s.Default
}

// Apply implements acoustic.Transformer. Widths must have been checked with
// Validate.
func (s *Set) Apply(dst, x []float64, g *acoustic.Gaussian, frame int) float64 {
	t := s.transformFor(g.Class)
	if t == nil {
		copy(dst, x)
		return 0
	}
	return t.Apply(dst, x)
}

// Validate checks that every component of ms maps to a transform of its
// stream's width.
func (s *Set) Validate(ms *acoustic.ModelSet) error {
	used := make(map[int]bool)
	for i, si := range ms.States {
		for st := range si.Streams {
			w := ms.StreamWidths[st]
			for m := range si.Streams[st].Components {
				class := si.Streams[st].Components[m].Class
				used[class] = true
				t := s.transformFor(class)
				if t != nil && t.Dim() != w {
					return fmt.Errorf("%w: transform for class %d has dim %d, state %d stream %d has width %d",
						acoustic.ErrDimensionMismatch, class, t.Dim(), i, st, w)
				}
			}
		}
	}
	for class := range s.ByClass {
		if !used[class] {
			logrus.Warnf("transform set %q: class %d is not used by any component", s.Name, class)
		}
	}
	return nil
}

// Identity is a Transformer that leaves observations unchanged.
type Identity struct{}

// Apply implements acoustic.Transformer.
func (Identity) Apply(dst, x []float64, g *acoustic.Gaussian, frame int) float64 {
	copy(dst, x)
	return 0
}
