// Package acscore assembles the acoustic scoring pipeline: a model set, a
// mixture evaluator, the block evaluator and the output-probability cache.
package acscore

import (
	"errors"
	"fmt"
	"os"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/ieee0824/acscore/adapt"
	"github.com/ieee0824/acscore/config"
	"github.com/ieee0824/acscore/outp"
	"github.com/ieee0824/acscore/search"
	"github.com/sirupsen/logrus"
)

// ErrUnknownHMM reports an HMM name missing from the model set.
var ErrUnknownHMM = errors.New("acscore: unknown hmm")

// Scorer is the top-level acoustic scorer for one decoding session.
type Scorer struct {
	MS     *acoustic.ModelSet
	Cfg    config.Config
	Xforms acoustic.Transformer // used when Cfg.UseAdapted; nil means identity

	cache *outp.Cache
	err   error // first option error, reported by the constructor
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithConfig sets scoring parameters.
func WithConfig(cfg config.Config) Option {
	return func(s *Scorer) {
		s.Cfg = cfg
	}
}

// WithConfigFile loads scoring parameters from a YAML file.
func WithConfigFile(path string) Option {
	return func(s *Scorer) {
		if path == "" {
			return
		}
		cfg, err := config.Load(path)
		if err != nil {
			s.setErr(err)
			return
		}
		s.Cfg = cfg
	}
}

// WithTransforms sets the feature-space transforms used by the adapted
// evaluator.
func WithTransforms(xf acoustic.Transformer) Option {
	return func(s *Scorer) {
		s.Xforms = xf
	}
}

func (s *Scorer) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

// NewScorer creates a Scorer from a gob model file.
func NewScorer(modelPath string, opts ...Option) (*Scorer, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("open acoustic model: %w", err)
	}
	defer f.Close()
	ms, err := acoustic.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load acoustic model: %w", err)
	}
	return NewScorerFromModels(ms, opts...)
}

// NewScorerFromModels creates a Scorer from a pre-loaded model set. The model
// set must already be precomputed.
func NewScorerFromModels(ms *acoustic.ModelSet, opts ...Option) (*Scorer, error) {
	s := &Scorer{
		MS:  ms,
		Cfg: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	if err := s.Cfg.Validate(); err != nil {
		return nil, err
	}

	var eval acoustic.StateScorer
	if s.Cfg.UseAdapted {
		xf := s.Xforms
		if xf == nil {
			xf = adapt.Identity{}
		}
		if set, ok := xf.(*adapt.Set); ok {
			if err := set.Validate(ms); err != nil {
				return nil, fmt.Errorf("transform set: %w", err)
			}
		}
		eval = acoustic.NewAdaptedEvaluator(ms, xf, acoustic.AdaptedOptions{
			MinMixLogWeight: s.Cfg.MinMixLogWeight,
			PDE:             s.Cfg.PDE,
			PDEBlocks:       s.Cfg.PDEBlocks,
		})
	} else {
		eval = acoustic.NewGaussianEvaluator(ms, s.Cfg.MinMixLogWeight)
	}

	be := acoustic.NewBlockEvaluator(ms, eval, s.Cfg.AcScale)
	cache, err := outp.New(ms, be, outp.Options{BlockSize: s.Cfg.BlockSize, Mode: s.Cfg.CacheMode})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	logrus.Infof("scorer: %d states, streams %v, adapted=%t pde=%t ac_scale=%g",
		ms.NumSharedStates(), ms.StreamWidths, s.Cfg.UseAdapted, s.Cfg.PDE, s.Cfg.AcScale)
	return s, nil
}

// Cache returns the underlying output-probability cache.
func (s *Scorer) Cache() *outp.Cache { return s.cache }

// ScoreStates starts a new utterance and returns scores[i][t], the scaled
// log-probability of states[i] at frame t.
func (s *Scorer) ScoreStates(obs acoustic.Sequence, states []int) ([][]float64, error) {
	s.cache.Start(obs)
	out := make([][]float64, len(states))
	for i, st := range states {
		out[i] = make([]float64, obs.Len())
		for t := range out[i] {
			v, err := s.cache.Lookup(st, t)
			if err != nil {
				return nil, fmt.Errorf("state %d frame %d: %w", st, t, err)
			}
			out[i][t] = v
		}
	}
	return out, nil
}

// Align starts a new utterance and force-aligns it against the named HMMs.
func (s *Scorer) Align(names []string, obs acoustic.Sequence) (*search.Alignment, error) {
	hmms := make([]*acoustic.HMMDef, len(names))
	for i, name := range names {
		h, ok := s.MS.HMMs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownHMM, name)
		}
		hmms[i] = h
	}
	s.cache.Start(obs)
	al, err := search.ForcedAlign(s.cache, hmms, obs.Len())
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	return al, nil
}

// Stats returns the cache counters for the current utterance.
func (s *Scorer) Stats() outp.Stats {
	return s.cache.Stats()
}
