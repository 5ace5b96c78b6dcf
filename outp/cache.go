// Package outp caches state output log-probabilities for a frame-synchronous
// search. A miss scores a whole block of upcoming frames for the state so
// that later lookups at nearby frames are answered from memory.
package outp

import (
	"errors"
	"fmt"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/ieee0824/acscore/config"
	"github.com/sirupsen/logrus"
)

// noBlock marks a state with no valid cached block. It lies far outside any
// legal frame range.
const noBlock = -1000

var (
	// ErrStateOutOfRange reports a shared-state id outside [0, NumSharedStates).
	ErrStateOutOfRange = errors.New("outp: state index out of range")
	// ErrBackwardLookup reports a lookup for a frame earlier than the start of
	// the state's cached block. Searches must request frames in
	// non-decreasing order per state.
	ErrBackwardLookup = errors.New("outp: lookup before start of cached block")
	// ErrFrameOutOfRange reports a frame with no observation available.
	ErrFrameOutOfRange = errors.New("outp: frame out of range")
	// ErrInvalidBlockSize reports a block size below 1.
	ErrInvalidBlockSize = errors.New("outp: block size must be >= 1")
	// ErrUnsupportedMode reports a cache mode this package does not implement.
	ErrUnsupportedMode = fmt.Errorf("outp: unsupported cache mode: %w", acoustic.ErrUnsupportedConfig)
)

// BlockScorer fills dst[i] with the log-probability of state for obs[i],
// where obs[0] is frame start. *acoustic.BlockEvaluator implements it.
type BlockScorer interface {
	ScoreBlock(obs []acoustic.Observation, start, state int, dst []float64) error
}

// ObservationSource yields the observations of the current utterance.
// acoustic.Sequence implements it.
type ObservationSource interface {
	Window(frame, n int) []acoustic.Observation
}

// Options configures a Cache.
type Options struct {
	BlockSize int
	Mode      config.CacheMode
}

// Stats holds cache hit/miss counters since the last reset.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a state-level output probability cache. It is not safe for
// concurrent use; see Locked.
type Cache struct {
	block   int
	nStates int
	scorer  BlockScorer
	src     ObservationSource

	validFrom []int     // [nStates] first frame of the cached block, noBlock if none
	validLen  []int     // [nStates] frames actually scored in the block
	scores    []float64 // [nStates*block]

	hits   uint64
	misses uint64
}

// New creates a cache sized for the shared states of ms. Mixture-level
// caching, either requested in opts or implied by tied mixtures in ms, is
// rejected here rather than at first lookup.
func New(ms *acoustic.ModelSet, scorer BlockScorer, opts Options) (*Cache, error) {
	if opts.BlockSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBlockSize, opts.BlockSize)
	}
	if opts.Mode != config.StateCache {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, opts.Mode)
	}
	if ms.NumSharedMix > 0 {
		return nil, fmt.Errorf("%w: model set ties %d mixtures across states, which needs mixture-level caching",
			ErrUnsupportedMode, ms.NumSharedMix)
	}

	n := ms.NumSharedStates()
	c := &Cache{
		block:     opts.BlockSize,
		nStates:   n,
		scorer:    scorer,
		validFrom: make([]int, n),
		validLen:  make([]int, n),
		scores:    make([]float64, n*opts.BlockSize),
	}
	c.reset()
	logrus.Infof("outp cache: %d states, block %d frames", n, c.block)
	return c, nil
}

// BlockSize returns the number of frames scored per refill.
func (c *Cache) BlockSize() int { return c.block }

// NumStates returns the number of shared states the cache covers.
func (c *Cache) NumStates() int { return c.nStates }

// Start binds the observations of a new utterance and resets the cache.
func (c *Cache) Start(src ObservationSource) {
	c.Reset()
	c.src = src
}

// Reset invalidates every cached block and zeroes the counters.
func (c *Cache) Reset() {
	if c.hits+c.misses > 0 {
		s := c.Stats()
		logrus.Debugf("outp cache: %d hits, %d misses (hit rate %.3f)", s.Hits, s.Misses, s.HitRate())
	}
	c.reset()
}

func (c *Cache) reset() {
	for i := range c.validFrom {
		c.validFrom[i] = noBlock
		c.validLen[i] = 0
	}
	c.hits, c.misses = 0, 0
}

// Stats returns the counters accumulated since the last reset.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits, Misses: c.misses}
}

// ValidFrom returns the first frame of the block cached for state, or false
// when none is cached.
func (c *Cache) ValidFrom(state int) (int, bool) {
	if state < 0 || state >= c.nStates || c.validFrom[state] == noBlock {
		return 0, false
	}
	return c.validFrom[state], true
}

// Lookup returns the scaled output log-probability of state at frame.
// Frames must be requested in non-decreasing order per state between resets.
func (c *Cache) Lookup(state, frame int) (float64, error) {
	if state < 0 || state >= c.nStates {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrStateOutOfRange, state, c.nStates)
	}
	if frame < 0 {
		return 0, fmt.Errorf("%w: %d", ErrFrameOutOfRange, frame)
	}

	n := frame - c.validFrom[state]
	if n < 0 {
		return 0, fmt.Errorf("%w: state %d frame %d, block starts at %d",
			ErrBackwardLookup, state, frame, c.validFrom[state])
	}

	off := state * c.block
	if n < c.validLen[state] {
		c.hits++
		return c.scores[off+n], nil
	}

	c.misses++
	if c.src == nil {
		return 0, fmt.Errorf("%w: no utterance bound", ErrFrameOutOfRange)
	}
	obs := c.src.Window(frame, c.block)
	if len(obs) == 0 {
		return 0, fmt.Errorf("%w: no observation for frame %d", ErrFrameOutOfRange, frame)
	}
	dst := c.scores[off : off+len(obs)]
	if err := c.scorer.ScoreBlock(obs, frame, state, dst); err != nil {
		c.validFrom[state] = noBlock
		c.validLen[state] = 0
		return 0, err
	}
	c.validFrom[state] = frame
	c.validLen[state] = len(obs)
	return dst[0], nil
}
