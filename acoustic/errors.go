package acoustic

import "errors"

var (
	// ErrDimensionMismatch reports a feature vector whose width differs from
	// the stream width the model set was built for.
	ErrDimensionMismatch = errors.New("acoustic: feature dimension mismatch")
	// ErrUnsupportedConfig reports a model/configuration pairing that this
	// package cannot score correctly.
	ErrUnsupportedConfig = errors.New("acoustic: unsupported configuration")
	// ErrUnknownState reports a shared-state index outside the model set.
	ErrUnknownState = errors.New("acoustic: unknown shared state")
	// ErrInvalidModel reports a structurally broken model set.
	ErrInvalidModel = errors.New("acoustic: invalid model set")
)
