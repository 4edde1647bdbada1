package eds

import "errors"

// Sentinel errors for the dataset core. Callers test with errors.Is; the
// builders wrap these with context about the offending input.
var (
	// ErrMissingMetadata means a required physics parameter is absent
	// from the dataset metadata before a dictionary build.
	ErrMissingMetadata = errors.New("missing metadata")

	// ErrShapeMismatch means a constraint matrix disagrees with the
	// dictionary column count or the spatial shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidRange means a pinned value lies outside [0,1] or a
	// spatial constraint kind is unknown.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNoGroundTruth means ground truth was requested but the dataset
	// carries none.
	ErrNoGroundTruth = errors.New("no ground truth in dataset")
)
