package models

import "errors"

// Domain error sentinels. Callers match with errors.Is and translate to
// structured per-item results; none of these terminate a batch.
var (
	// ErrUnmappedIndicator marks an event whose indicator key has no
	// mapping rule in the active registry snapshot.
	ErrUnmappedIndicator = errors.New("indicator key is not mapped")

	// ErrScoreOutOfRange marks a raw score outside the accepted input bound.
	ErrScoreOutOfRange = errors.New("raw score out of range")

	// ErrBadTimestamp marks an unparseable or implausible observed_at.
	ErrBadTimestamp = errors.New("invalid observed_at timestamp")

	// ErrInvalidSnapshot marks a mapping document that failed whole-snapshot
	// validation. The previous snapshot stays active.
	ErrInvalidSnapshot = errors.New("invalid mapping snapshot")

	// ErrStaleVersion marks a publish attempt with a version not newer than
	// the currently published one.
	ErrStaleVersion = errors.New("publish version is stale")

	// ErrInvariantViolation marks a computed value that is NaN, infinite or
	// otherwise impossible. The affected asset keeps its previous score.
	ErrInvariantViolation = errors.New("computation invariant violated")
)
