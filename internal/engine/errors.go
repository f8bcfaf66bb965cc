package engine

import "errors"

// Pipeline error taxonomy. Evaluator degradation and evidence unavailability
// are absorbed into lowered confidence and never surface as errors; only
// these three reach the caller.
var (
	// ErrInvalidSignal rejects malformed input before any analysis work.
	ErrInvalidSignal = errors.New("invalid threat signal")

	// ErrTemplateMissing indicates a (category, severity) pair with neither a
	// specific nor a fallback response template. Caught at construction time.
	ErrTemplateMissing = errors.New("response template missing")

	// ErrTimelineOrder indicates the reconstructed timeline came out with a
	// decreasing timestamp, which means an upstream timing bug rather than
	// bad input.
	ErrTimelineOrder = errors.New("timeline ordering violated")
)
