package neat

import "errors"

// Error kinds surfaced by the evolutionary core. Callers test for them with
// errors.Is; the concrete error usually carries extra context via wrapping.
var (
	// ErrInvalidTopology reports a structural mutation that would violate a
	// genome invariant: a duplicate edge, a disallowed cycle, or a reference
	// to a node the genome does not own. The rejected operation leaves the
	// genome unchanged, so callers may retry with a different structural
	// choice or skip the mutation attempt.
	ErrInvalidTopology = errors.New("neat: invalid topology")

	// ErrShapeMismatch reports an activation input vector whose length does
	// not match the network's input layer.
	ErrShapeMismatch = errors.New("neat: input shape mismatch")

	// ErrRegistryConflict reports an inconsistent registration in the
	// innovation tracker. It indicates a broken invariant that would corrupt
	// all subsequent crossover and is not recoverable; a run observing it
	// must terminate.
	ErrRegistryConflict = errors.New("neat: innovation registry conflict")
)
