// Package arenaerr defines the sentinel error kinds spec.md §7
// recognises, so callers can classify a failure with errors.Is instead
// of string matching.
package arenaerr

import "errors"

var (
	// ErrPrecondition marks an operation invoked outside its required
	// state (start without a created session, dca without a position).
	ErrPrecondition = errors.New("arena: precondition violation")

	// ErrUpstreamData marks a market data fetch failure. The caller
	// retains its previous snapshot.
	ErrUpstreamData = errors.New("arena: upstream market data unavailable")

	// ErrUpstreamModel marks a language-model call failure or timeout.
	// Never fatal: the decision engine falls back to tier 1.
	ErrUpstreamModel = errors.New("arena: upstream model error")

	// ErrPersistence marks a store write/read failure. Never aborts a
	// tick; retried on the next flush cadence.
	ErrPersistence = errors.New("arena: persistence error")

	// ErrInvalidStrategy exists for completeness with spec.md §7's
	// taxonomy. The validator never actually returns it — malformed
	// strategy blobs are coerced, not rejected.
	ErrInvalidStrategy = errors.New("arena: invalid strategy blob")

	// ErrFatalInvariant marks a violation severe enough that only the
	// offending agent is killed; the session continues.
	ErrFatalInvariant = errors.New("arena: fatal invariant violation")
)
