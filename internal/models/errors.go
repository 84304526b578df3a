package models

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy for the query engine. Handlers match with errors.Is and
// wrap with fmt.Errorf("...: %w", err) to add detail.
var (
	// ErrInvalidArgument rejects malformed or out-of-range request fields
	// before any I/O happens.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSymbolNotFound means no bars exist for the requested symbol.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInsufficientData means the structured window holds too few bars
	// for the requested computation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDependencyTimeout means a collaborator call exceeded its deadline.
	// Retriable by the caller; the engine itself does not retry.
	ErrDependencyTimeout = errors.New("dependency timeout")

	// ErrDependencyUnavailable means a collaborator was unreachable or failed.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// WrapDependency classifies a collaborator failure into the taxonomy,
// keeping the dependency name and underlying cause in the message.
func WrapDependency(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrDependencyTimeout, name, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, name, err)
}
