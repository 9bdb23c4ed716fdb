package engine

import (
	"context"

	"github.com/filterql/filterql/errorsx"
)

// checkCancelled returns a CancelledError if ctx has been cancelled,
// checked between sub-queries rather than mid-query so a single fetch is
// never left half-applied (spec.md §5, "Cancellation").
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errorsx.NewCancelledError("%v", ctx.Err())
	default:
		return nil
	}
}
