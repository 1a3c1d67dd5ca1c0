package reorder

import (
	"errors"
	"fmt"

	"github.com/roach88/reorder/internal/catalog"
)

// BatchError reports a batch that was rejected because some of its ids could
// not be resolved. Nothing was written.
type BatchError struct {
	Kind   catalog.Kind
	Parent string
	Errors []catalog.ResolveError
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("reorder %s %s: batch rejected", e.Kind, e.Parent)
	case 1:
		return fmt.Sprintf("reorder %s %s: %s", e.Kind, e.Parent, e.Errors[0].Error())
	default:
		return fmt.Sprintf("reorder %s %s: %d unresolved ids, first: %s",
			e.Kind, e.Parent, len(e.Errors), e.Errors[0].Error())
	}
}

// AsBatchError extracts the BatchError from err, if any.
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
