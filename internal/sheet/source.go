package sheet

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks a transient failure to retrieve a sheet (network,
// auth, missing tab). Callers treat it as a per-continent failure.
var ErrUnavailable = errors.New("sheet unavailable")

// Source retrieves the raw cell grid of one spreadsheet tab. Row 0 is the
// header row.
type Source interface {
	Fetch(ctx context.Context, label string) ([][]string, error)
}

// FetchError wraps a retrieval failure for a single tab.
type FetchError struct {
	Label string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch sheet %q: %v", e.Label, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes every FetchError match ErrUnavailable.
func (e *FetchError) Is(target error) bool { return target == ErrUnavailable }
