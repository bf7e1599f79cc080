package scraper

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("element not found")

// FetchError is a transport failure or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports an expected page element that is missing.
type NotFoundError struct {
	URL     string
	Element string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %s", e.Element, e.URL)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IdentificationError means a priority-vote page matched zero or several
// party names. The page is never attributed to a guessed party.
type IdentificationError struct {
	URL     string
	Matches []string
}

func (e *IdentificationError) Ambiguous() bool { return len(e.Matches) > 1 }

func (e *IdentificationError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no party name from the canonical list found at %s", e.URL)
	}
	return fmt.Sprintf("multiple party names found at %s: [%s], expected only one",
		e.URL, strings.Join(e.Matches, "; "))
}

// InvariantViolationError means the priority-vote column no longer lists
// every total twice. It aborts the whole run.
type InvariantViolationError struct {
	URL   string
	Party string
	Max   int
	Sum   int
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("priority votes at %s for %q: max %d is not half of sum %d",
		e.URL, e.Party, e.Max, e.Sum)
}

// SchemaError reports a table whose layout does not match the expected columns.
type SchemaError struct {
	URL    string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected table layout at %s: %s", e.URL, e.Reason)
}

// IsRunFatal reports whether err must terminate the whole run.
func IsRunFatal(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}
