package loader

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrTimeout is the cause of a session that exceeded Options.Timeout.
	ErrTimeout = errors.New("loader: session timed out")

	// ErrNoFetcher is returned by New without a fetcher.
	ErrNoFetcher = errors.New("loader: fetcher is required")
)

// FetchError reports a resource that could not be retrieved or linked.
type FetchError struct {
	// Module is the resource name.
	Module string

	// URL is the requested location.
	URL string

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int

	// Op is "fetch" for the side channel or "link" for the document.
	Op string

	// Err is the underlying error, if any.
	Err error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error loading %s (%s %s): %v", e.Module, e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("error loading %s (%s %s): status %d", e.Module, e.Op, e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StallError reports a session that can make no further progress: nothing
// is in flight but some resources are not finished.
type StallError struct {
	// Failed maps resources whose acquisition failed to the failure.
	Failed map[string]error

	// Blocked lists resources that never started because a prerequisite
	// did not finish.
	Blocked []string
}

func (e *StallError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for n := range e.Failed {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("loader: session stalled")
	if len(names) > 0 {
		fmt.Fprintf(&b, ": failed [%s]", strings.Join(names, ", "))
	}
	if len(e.Blocked) > 0 {
		fmt.Fprintf(&b, ": blocked [%s]", strings.Join(e.Blocked, ", "))
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *StallError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
