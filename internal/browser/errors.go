// internal/browser/errors.go
package browser

import (
	"fmt"
	"time"
)

// Typed errors let step code and the godog run classify failures with errors.As
// instead of matching on message text.

// TimeoutError reports a condition that did not hold within its bound.
type TimeoutError struct {
	Condition string
	Elapsed   time.Duration
	// LastErr is the most recent transient error seen while polling, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Elapsed.Round(time.Millisecond), e.Condition)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

// Unwrap exposes the last polling error.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(condition string, elapsed time.Duration, lastErr error) *TimeoutError {
	return &TimeoutError{Condition: condition, Elapsed: elapsed, LastErr: lastErr}
}

// ElementNotFoundError is returned when a selector, optionally narrowed by a
// matcher, yields no element.
type ElementNotFoundError struct {
	Selector string
	Matcher  string
}

func (e *ElementNotFoundError) Error() string {
	if e.Matcher == "" {
		return fmt.Sprintf("element not found matching selector '%s'", e.Selector)
	}
	return fmt.Sprintf("element not found matching selector '%s' where %s", e.Selector, e.Matcher)
}

// NewElementNotFoundError creates a new ElementNotFoundError.
func NewElementNotFoundError(selector, matcher string) *ElementNotFoundError {
	return &ElementNotFoundError{Selector: selector, Matcher: matcher}
}

// NavigationError represents a failure during a page navigation attempt.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to '%s' failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
