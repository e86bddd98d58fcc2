package feed

import (
	"errors"
	"fmt"

	"github.com/umputun/socialfeed/pkg/domain"
)

// ErrUnsupportedSource reported when no adapter is registered for a source.
var ErrUnsupportedSource = errors.New("unsupported source")

// FeedError wraps a transport failure or a malformed upstream response. A
// well-formed response missing the expected item path raises it too, "no
// items" is never silently conflated with "broken response".
type FeedError struct {
	Source domain.Source
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s feed: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s feed: %s", e.Source, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *FeedError) Unwrap() error { return e.Err }

func feedErr(source domain.Source, reason string) *FeedError {
	return &FeedError{Source: source, Reason: reason}
}

func feedErrWrap(source domain.Source, reason string, err error) *FeedError {
	return &FeedError{Source: source, Reason: reason, Err: err}
}

// ConfigError reports missing or invalid source credentials. Raised at query
// construction time, fatal to the operation and never retried.
type ConfigError struct {
	Source domain.Source
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Source, e.Reason)
}
