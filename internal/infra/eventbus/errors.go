package eventbus

import (
	"errors"
	"fmt"
)

// HandlerError is the failure of a single handler during Publish.
type HandlerError struct {
	Index          int
	SubscriptionID uint64
	Err            error
	Panic          bool
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d: %v", e.Index, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PublishError aggregates the handler failures of one Publish call.
// Handlers that did not fail still ran.
type PublishError struct {
	EventType string
	EventID   string
	Handlers  int
	Failures  []*HandlerError
}

func (e *PublishError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("eventbus: publish %s failed", e.EventType)
	}
	return fmt.Sprintf("eventbus: %d of %d handlers failed for %s: %v",
		len(e.Failures), e.Handlers, e.EventType, e.Failures[0])
}

// Unwrap exposes every handler failure to errors.Is and errors.As.
func (e *PublishError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// IsPublishError reports whether err carries handler failures rather than a
// failure to publish at all.
func IsPublishError(err error) bool {
	var target *PublishError
	return errors.As(err, &target)
}
