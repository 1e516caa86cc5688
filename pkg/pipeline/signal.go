package pipeline

import (
	"errors"
	"fmt"
)

// Control signals are intentional flow-control values, not failures. They
// share the error channel so they can cross handler boundaries, but every
// absorption point inspects the concrete variant explicitly instead of
// relying on where the value happens to be caught.
var (
	// Continue stops the nearest enclosing container's child iteration and
	// lets that container complete normally.
	Continue = &controlSignal{name: "continue"}
	// Break stops the nearest enclosing container after that container's own
	// wrapper scopes have observed it on their failure path.
	Break = &controlSignal{name: "break"}
)

type controlSignal struct {
	name string
}

func (s *controlSignal) Error() string {
	return "pipeline: " + s.name + " signal"
}

// IsContinue reports whether err is (or wraps) the Continue signal.
func IsContinue(err error) bool {
	return errors.Is(err, Continue)
}

// IsBreak reports whether err is (or wraps) the Break signal.
func IsBreak(err error) bool {
	return errors.Is(err, Break)
}

// Terminate is a deliberate request to stop the whole tree. It is never
// absorbed by containers; it propagates to the top-level caller. Origin is
// stamped by the innermost handler it passes through and never overwritten.
type Terminate struct {
	Origin string
	Reason string
}

// NewTerminate creates a Terminate signal with an unset origin. The engine
// attributes it to the raising handler on the way out.
func NewTerminate(reason string) *Terminate {
	return &Terminate{Reason: reason}
}

func (t *Terminate) Error() string {
	origin := t.Origin
	if origin == "" {
		origin = "<unattributed>"
	}
	return fmt.Sprintf("pipeline: terminate from %s: %s", origin, t.Reason)
}

// AsTerminate extracts a *Terminate from err.
func AsTerminate(err error) (*Terminate, bool) {
	var t *Terminate
	ok := errors.As(err, &t)
	return t, ok
}

// HandlerError is a failure attributed to the innermost handler that first
// converted a raw error. Outer handlers re-raise it unchanged, so the
// attribution always points at the origin of the failure.
type HandlerError struct {
	HandlerID string
	Kind      string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("pipeline: handler %s (%s) failed: %v", e.HandlerID, e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// AsHandlerError extracts a *HandlerError from err.
func AsHandlerError(err error) (*HandlerError, bool) {
	var he *HandlerError
	ok := errors.As(err, &he)
	return he, ok
}

// wrapperError marks an unexpected error raised by a wrapper's before or
// after phase. It is transient: the node owning the failing wrapper logs it
// and demotes it to a *HandlerError attributed to the node itself, so it is
// never observed outside the engine.
type wrapperError struct {
	WrapperID string
	Kind      string
	Err       error
}

func (e *wrapperError) Error() string {
	return fmt.Sprintf("pipeline: wrapper %s (%s) failed: %v", e.WrapperID, e.Kind, e.Err)
}

func (e *wrapperError) Unwrap() error {
	return e.Err
}

// isEngineSignal reports whether err already belongs to the engine's closed
// signal taxonomy and must pass through conversion points unchanged.
func isEngineSignal(err error) bool {
	if IsContinue(err) || IsBreak(err) {
		return true
	}
	if _, ok := AsTerminate(err); ok {
		return true
	}
	if _, ok := AsHandlerError(err); ok {
		return true
	}
	var we *wrapperError
	return errors.As(err, &we)
}
