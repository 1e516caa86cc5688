package pipeline

// Decision is a wrapper before-phase verdict.
type Decision int

const (
	// Proceed lets the wrapped execution continue inward.
	Proceed Decision = iota
	// Skip short-circuits: the wrapped node and all not-yet-opened inner
	// scopes are never invoked; already-opened scopes still close normally.
	Skip
)

// WrapperHook supplies the two-phase middleware lifecycle. Each wrapper
// suspends exactly once, so the pair replaces the original single-yield
// generator protocol: Before opens the scope, After closes it on every
// exit path.
//
// After receives the current outcome (nil on the success path) and returns
// the outcome to propagate: return it unchanged to observe, nil to swallow,
// or a different error to convert.
type WrapperHook interface {
	Before(ctx *Context, wrapped Handler) (Decision, error)
	After(ctx *Context, wrapped Handler, outcome error) error
}

// WrapperFuncs adapts plain functions into a WrapperHook. A nil Before
// proceeds; a nil After propagates the outcome unchanged.
type WrapperFuncs struct {
	BeforeFn func(ctx *Context, wrapped Handler) (Decision, error)
	AfterFn  func(ctx *Context, wrapped Handler, outcome error) error
}

func (f WrapperFuncs) Before(ctx *Context, wrapped Handler) (Decision, error) {
	if f.BeforeFn == nil {
		return Proceed, nil
	}
	return f.BeforeFn(ctx, wrapped)
}

func (f WrapperFuncs) After(ctx *Context, wrapped Handler, outcome error) error {
	if f.AfterFn == nil {
		return outcome
	}
	return f.AfterFn(ctx, wrapped, outcome)
}

// Wrapper is middleware with a before/after lifecycle around another
// handler's execution. It is itself a container: used as a plain tree node
// it brackets its own children, which is mainly useful for nesting further
// wrappers.
type Wrapper struct {
	Container
	hook WrapperHook
}

// NewWrapper creates a wrapper driven by hook, optionally owning children
// for the plain-container mode.
func NewWrapper(hook WrapperHook, children ...Handler) *Wrapper {
	w := &Wrapper{hook: hook}
	w.SetChildren(children...)
	return w
}

// WrapFuncs creates a wrapper from bare before/after functions.
func WrapFuncs(
	before func(ctx *Context, wrapped Handler) (Decision, error),
	after func(ctx *Context, wrapped Handler, outcome error) error,
) *Wrapper {
	return NewWrapper(WrapperFuncs{BeforeFn: before, AfterFn: after})
}

// Hook returns the wrapper's lifecycle hook.
func (w *Wrapper) Hook() WrapperHook { return w.hook }

// open and close tolerate a nil hook: such a wrapper is transparent, both
// in a chain and as a plain tree node.
func (w *Wrapper) open(ctx *Context, wrapped Handler) (Decision, error) {
	if w.hook == nil {
		return Proceed, nil
	}
	return w.hook.Before(ctx, wrapped)
}

func (w *Wrapper) close(ctx *Context, wrapped Handler, outcome error) error {
	if w.hook == nil {
		return outcome
	}
	return w.hook.After(ctx, wrapped, outcome)
}

// Handle runs the wrapper as a normal container node: its own before/after
// phases bracket the child iteration, with wrapped set to the wrapper
// itself. Phase errors here are ordinary handler errors, not wrapper
// failures, because the wrapper is acting as the node that owns them.
func (w *Wrapper) Handle(ctx *Context) error {
	dec, err := w.open(ctx, w)
	if err != nil {
		return err
	}
	var outcome error
	if dec != Skip {
		outcome = w.Container.Handle(ctx)
	}
	return w.close(ctx, w, outcome)
}

// WrapperChain is an ordered collection of wrappers all wrapping the same
// node, applied in onion order: the first wrapper is outermost.
type WrapperChain struct {
	Container
}

// NewWrapperChain creates a chain owning the given wrappers in order.
func NewWrapperChain(wrappers ...*Wrapper) *WrapperChain {
	c := &WrapperChain{}
	hs := make([]Handler, 0, len(wrappers))
	for _, w := range wrappers {
		if w == nil {
			continue
		}
		hs = append(hs, w)
	}
	c.SetChildren(hs...)
	return c
}

func (c *WrapperChain) wrapperItems() []*Wrapper {
	out := make([]*Wrapper, 0, len(c.children))
	for _, child := range c.children {
		if w, ok := child.(*Wrapper); ok {
			out = append(out, w)
		}
	}
	return out
}

// run opens the wrapper scopes outer to inner around a single call to the
// wrapped node's Handle, then closes every opened scope inner to outer on
// every exit path. This is an explicit LIFO scope stack: opened-scope count
// always equals closed-scope count.
func (c *WrapperChain) run(ctx *Context, wrapped Handler) error {
	wrappers := c.wrapperItems()
	opened := make([]*Wrapper, 0, len(wrappers))

	var failure error
	skipped := false
	for _, w := range wrappers {
		dec, err := w.open(ctx, wrapped)
		if err != nil {
			// A scope whose open fails was never entered and is not closed.
			if isEngineSignal(err) {
				failure = err
			} else {
				failure = &wrapperError{WrapperID: w.ID(), Kind: Kind(w), Err: err}
			}
			break
		}
		// The scope is open even when it signals skip; it still closes below.
		opened = append(opened, w)
		if dec == Skip {
			skipped = true
			break
		}
	}

	outcome := failure
	if failure == nil && !skipped {
		outcome = wrapped.Handle(ctx)
	}

	for i := len(opened) - 1; i >= 0; i-- {
		w := opened[i]
		next := w.close(ctx, wrapped, outcome)
		switch {
		case next == nil:
			outcome = nil
		case next == outcome || isEngineSignal(next):
			outcome = next
		default:
			// The after phase raised something of its own: attribute it to
			// this wrapper until the owning node demotes it.
			outcome = &wrapperError{WrapperID: w.ID(), Kind: Kind(w), Err: next}
		}
	}
	return outcome
}
