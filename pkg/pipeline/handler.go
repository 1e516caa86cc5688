package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SlimeAI/slime-core/pkg/telemetry"
)

const tracerName = "slime.pipeline"

// Handler is one pipeline stage, leaf or composite. Implementations embed
// Node (directly or through Container) for the structural fields and define
// Handle with their own work; containers run their children there.
//
// Execute, not Handle, is the externally invoked entry point.
type Handler interface {
	// Handle performs the node's own work.
	Handle(ctx *Context) error
	// Children returns the owned child handlers, nil for leaves.
	Children() []Handler

	ID() string
	SetID(id string)
	ExecRanks() ExecRanks
	SetExecRanks(ranks ExecRanks)
	Wrappers() *WrapperChain
	SetWrappers(wrappers ...*Wrapper)
	Parent() *Container
	VerifiedParent() *Container

	node() *Node
}

// handlerIDGen issues process-wide unique ids for handlers created without
// one. The lock keeps ids unique under concurrent node creation.
var handlerIDGen = &idCounter{}

type idCounter struct {
	mu sync.Mutex
	n  uint64
}

func (c *idCounter) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.n
	c.n++
	return v
}

// Node supplies the structural fields shared by every handler: id, exec
// ranks, wrapper chain and the weak parent back-reference. The parent edge
// is navigational only; ownership lives with the container.
type Node struct {
	id        string
	execRanks ExecRanks
	wrappers  *WrapperChain
	parent    *Container
}

func (n *Node) node() *Node { return n }

// ID returns the handler id, generating one from the process-wide counter
// on first use if none was set.
func (n *Node) ID() string {
	if n.id == "" {
		n.id = fmt.Sprintf("handler_%d", handlerIDGen.next())
	}
	return n.id
}

// SetID assigns an explicit id. Empty reverts to auto-generation.
func (n *Node) SetID(id string) { n.id = id }

// ExecRanks returns the rank filter for this node. The zero value is
// unfiltered.
func (n *Node) ExecRanks() ExecRanks { return n.execRanks }

// SetExecRanks replaces the rank filter.
func (n *Node) SetExecRanks(ranks ExecRanks) { n.execRanks = ranks }

// Wrappers returns the wrapper chain around this node, or nil.
func (n *Node) Wrappers() *WrapperChain { return n.wrappers }

// SetWrappers replaces the wrapper chain. No wrappers clears it.
func (n *Node) SetWrappers(wrappers ...*Wrapper) {
	if len(wrappers) == 0 {
		n.wrappers = nil
		return
	}
	n.wrappers = NewWrapperChain(wrappers...)
}

// Children returns nil; containers override this.
func (n *Node) Children() []Handler { return nil }

// Parent returns the recorded enclosing container, which may be stale if
// the node was moved by external code. Use VerifiedParent when acting on
// the parent's sequence.
func (n *Node) Parent() *Container { return n.parent }

// VerifiedParent returns the parent only after checking the node is still
// present in its sequence. A detached node has no parent and that is a
// normal state; only a stale pointer is worth a warning, and it is cleared
// (self-healing) and reported as absent.
func (n *Node) VerifiedParent() *Container {
	parent := n.parent
	if parent == nil {
		return nil
	}
	if parent.indexOfNode(n) < 0 {
		slog.Default().Warn("handler is not contained in its recorded parent; clearing stale reference",
			"handler_id", n.ID(),
		)
		n.parent = nil
		return nil
	}
	return parent
}

// setParent records the enclosing container. A node may have at most one
// parent; re-parenting an attached node is tolerated but logged.
func (n *Node) setParent(parent *Container) {
	if n.parent != nil && n.parent != parent {
		slog.Default().Warn("handler already has a parent; re-parenting may leave the previous container inconsistent",
			"handler_id", n.ID(),
		)
	}
	n.parent = parent
}

func (n *Node) clearParent() { n.parent = nil }

// ReplaceSelf swaps this node for h in the verified parent's sequence.
func (n *Node) ReplaceSelf(h Handler) error {
	parent, idx, err := n.locate()
	if err != nil {
		return err
	}
	parent.Replace(idx, h)
	return nil
}

// InsertBeforeSelf inserts h immediately before this node.
func (n *Node) InsertBeforeSelf(h Handler) error {
	parent, idx, err := n.locate()
	if err != nil {
		return err
	}
	parent.Insert(idx, h)
	return nil
}

// InsertAfterSelf inserts h immediately after this node.
func (n *Node) InsertAfterSelf(h Handler) error {
	parent, idx, err := n.locate()
	if err != nil {
		return err
	}
	parent.Insert(idx+1, h)
	return nil
}

// RemoveSelf detaches this node from the verified parent.
func (n *Node) RemoveSelf() error {
	parent, idx, err := n.locate()
	if err != nil {
		return err
	}
	parent.RemoveAt(idx)
	return nil
}

func (n *Node) locate() (*Container, int, error) {
	parent := n.VerifiedParent()
	if parent == nil {
		return nil, 0, fmt.Errorf("pipeline: handler %s has no verified parent", n.ID())
	}
	return parent, parent.indexOfNode(n), nil
}

// Kind returns the concrete type name of h for display and attribution.
func Kind(h Handler) string {
	t := reflect.TypeOf(h)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Display renders a handler for diagnostics as
// Kind(id=…, exec_ranks=…, wrappers=…).
func Display(h Handler) string {
	var wrappers string
	if wc := h.Wrappers(); wc != nil {
		ids := make([]string, 0, wc.Len())
		for _, w := range wc.wrapperItems() {
			ids = append(ids, w.ID())
		}
		wrappers = "[" + strings.Join(ids, ", ") + "]"
	} else {
		wrappers = "none"
	}
	return fmt.Sprintf("%s(id=%s, exec_ranks=%s, wrappers=%s)", Kind(h), h.ID(), h.ExecRanks(), wrappers)
}

// containerHandler is satisfied by every handler that embeds Container and
// therefore absorbs Break at its outer execution boundary.
type containerHandler interface {
	containerNode() *Container
}

func isContainer(h Handler) bool {
	_, ok := h.(containerHandler)
	return ok
}

// Execute runs the full execution contract for h: the wrapper chain (if
// any) is stacked around h's Handle, the body is submitted through the
// execution gate with h's rank filter, and any surfacing signal is
// normalized at this node's boundary. Containers additionally absorb Break
// here, after their wrapper scopes have unwound.
func Execute(ctx *Context, h Handler) error {
	tracer := otel.Tracer(tracerName)
	stdCtx, span := tracer.Start(ctx.StdContext(), "pipeline.handler",
		trace.WithAttributes(
			attribute.String("run.id", ctx.RunID),
			attribute.String("handler.id", h.ID()),
			attribute.String("handler.kind", Kind(h)),
		),
	)
	prev := ctx.traceCtx
	ctx.traceCtx = stdCtx
	start := time.Now()

	body := func() error { return h.Handle(ctx) }
	if wc := h.Wrappers(); wc != nil && wc.Len() > 0 {
		body = func() error { return wc.run(ctx, h) }
	}

	invoked, err := ctx.gate().Call(body, h.ExecRanks())
	err = normalize(ctx, h, err)
	if err != nil && isContainer(h) && IsBreak(err) {
		// Break is container-scoped: discard after the wrapper unwind.
		err = nil
	}

	ctx.traceCtx = prev
	duration := time.Since(start)
	outcome := classifyOutcome(err, invoked)
	span.SetAttributes(attribute.String("handler.outcome", string(outcome)))
	if err != nil && !IsContinue(err) && !IsBreak(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	telemetry.RecordHandlerExecution(stdCtx, telemetry.HandlerMetrics{
		RunID:     ctx.RunID,
		HandlerID: h.ID(),
		Kind:      Kind(h),
		Outcome:   outcome,
		Duration:  duration,
	})
	telemetry.Default().ObserveExecution(Kind(h), string(outcome), duration)

	return err
}

// normalize applies the node-boundary signal rules: Terminate is stamped
// with the innermost origin, Continue/Break pass through, wrapper failures
// are logged and demoted to a HandlerError owned by this node, existing
// HandlerErrors pass unchanged, and anything else becomes a HandlerError
// attributed to this node.
func normalize(ctx *Context, h Handler, err error) error {
	if err == nil {
		return nil
	}
	if IsContinue(err) || IsBreak(err) {
		return err
	}
	if t, ok := AsTerminate(err); ok {
		if t.Origin == "" {
			t.Origin = h.ID()
		}
		return err
	}
	var we *wrapperError
	if errors.As(err, &we) {
		ctx.log().Error("wrapper phase failed; attributing to owning handler",
			"handler_id", h.ID(),
			"wrapper_id", we.WrapperID,
			"error", we.Err,
		)
		return &HandlerError{HandlerID: h.ID(), Kind: Kind(h), Err: we.Err}
	}
	if _, ok := AsHandlerError(err); ok {
		return err
	}
	return &HandlerError{HandlerID: h.ID(), Kind: Kind(h), Err: err}
}

func classifyOutcome(err error, invoked bool) telemetry.Outcome {
	switch {
	case err == nil && !invoked:
		return telemetry.OutcomeSkipped
	case err == nil:
		return telemetry.OutcomeSuccess
	case IsContinue(err):
		return telemetry.OutcomeContinue
	case IsBreak(err):
		return telemetry.OutcomeBreak
	default:
		if _, ok := AsTerminate(err); ok {
			return telemetry.OutcomeTerminate
		}
		return telemetry.OutcomeFailure
	}
}

// Run executes the assembled tree for phase. A Continue or Break with no
// absorbing container is a usage error: it is logged and the run reports
// success. Terminate and failures are returned to the caller.
func Run(ctx *Context, phase Phase) error {
	root := ctx.Root(phase)
	if root == nil {
		return fmt.Errorf("pipeline: no handler tree assembled for phase %q", phase)
	}

	tracer := otel.Tracer(tracerName)
	stdCtx, span := tracer.Start(ctx.StdContext(), "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", ctx.RunID),
			attribute.String("phase", string(phase)),
		),
	)
	prev := ctx.traceCtx
	ctx.traceCtx = stdCtx
	defer func() {
		ctx.traceCtx = prev
		span.End()
	}()

	ctx.log().Info("executing pipeline",
		"run_id", ctx.RunID,
		"phase", string(phase),
		"root_id", root.ID(),
	)

	err := Execute(ctx, root)
	if err != nil && (IsContinue(err) || IsBreak(err)) {
		ctx.log().Warn("control signal escaped the handler tree; no enclosing container absorbed it",
			"run_id", ctx.RunID,
			"signal", err.Error(),
		)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// FuncHandler adapts a function into a leaf handler.
type FuncHandler struct {
	Node
	Fn func(ctx *Context) error
}

// NewFuncHandler creates a leaf running fn, with an auto-generated id.
func NewFuncHandler(fn func(ctx *Context) error) *FuncHandler {
	return &FuncHandler{Fn: fn}
}

func (h *FuncHandler) Handle(ctx *Context) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(ctx)
}
