package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Phase is one pipeline lifecycle stage for which the handler tree is
// (re)assembled.
type Phase string

const (
	PhaseTrain   Phase = "train"
	PhaseEval    Phase = "eval"
	PhasePredict Phase = "predict"
)

// HookSet groups the collaborators that participate in tree assembly and
// execution gating.
type HookSet struct {
	// Launch gates handler bodies by rank and brackets assembly outermost.
	Launch LaunchHook
	// Plugins contribute assembly fragments between Launch and Build.
	Plugins *PluginSet
	// Build performs the actual tree mutation for a phase.
	Build BuildHook
}

// Context is the execution environment threaded through every handler call.
// It is created once per pipeline run, mutated in place by the build
// bracket, and never copied during execution.
type Context struct {
	// RunID identifies this pipeline run in logs and telemetry.
	RunID string
	// Logger receives engine diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
	// Hooks holds the launch, plugin and build collaborators.
	Hooks HookSet
	// Variables is a free-form bag shared by handlers within a run.
	Variables map[string]any

	roots    map[Phase]*Container
	traceCtx context.Context
}

// NewContext creates a run context with a fresh run id.
func NewContext(logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		RunID:     uuid.NewString(),
		Logger:    logger,
		Variables: make(map[string]any),
		roots:     make(map[Phase]*Container),
		traceCtx:  context.Background(),
	}
}

// Root returns the assembled handler tree for phase, or nil if the phase has
// not been built.
func (c *Context) Root(phase Phase) *Container {
	return c.roots[phase]
}

// SetRoot installs (or replaces) the handler tree for phase. Build hooks
// call this during the assembly bracket.
func (c *Context) SetRoot(phase Phase, root *Container) {
	if c.roots == nil {
		c.roots = make(map[Phase]*Container)
	}
	c.roots[phase] = root
}

// StdContext returns the context.Context used for tracing and metrics.
func (c *Context) StdContext() context.Context {
	if c.traceCtx == nil {
		return context.Background()
	}
	return c.traceCtx
}

// SetStdContext attaches a context.Context carrying deadlines or trace
// state from the caller.
func (c *Context) SetStdContext(ctx context.Context) {
	c.traceCtx = ctx
}

func (c *Context) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) gate() Gate {
	if c.Hooks.Launch != nil {
		return c.Hooks.Launch
	}
	return passGate{}
}
