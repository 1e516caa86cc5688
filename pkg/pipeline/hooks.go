package pipeline

import "fmt"

// PhaseHook brackets tree assembly for one phase. BeforeBuild opens the
// scope; AfterBuild closes it and observes the bracket's failure, if any.
// AfterBuild runs exactly once for every successful BeforeBuild, on every
// exit path.
type PhaseHook interface {
	BeforeBuild(ctx *Context, phase Phase) error
	AfterBuild(ctx *Context, phase Phase, failure error) error
}

// BuildHook performs the innermost assembly step: it mutates ctx's handler
// tree for the given phase.
type BuildHook interface {
	BuildPhase(ctx *Context, phase Phase) error
}

// LaunchHook is the rank-resolution collaborator: it gates handler bodies
// during execution and brackets assembly as the outermost scope.
type LaunchHook interface {
	Gate
	PhaseHook
	// DeviceInfo describes the running environment for diagnostics, e.g.
	// concrete devices in single-process mode or rank/world-size when
	// distributed.
	DeviceInfo(ctx *Context) string
}

// PluginSet is an ordered collection of plugin hooks. Its before phase fans
// out in registration order and its after phase unwinds in reverse, so the
// whole set behaves as a single scope inside the assembly bracket.
type PluginSet struct {
	plugins []PhaseHook
}

// NewPluginSet creates a plugin set with the given hooks in order.
func NewPluginSet(plugins ...PhaseHook) *PluginSet {
	s := &PluginSet{}
	for _, p := range plugins {
		s.Register(p)
	}
	return s
}

// Register appends a plugin hook. Registration order is execution order.
func (s *PluginSet) Register(p PhaseHook) {
	if p == nil {
		return
	}
	s.plugins = append(s.plugins, p)
}

// Len returns the number of registered plugins.
func (s *PluginSet) Len() int { return len(s.plugins) }

// BeforeBuild opens each plugin scope in registration order. If a plugin
// fails to open, the scopes already opened are closed in reverse order with
// the failure before the error is returned.
func (s *PluginSet) BeforeBuild(ctx *Context, phase Phase) error {
	for i, p := range s.plugins {
		if err := p.BeforeBuild(ctx, phase); err != nil {
			failure := fmt.Errorf("plugin %d before-build: %w", i, err)
			s.closeFrom(ctx, phase, i-1, failure)
			return failure
		}
	}
	return nil
}

// AfterBuild closes every plugin scope in reverse registration order. The
// first close error is returned; later ones are logged so the unwind always
// completes.
func (s *PluginSet) AfterBuild(ctx *Context, phase Phase, failure error) error {
	return s.closeFrom(ctx, phase, len(s.plugins)-1, failure)
}

func (s *PluginSet) closeFrom(ctx *Context, phase Phase, from int, failure error) error {
	var first error
	for i := from; i >= 0; i-- {
		if err := s.plugins[i].AfterBuild(ctx, phase, failure); err != nil {
			if first == nil {
				first = fmt.Errorf("plugin %d after-build: %w", i, err)
			} else {
				ctx.log().Error("plugin after-build failed during unwind",
					"plugin_index", i,
					"phase", string(phase),
					"error", err,
				)
			}
		}
	}
	return first
}

// NopPhaseHook is a PhaseHook with empty before and after phases. Embed it
// to implement only the hooks you need.
type NopPhaseHook struct{}

func (NopPhaseHook) BeforeBuild(*Context, Phase) error       { return nil }
func (NopPhaseHook) AfterBuild(*Context, Phase, error) error { return nil }

// PhaseHookFuncs adapts plain functions into a PhaseHook. Nil functions are
// treated as no-ops.
type PhaseHookFuncs struct {
	Before func(ctx *Context, phase Phase) error
	After  func(ctx *Context, phase Phase, failure error) error
}

func (f PhaseHookFuncs) BeforeBuild(ctx *Context, phase Phase) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(ctx, phase)
}

func (f PhaseHookFuncs) AfterBuild(ctx *Context, phase Phase, failure error) error {
	if f.After == nil {
		return nil
	}
	return f.After(ctx, phase, failure)
}

// BuildFunc adapts a function into a BuildHook.
type BuildFunc func(ctx *Context, phase Phase) error

func (f BuildFunc) BuildPhase(ctx *Context, phase Phase) error {
	return f(ctx, phase)
}
