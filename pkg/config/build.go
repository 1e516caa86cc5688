package config

import (
	"fmt"

	"github.com/SlimeAI/slime-core/pkg/pipeline"
	"github.com/SlimeAI/slime-core/pkg/registry"
)

// HandlerFactory builds a handler from its spec config block.
type HandlerFactory func(cfg map[string]any) (pipeline.Handler, error)

// WrapperFactory builds a wrapper from its spec config block.
type WrapperFactory func(cfg map[string]any) (*pipeline.Wrapper, error)

// Handlers maps handler kinds to factories.
var Handlers = registry.New[string, HandlerFactory]("config.handlers")

// Wrappers maps wrapper kinds to factories.
var Wrappers = registry.New[string, WrapperFactory]("config.wrappers")

// TreeBuilder assembles handler trees from a spec. It is the build hook
// installed into the run context's assembly bracket.
type TreeBuilder struct {
	spec *Spec
}

// NewTreeBuilder creates a build hook over spec.
func NewTreeBuilder(spec *Spec) *TreeBuilder {
	return &TreeBuilder{spec: spec}
}

// SetSpec swaps the spec used by subsequent builds, e.g. after a file
// provider republishes.
func (b *TreeBuilder) SetSpec(spec *Spec) { b.spec = spec }

// BuildPhase constructs the handler tree for phase and installs it as the
// context's root.
func (b *TreeBuilder) BuildPhase(ctx *pipeline.Context, phase pipeline.Phase) error {
	if b.spec == nil {
		return fmt.Errorf("config: tree builder has no spec")
	}
	ps, ok := b.spec.Phases[string(phase)]
	if !ok {
		return fmt.Errorf("config: phase %q not declared", phase)
	}

	children := make([]pipeline.Handler, 0, len(ps.Handlers))
	for i := range ps.Handlers {
		h, err := buildHandler(&ps.Handlers[i])
		if err != nil {
			return err
		}
		children = append(children, h)
	}

	root := pipeline.NewContainer(children...)
	root.SetID(fmt.Sprintf("root_%s", phase))
	ctx.SetRoot(phase, root)
	return nil
}

func buildHandler(spec *HandlerSpec) (pipeline.Handler, error) {
	var h pipeline.Handler
	if len(spec.Children) > 0 {
		children := make([]pipeline.Handler, 0, len(spec.Children))
		for i := range spec.Children {
			child, err := buildHandler(&spec.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if spec.Kind == "container" {
			h = pipeline.NewContainer(children...)
		} else {
			built, err := buildLeaf(spec)
			if err != nil {
				return nil, err
			}
			container, ok := built.(interface{ SetChildren(...pipeline.Handler) })
			if !ok {
				return nil, fmt.Errorf("config: handler kind %q cannot hold children", spec.Kind)
			}
			container.SetChildren(children...)
			h = built
		}
	} else if spec.Kind == "container" {
		h = pipeline.NewContainer()
	} else {
		built, err := buildLeaf(spec)
		if err != nil {
			return nil, err
		}
		h = built
	}

	if spec.ID != "" {
		h.SetID(spec.ID)
	}
	h.SetExecRanks(spec.ExecRanks.Ranks())

	if len(spec.Wrappers) > 0 {
		wrappers := make([]*pipeline.Wrapper, 0, len(spec.Wrappers))
		for i := range spec.Wrappers {
			w, err := buildWrapper(&spec.Wrappers[i])
			if err != nil {
				return nil, err
			}
			wrappers = append(wrappers, w)
		}
		h.SetWrappers(wrappers...)
	}
	return h, nil
}

func buildLeaf(spec *HandlerSpec) (pipeline.Handler, error) {
	factory, ok := Handlers.Get(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("config: unknown handler kind %q (registered: %v)", spec.Kind, Handlers.Keys())
	}
	h, err := factory(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("config: build handler kind %q: %w", spec.Kind, err)
	}
	return h, nil
}

func buildWrapper(spec *WrapperSpec) (*pipeline.Wrapper, error) {
	factory, ok := Wrappers.Get(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("config: unknown wrapper kind %q (registered: %v)", spec.Kind, Wrappers.Keys())
	}
	w, err := factory(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("config: build wrapper kind %q: %w", spec.Kind, err)
	}
	if spec.ID != "" {
		w.SetID(spec.ID)
	}
	return w, nil
}
