// Package config declares the YAML pipeline specification and loads it into
// handler trees through registered factories. A file provider watches the
// spec for edits and republishes parsed snapshots.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SlimeAI/slime-core/pkg/pipeline"
)

// Spec is the root of a pipeline configuration file.
type Spec struct {
	// Phases maps phase names to their handler trees.
	Phases map[string]PhaseSpec `yaml:"phases"`
}

// PhaseSpec declares the root-level handlers assembled for one phase.
type PhaseSpec struct {
	Handlers []HandlerSpec `yaml:"handlers"`
}

// HandlerSpec declares one handler node.
type HandlerSpec struct {
	// Kind selects the registered factory.
	Kind string `yaml:"kind"`
	// ID is optional; absent ids are generated at build time.
	ID string `yaml:"id,omitempty"`
	// ExecRanks restricts execution ranks. Absent means unfiltered.
	ExecRanks *RanksSpec `yaml:"exec_ranks,omitempty"`
	// Wrappers are applied in order, first outermost.
	Wrappers []WrapperSpec `yaml:"wrappers,omitempty"`
	// Children makes this node a container over the nested handlers.
	Children []HandlerSpec `yaml:"children,omitempty"`
	// Config is passed verbatim to the factory.
	Config map[string]any `yaml:"config,omitempty"`
}

// WrapperSpec declares one wrapper in a handler's chain.
type WrapperSpec struct {
	Kind   string         `yaml:"kind"`
	ID     string         `yaml:"id,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}

// RanksSpec is the YAML form of a rank filter: the scalar "unfiltered" or
// "none", or a sequence of rank numbers.
type RanksSpec struct {
	ranks pipeline.ExecRanks
}

// Ranks returns the decoded rank filter.
func (r *RanksSpec) Ranks() pipeline.ExecRanks {
	if r == nil {
		return pipeline.Unfiltered()
	}
	return r.ranks
}

func (r *RanksSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "unfiltered", "all", "":
			r.ranks = pipeline.Unfiltered()
		case "none":
			r.ranks = pipeline.NoRanks()
		default:
			return fmt.Errorf("config: exec_ranks scalar must be %q or %q, got %q", "unfiltered", "none", node.Value)
		}
		return nil
	case yaml.SequenceNode:
		var members []int
		if err := node.Decode(&members); err != nil {
			return fmt.Errorf("config: exec_ranks sequence must hold integers: %w", err)
		}
		r.ranks = pipeline.Ranks(members...)
		return nil
	default:
		return fmt.Errorf("config: exec_ranks must be a scalar or a sequence")
	}
}

func (r RanksSpec) MarshalYAML() (any, error) {
	switch {
	case r.ranks.IsUnfiltered():
		return "unfiltered", nil
	case r.ranks.IsNone():
		return "none", nil
	default:
		return r.ranks.Members(), nil
	}
}

// Validate checks structural invariants before any factory runs.
func (s *Spec) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("config: no phases declared")
	}
	for phase, ps := range s.Phases {
		if len(ps.Handlers) == 0 {
			return fmt.Errorf("config: phase %q declares no handlers", phase)
		}
		seen := make(map[string]struct{})
		for i := range ps.Handlers {
			if err := validateHandler(&ps.Handlers[i], phase, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateHandler(h *HandlerSpec, phase string, seen map[string]struct{}) error {
	if h.Kind == "" {
		return fmt.Errorf("config: phase %q: handler missing kind", phase)
	}
	if h.ID != "" {
		if _, dup := seen[h.ID]; dup {
			return fmt.Errorf("config: phase %q: duplicate handler id %q", phase, h.ID)
		}
		seen[h.ID] = struct{}{}
	}
	for _, w := range h.Wrappers {
		if w.Kind == "" {
			return fmt.Errorf("config: phase %q: wrapper on handler %q missing kind", phase, h.ID)
		}
	}
	for i := range h.Children {
		if err := validateHandler(&h.Children[i], phase, seen); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and validates a spec file.
func Load(path string) (*Spec, error) {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML spec bytes.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
