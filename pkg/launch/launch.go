// Package launch provides the launch hooks that resolve execution ranks:
// single-process vanilla mode and a distributed mode driven by a pluggable
// communication backend.
package launch

import (
	"context"
	"fmt"

	"github.com/SlimeAI/slime-core/pkg/pipeline"
	"github.com/SlimeAI/slime-core/pkg/registry"
)

// Factory builds a launch hook from the environment.
type Factory func() (pipeline.LaunchHook, error)

// Modes maps launch mode names to factories. Integrations providing a
// communication backend register their distributed modes here.
var Modes = registry.New[string, Factory]("launch.modes")

func init() {
	Modes.MustRegister("vanilla", func() (pipeline.LaunchHook, error) {
		return NewVanilla(), nil
	})
}

// Resolve builds the launch hook registered under mode.
func Resolve(mode string) (pipeline.LaunchHook, error) {
	factory, ok := Modes.Get(mode)
	if !ok {
		return nil, fmt.Errorf("launch: unknown mode %q (registered: %v)", mode, Modes.Keys())
	}
	return factory()
}

// Vanilla is the single-process launch hook: there is exactly one rank and
// every rank filter except the none sentinel matches it.
type Vanilla struct {
	pipeline.NopPhaseHook
}

// NewVanilla creates the single-process launch hook.
func NewVanilla() *Vanilla { return &Vanilla{} }

func (v *Vanilla) Call(body func() error, ranks pipeline.ExecRanks) (bool, error) {
	if !v.IsMember(ranks) {
		return false, nil
	}
	return true, body()
}

func (v *Vanilla) IsMember(ranks pipeline.ExecRanks) bool {
	return !ranks.IsNone()
}

func (v *Vanilla) DeviceInfo(*pipeline.Context) string {
	return "single-process"
}

// Comm is the collective-communication backend a distributed launch hook
// delegates to. Payloads are opaque bytes; serialization is the caller's
// concern.
type Comm interface {
	// Rank returns this process's rank in [0, WorldSize).
	Rank() int
	// WorldSize returns the number of participating processes.
	WorldSize() int
	// Gather collects every rank's payload on dst; other ranks get nil.
	Gather(ctx context.Context, payload []byte, dst int) ([][]byte, error)
	// AllGather collects every rank's payload on every rank.
	AllGather(ctx context.Context, payload []byte) ([][]byte, error)
	// Broadcast distributes src's payload to every rank.
	Broadcast(ctx context.Context, payload []byte, src int) ([]byte, error)
	// Scatter hands each rank its slice of src's payload list.
	Scatter(ctx context.Context, payloads [][]byte, src int) ([]byte, error)
}

// Distributed gates handler bodies by the backend's rank. The unfiltered
// sentinel runs everywhere, the none sentinel nowhere, and an explicit set
// runs only on member ranks.
type Distributed struct {
	pipeline.NopPhaseHook
	comm Comm
}

// NewDistributed creates a distributed launch hook over comm.
func NewDistributed(comm Comm) *Distributed {
	return &Distributed{comm: comm}
}

// Comm returns the communication backend for handlers that need collectives.
func (d *Distributed) Comm() Comm { return d.comm }

func (d *Distributed) Call(body func() error, ranks pipeline.ExecRanks) (bool, error) {
	if !d.IsMember(ranks) {
		return false, nil
	}
	return true, body()
}

func (d *Distributed) IsMember(ranks pipeline.ExecRanks) bool {
	return ranks.Contains(d.comm.Rank())
}

func (d *Distributed) DeviceInfo(*pipeline.Context) string {
	return fmt.Sprintf("distributed rank %d/%d", d.comm.Rank(), d.comm.WorldSize())
}
