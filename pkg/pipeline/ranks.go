package pipeline

import (
	"fmt"
	"sort"
)

type rankMode int

const (
	rankUnfiltered rankMode = iota
	rankNone
	rankExplicit
)

// ExecRanks controls which execution ranks run a handler. The zero value is
// the unfiltered sentinel: every rank matches. NoRanks matches no rank, and
// Ranks matches an explicit set.
type ExecRanks struct {
	mode  rankMode
	ranks []int
}

// Unfiltered returns the sentinel that matches every rank.
func Unfiltered() ExecRanks {
	return ExecRanks{mode: rankUnfiltered}
}

// NoRanks returns the sentinel that matches no rank.
func NoRanks() ExecRanks {
	return ExecRanks{mode: rankNone}
}

// Ranks returns an explicit rank set. Duplicates are collapsed.
func Ranks(ranks ...int) ExecRanks {
	seen := make(map[int]struct{}, len(ranks))
	out := make([]int, 0, len(ranks))
	for _, r := range ranks {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Ints(out)
	return ExecRanks{mode: rankExplicit, ranks: out}
}

// IsUnfiltered reports whether r is the always-matching sentinel.
func (r ExecRanks) IsUnfiltered() bool { return r.mode == rankUnfiltered }

// IsNone reports whether r is the never-matching sentinel.
func (r ExecRanks) IsNone() bool { return r.mode == rankNone }

// Contains reports whether rank is a member of r.
func (r ExecRanks) Contains(rank int) bool {
	switch r.mode {
	case rankUnfiltered:
		return true
	case rankNone:
		return false
	default:
		for _, m := range r.ranks {
			if m == rank {
				return true
			}
		}
		return false
	}
}

// Members returns a copy of the explicit rank set. It is nil for the
// unfiltered and none sentinels.
func (r ExecRanks) Members() []int {
	if r.mode != rankExplicit {
		return nil
	}
	out := make([]int, len(r.ranks))
	copy(out, r.ranks)
	return out
}

func (r ExecRanks) String() string {
	switch r.mode {
	case rankUnfiltered:
		return "unfiltered"
	case rankNone:
		return "none"
	default:
		return fmt.Sprintf("%v", r.ranks)
	}
}

// Gate decides whether a handler body runs on the current execution rank.
// Implementations must invoke the body at most once, synchronously. The
// engine never inspects which gate mode is active; the gate is injected.
type Gate interface {
	// Call invokes body exactly when the current rank is a member of ranks
	// and reports whether the body was invoked.
	Call(body func() error, ranks ExecRanks) (invoked bool, err error)
	// IsMember performs the membership test without invoking anything.
	IsMember(ranks ExecRanks) bool
}

// passGate is the fallback gate used when no launch hook is installed: it
// behaves like single-process mode and always invokes the body.
type passGate struct{}

func (passGate) Call(body func() error, _ ExecRanks) (bool, error) {
	return true, body()
}

func (passGate) IsMember(ExecRanks) bool { return true }
