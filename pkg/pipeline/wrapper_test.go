package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// traceWrapper records before/after events for order assertions. A non-nil
// beforeErr fails the open; skip short-circuits the wrapped execution.
func traceWrapper(trace *[]string, id string, skip bool, beforeErr error) *Wrapper {
	w := WrapFuncs(
		func(*Context, Handler) (Decision, error) {
			*trace = append(*trace, id+".before")
			if beforeErr != nil {
				return Proceed, beforeErr
			}
			if skip {
				return Skip, nil
			}
			return Proceed, nil
		},
		func(_ *Context, _ Handler, outcome error) error {
			*trace = append(*trace, id+".after")
			return outcome
		},
	)
	w.SetID(id)
	return w
}

func TestWrapperChain_OnionOrder(t *testing.T) {
	var trace []string
	leaf := traceLeaf(&trace, "leaf", nil)
	leaf.SetWrappers(
		traceWrapper(&trace, "w1", false, nil),
		traceWrapper(&trace, "w2", false, nil),
	)

	require.NoError(t, Execute(testContext(), leaf))
	assert.Equal(t, []string{"w1.before", "w2.before", "leaf", "w2.after", "w1.after"}, trace)
}

func TestWrapperChain_SkipShortCircuitsInnerScopes(t *testing.T) {
	var trace []string
	leaf := traceLeaf(&trace, "leaf", nil)
	leaf.SetWrappers(
		traceWrapper(&trace, "w1", false, nil),
		traceWrapper(&trace, "w2", true, nil),
		traceWrapper(&trace, "w3", false, nil),
	)

	require.NoError(t, Execute(testContext(), leaf))
	// w2 skips: w3 and the leaf never run, but w2 and w1 still close.
	assert.Equal(t, []string{"w1.before", "w2.before", "w2.after", "w1.after"}, trace)
}

func TestWrapperChain_BeforeFailureDemotedToOwningNode(t *testing.T) {
	cause := errors.New("profiler unavailable")
	var trace []string
	leaf := traceLeaf(&trace, "leaf", nil)
	leaf.SetWrappers(
		traceWrapper(&trace, "w1", false, nil),
		traceWrapper(&trace, "w2", false, cause),
	)

	err := Execute(testContext(), leaf)

	he, ok := AsHandlerError(err)
	require.True(t, ok)
	assert.Equal(t, "leaf", he.HandlerID)
	assert.ErrorIs(t, err, cause)
	// The failed scope never opened; the leaf never ran; w1 still closed.
	assert.Equal(t, []string{"w1.before", "w2.before", "w1.after"}, trace)
}

func TestWrapperChain_AfterFailureDemotedToOwningNode(t *testing.T) {
	cause := errors.New("flush failed")
	var trace []string
	leaf := traceLeaf(&trace, "leaf", nil)
	w := WrapFuncs(nil, func(*Context, Handler, error) error { return cause })
	w.SetID("flusher")
	leaf.SetWrappers(w)

	err := Execute(testContext(), leaf)

	he, ok := AsHandlerError(err)
	require.True(t, ok)
	assert.Equal(t, "leaf", he.HandlerID)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"leaf"}, trace)
}

func TestWrapperChain_AfterCanSuppressFailure(t *testing.T) {
	var trace []string
	leaf := traceLeaf(&trace, "leaf", assert.AnError)
	leaf.SetWrappers(WrapFuncs(nil, func(*Context, Handler, error) error {
		return nil
	}))

	require.NoError(t, Execute(testContext(), leaf))
}

func TestWrapperChain_AfterObservesOutcomeUnchanged(t *testing.T) {
	var observed []error
	leaf := NewFuncHandler(func(*Context) error { return assert.AnError })
	leaf.SetID("leaf")
	leaf.SetWrappers(WrapFuncs(nil, func(_ *Context, _ Handler, outcome error) error {
		observed = append(observed, outcome)
		return outcome
	}))

	err := Execute(testContext(), leaf)

	require.Len(t, observed, 1)
	assert.ErrorIs(t, observed[0], assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWrapperChain_BreakPassesThroughBeforeContainerAbsorbsIt(t *testing.T) {
	var observed []error
	var trace []string
	container := NewContainer(traceLeaf(&trace, "brk", Break))
	container.SetWrappers(WrapFuncs(nil, func(_ *Context, _ Handler, outcome error) error {
		observed = append(observed, outcome)
		return outcome
	}))

	require.NoError(t, Execute(testContext(), container))
	// The container's own wrappers see the break on their failure path; the
	// outer execute boundary then absorbs it.
	require.Len(t, observed, 1)
	assert.True(t, IsBreak(observed[0]))
}

func TestWrapperChain_ContinueAbsorbedBeforeWrappersObserveIt(t *testing.T) {
	var observed []error
	var trace []string
	container := NewContainer(traceLeaf(&trace, "cont", Continue))
	container.SetWrappers(WrapFuncs(nil, func(_ *Context, _ Handler, outcome error) error {
		observed = append(observed, outcome)
		return outcome
	}))

	require.NoError(t, Execute(testContext(), container))
	// Continue is absorbed inside the container's own work, so its wrapper
	// chain sees a clean outcome.
	require.Len(t, observed, 1)
	assert.NoError(t, observed[0])
}

func TestWrapper_PlainContainerMode(t *testing.T) {
	var trace []string
	w := NewWrapper(WrapperFuncs{
		BeforeFn: func(*Context, Handler) (Decision, error) {
			trace = append(trace, "before")
			return Proceed, nil
		},
		AfterFn: func(_ *Context, _ Handler, outcome error) error {
			trace = append(trace, "after")
			return outcome
		},
	}, traceLeaf(&trace, "child", nil))

	require.NoError(t, Execute(testContext(), w))
	assert.Equal(t, []string{"before", "child", "after"}, trace)
}

func TestWrapper_PlainContainerModeSkip(t *testing.T) {
	var trace []string
	w := NewWrapper(WrapperFuncs{
		BeforeFn: func(*Context, Handler) (Decision, error) {
			return Skip, nil
		},
		AfterFn: func(_ *Context, _ Handler, outcome error) error {
			trace = append(trace, "after")
			return outcome
		},
	}, traceLeaf(&trace, "child", nil))

	require.NoError(t, Execute(testContext(), w))
	assert.Equal(t, []string{"after"}, trace)
}

func TestWrapperChain_NilHookWrapperIsTransparent(t *testing.T) {
	var trace []string
	leaf := traceLeaf(&trace, "leaf", nil)
	leaf.SetWrappers(
		NewWrapper(nil),
		traceWrapper(&trace, "w", false, nil),
	)

	require.NoError(t, Execute(testContext(), leaf))
	assert.Equal(t, []string{"w.before", "leaf", "w.after"}, trace)

	// Outcomes pass through a hookless scope untouched.
	failing := traceLeaf(&trace, "bad", assert.AnError)
	failing.SetWrappers(NewWrapper(nil))

	err := Execute(testContext(), failing)
	he, ok := AsHandlerError(err)
	require.True(t, ok)
	assert.Equal(t, "bad", he.HandlerID)
}

func TestWrapperChain_OpenedScopesAlwaysClose(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "wrappers")
		failAt := rapid.IntRange(-1, n-1).Draw(t, "failAt")
		skipAt := rapid.IntRange(-1, n-1).Draw(t, "skipAt")
		leafErr := rapid.Bool().Draw(t, "leafFails")

		var opened, closed int
		wrappers := make([]*Wrapper, 0, n)
		for i := 0; i < n; i++ {
			i := i
			wrappers = append(wrappers, WrapFuncs(
				func(*Context, Handler) (Decision, error) {
					if i == failAt {
						return Proceed, fmt.Errorf("open %d failed", i)
					}
					opened++
					if i == skipAt {
						return Skip, nil
					}
					return Proceed, nil
				},
				func(_ *Context, _ Handler, outcome error) error {
					closed++
					return outcome
				},
			))
		}

		leaf := NewFuncHandler(func(*Context) error {
			if leafErr {
				return assert.AnError
			}
			return nil
		})
		leaf.SetWrappers(wrappers...)

		_ = Execute(testContext(), leaf)
		assert.Equal(t, opened, closed)
	})
}
