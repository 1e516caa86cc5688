package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StrictRejectsDuplicates(t *testing.T) {
	r := New[string, int]("test.strict")

	require.NoError(t, r.Register("a", 1))
	err := r.Register("a", 2)
	assert.ErrorContains(t, err, "already registered")

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRegistry_LaxLastWins(t *testing.T) {
	r := New[string, int]("test.lax", Strict(false))

	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("a", 2))

	v, _ := r.Get("a")
	assert.Equal(t, 2, v)
}

func TestRegistry_KeysSortedForStrings(t *testing.T) {
	r := New[string, struct{}]("test.keys")
	for _, k := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(k, struct{}{}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Keys())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "test.keys", r.Namespace())
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := New[string, int]("test.panic")
	r.MustRegister("a", 1)
	assert.Panics(t, func() { r.MustRegister("a", 2) })
}

func TestRegistry_MissingKey(t *testing.T) {
	r := New[string, int]("test.missing")
	_, ok := r.Get("absent")
	assert.False(t, ok)
}
