package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Basics(t *testing.T) {
	s := NewStore().Scope("run")

	_, ok := s.Get("lr")
	assert.False(t, ok)

	s.Set("lr", 0.01)
	v, ok := s.Get("lr")
	require.True(t, ok)
	assert.Equal(t, 0.01, v)

	assert.True(t, s.Delete("lr"))
	assert.False(t, s.Delete("lr"))
}

func TestScope_InitKeepsExisting(t *testing.T) {
	s := NewStore().Scope("run")

	assert.Equal(t, 1, s.Init("step", 1))
	assert.Equal(t, 1, s.Init("step", 99))
}

func TestScope_KeysSorted(t *testing.T) {
	s := NewStore().Scope("run")
	s.Set("b", 1)
	s.Set("a", 2)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Len())
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	st := NewStore()
	st.Scope("one").Set("k", 1)
	st.Scope("two").Set("k", 2)

	v, _ := st.Scope("one").Get("k")
	assert.Equal(t, 1, v)
	v, _ = st.Scope("two").Get("k")
	assert.Equal(t, 2, v)
}

func TestStore_ScopeIdentityAndDestroy(t *testing.T) {
	st := NewStore()
	a := st.Scope("run")
	assert.Same(t, a, st.Scope("run"))

	a.Set("k", 1)
	st.Destroy("run")

	_, ok := st.Scope("run").Get("k")
	assert.False(t, ok)
}

func TestStore_CurrentUsesProcessKey(t *testing.T) {
	st := NewStore()
	st.Current().Set("k", "v")

	v, ok := st.Scope(CurrentKey()).Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestScope_ConcurrentAccess(t *testing.T) {
	s := NewStore().Scope("run")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			s.Set(key, i)
			s.Get(key)
			s.Init(key, i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, s.Len())
}
