package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExecRanks_ZeroValueIsUnfiltered(t *testing.T) {
	var r ExecRanks
	assert.True(t, r.IsUnfiltered())
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(41))
	assert.Equal(t, "unfiltered", r.String())
}

func TestExecRanks_Sentinels(t *testing.T) {
	assert.True(t, Unfiltered().Contains(3))
	assert.False(t, NoRanks().Contains(3))
	assert.Equal(t, "none", NoRanks().String())
	assert.Nil(t, NoRanks().Members())
}

func TestExecRanks_ExplicitSet(t *testing.T) {
	r := Ranks(3, 1, 3, 0)
	assert.Equal(t, []int{0, 1, 3}, r.Members())
	assert.True(t, r.Contains(1))
	assert.False(t, r.Contains(2))
	assert.Equal(t, "[0 1 3]", r.String())
}

func TestExecRanks_MembersIsACopy(t *testing.T) {
	r := Ranks(1, 2)
	members := r.Members()
	members[0] = 99
	assert.Equal(t, []int{1, 2}, r.Members())
}

func TestExecRanks_ContainsMatchesMembers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		members := rapid.SliceOfN(rapid.IntRange(0, 64), 0, 16).Draw(t, "members")
		probe := rapid.IntRange(0, 64).Draw(t, "probe")

		r := Ranks(members...)
		inSet := false
		for _, m := range members {
			if m == probe {
				inSet = true
			}
		}
		assert.Equal(t, inSet, r.Contains(probe))
	})
}
