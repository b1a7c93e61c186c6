package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConflictSetSortsAndDedupes(t *testing.T) {
	t.Parallel()

	set := NewConflictSet([]string{"rs99", "rs12", " rs99 ", "", "rs12", "chr1:1000:A:G"})

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"chr1:1000:A:G", "rs12", "rs99"}, set.IDs())
}

func TestConflictSetRenderDeterministic(t *testing.T) {
	t.Parallel()

	a := NewConflictSet([]string{"rs2", "rs1", "rs3"})
	b := NewConflictSet([]string{"rs3", "rs1", "rs2", "rs1"})

	assert.Equal(t, "rs1\nrs2\nrs3\n", a.Render())
	assert.Equal(t, a.Render(), b.Render())
}

func TestConflictSetEmptyRender(t *testing.T) {
	t.Parallel()

	set := NewConflictSet(nil)
	assert.True(t, set.Empty())
	assert.Equal(t, "", set.Render())
}

func TestConflictSetContains(t *testing.T) {
	t.Parallel()

	set := NewConflictSet([]string{"rs5", "rs10"})
	assert.True(t, set.Contains("rs5"))
	assert.True(t, set.Contains("rs10"))
	assert.False(t, set.Contains("rs7"))
}

func TestConflictSetIDsReturnsCopy(t *testing.T) {
	t.Parallel()

	set := NewConflictSet([]string{"rs1", "rs2"})
	ids := set.IDs()
	ids[0] = "mutated"

	assert.Equal(t, []string{"rs1", "rs2"}, set.IDs())
}

func TestCleanMerge(t *testing.T) {
	t.Parallel()

	res := CleanMerge()
	assert.True(t, res.Clean())
	assert.True(t, res.Conflicts.Empty())
}

func TestConflictingMergeRejectsEmptySet(t *testing.T) {
	t.Parallel()

	_, err := ConflictingMerge(NewConflictSet(nil))
	require.Error(t, err)
}

func TestConflictingMerge(t *testing.T) {
	t.Parallel()

	res, err := ConflictingMerge(NewConflictSet([]string{"rs1"}))
	require.NoError(t, err)
	assert.False(t, res.Clean())
	assert.Equal(t, MergeConflicting, res.Outcome)
	assert.Equal(t, 1, res.Conflicts.Len())
}
