package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/valueobjects"
)

// deepOutline builds a three-level chain: root -> mid -> leaf, plus a
// second root with no children.
func deepOutline(t *testing.T) (*aggregates.Outline, map[string]valueobjects.NoteID) {
	t.Helper()
	o := aggregates.NewOutline(nil)
	ids := make(map[string]valueobjects.NoteID)

	root, err := o.AddNote(nil, nil)
	require.NoError(t, err)
	ids["root"] = root.ID()

	rootID := root.ID()
	mid, err := o.AddNote(&rootID, nil)
	require.NoError(t, err)
	ids["mid"] = mid.ID()

	midID := mid.ID()
	leaf, err := o.AddNote(&midID, nil)
	require.NoError(t, err)
	ids["leaf"] = leaf.ID()

	other, err := o.AddNote(nil, nil)
	require.NoError(t, err)
	ids["other"] = other.ID()

	return o, ids
}

func TestExpandToLevel(t *testing.T) {
	t.Run("level one expands only the roots", func(t *testing.T) {
		o, ids := deepOutline(t)
		s := NewExpansionState()

		s.ExpandToLevel(o, 1)

		assert.Equal(t, 1, s.CurrentLevel())
		assert.True(t, s.IsExpanded(ids["root"]))
		assert.True(t, s.IsExpanded(ids["other"]))
		assert.False(t, s.IsExpanded(ids["mid"]))
	})

	t.Run("level two reveals the deepest notes", func(t *testing.T) {
		o, ids := deepOutline(t)
		s := NewExpansionState()

		s.ExpandToLevel(o, 2)

		assert.True(t, s.IsExpanded(ids["root"]))
		assert.True(t, s.IsExpanded(ids["mid"]))
		assert.False(t, s.IsExpanded(ids["leaf"]))
	})

	t.Run("clamps past the tree depth", func(t *testing.T) {
		o, _ := deepOutline(t)
		s := NewExpansionState()

		s.ExpandToLevel(o, 99)
		assert.Equal(t, 2, s.CurrentLevel())

		s.ExpandToLevel(o, -3)
		assert.Equal(t, 0, s.CurrentLevel())
	})
}

func TestExpandStepControls(t *testing.T) {
	o, _ := deepOutline(t)
	s := NewExpansionState()

	s.ExpandOneMore(o)
	assert.Equal(t, 1, s.CurrentLevel())
	s.ExpandOneMore(o)
	assert.Equal(t, 2, s.CurrentLevel())
	s.ExpandOneMore(o)
	assert.Equal(t, 2, s.CurrentLevel(), "must clamp at max depth")

	s.CollapseOne(o)
	assert.Equal(t, 1, s.CurrentLevel())
	s.CollapseOne(o)
	s.CollapseOne(o)
	assert.Equal(t, 0, s.CurrentLevel(), "must clamp at zero")
}

func TestExpandAllAndCollapseAll(t *testing.T) {
	o, ids := deepOutline(t)
	s := NewExpansionState()

	s.ExpandAll(o)
	assert.Equal(t, 2, s.CurrentLevel())
	for _, id := range ids {
		assert.True(t, s.IsExpanded(id))
	}

	s.CollapseAll()
	assert.Equal(t, 0, s.CurrentLevel())
	assert.Empty(t, s.ExpandedIDs())
}

func TestToggle(t *testing.T) {
	o, ids := deepOutline(t)
	s := NewExpansionState()
	s.ExpandToLevel(o, 1)
	before := s.CurrentLevel()

	s.Toggle(ids["mid"])
	assert.True(t, s.IsExpanded(ids["mid"]))
	assert.Equal(t, before, s.CurrentLevel(), "toggling one note must not move the level cursor")

	s.Toggle(ids["mid"])
	assert.False(t, s.IsExpanded(ids["mid"]))
}

func TestRecalculate(t *testing.T) {
	t.Run("prunes deleted notes and clamps the cursor", func(t *testing.T) {
		o, ids := deepOutline(t)
		s := NewExpansionState()
		s.ExpandToLevel(o, 2)

		// Deleting mid (cascade) removes the deepest level entirely.
		require.NoError(t, o.DeleteNote(ids["mid"], true))
		s.Recalculate(o)

		assert.False(t, s.IsExpanded(ids["mid"]))
		assert.Equal(t, 0, s.MaxDepth())
		assert.Equal(t, 0, s.CurrentLevel())
	})

	t.Run("keeps surviving entries", func(t *testing.T) {
		o, ids := deepOutline(t)
		s := NewExpansionState()
		s.Toggle(ids["root"])

		require.NoError(t, o.DeleteNote(ids["other"], true))
		s.Recalculate(o)

		assert.True(t, s.IsExpanded(ids["root"]))
	})
}
