package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/config"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// buildOutline creates an outline with three roots A, B, C where B has
// children B1, B2. Content matches the variable names for readability.
func buildOutline(t *testing.T) (*Outline, map[string]valueobjects.NoteID) {
	t.Helper()
	o := NewOutline(config.DefaultDomainConfig())
	ids := make(map[string]valueobjects.NoteID)

	for _, name := range []string{"A", "B", "C"} {
		note, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		require.NoError(t, o.UpdateNote(note.ID(), entities.NotePatch{Content: strPtr(name)}))
		ids[name] = note.ID()
	}

	parent := ids["B"]
	for i, name := range []string{"B1", "B2"} {
		note, err := o.AddNote(&parent, intPtr(i))
		require.NoError(t, err)
		require.NoError(t, o.UpdateNote(note.ID(), entities.NotePatch{Content: strPtr(name)}))
		ids[name] = note.ID()
	}

	return o, ids
}

func contentsOf(t *testing.T, o *Outline, ids []valueobjects.NoteID) []string {
	t.Helper()
	out := make([]string, len(ids))
	for i, id := range ids {
		note, err := o.Note(id)
		require.NoError(t, err)
		out[i] = note.Content()
	}
	return out
}

func TestAddNote(t *testing.T) {
	t.Run("appends at root level by default", func(t *testing.T) {
		o := NewOutline(nil)

		first, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		second, err := o.AddNote(nil, nil)
		require.NoError(t, err)

		roots := o.Roots()
		require.Len(t, roots, 2)
		assert.True(t, roots[0].Equals(first.ID()))
		assert.True(t, roots[1].Equals(second.ID()))
		assert.Equal(t, 0, first.Position())
		assert.Equal(t, 1, second.Position())
	})

	t.Run("prepends under an existing parent by default", func(t *testing.T) {
		o := NewOutline(nil)
		parent, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		parentID := parent.ID()

		older, err := o.AddNote(&parentID, nil)
		require.NoError(t, err)
		newer, err := o.AddNote(&parentID, nil)
		require.NoError(t, err)

		children := o.ChildrenOf(&parentID)
		require.Len(t, children, 2)
		assert.True(t, children[0].Equals(newer.ID()))
		assert.True(t, children[1].Equals(older.ID()))
	})

	t.Run("honors explicit insert position and clamps out-of-range", func(t *testing.T) {
		o, ids := buildOutline(t)

		note, err := o.AddNote(nil, intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, 1, note.Position())

		far, err := o.AddNote(nil, intPtr(99))
		require.NoError(t, err)
		roots := o.Roots()
		assert.True(t, roots[len(roots)-1].Equals(far.ID()))

		_ = ids
		require.NoError(t, o.Validate())
	})

	t.Run("new note starts with empty content", func(t *testing.T) {
		o := NewOutline(nil)
		note, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "", note.Content())
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		o := NewOutline(nil)
		ghost := valueobjects.NewNoteID()
		_, err := o.AddNote(&ghost, nil)
		assert.Error(t, err)
	})

	t.Run("enforces note count limit", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxNotesPerOutline = 2
		o := NewOutline(cfg)

		_, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		_, err = o.AddNote(nil, nil)
		require.NoError(t, err)
		_, err = o.AddNote(nil, nil)
		assert.Error(t, err)
	})
}

func TestUpdateNote(t *testing.T) {
	t.Run("merges patch fields and preserves omissions", func(t *testing.T) {
		o, ids := buildOutline(t)
		id := ids["B1"]

		flag := true
		require.NoError(t, o.UpdateNote(id, entities.NotePatch{IsDiscussion: &flag}))

		note, err := o.Note(id)
		require.NoError(t, err)
		assert.Equal(t, "B1", note.Content(), "content must survive an unrelated patch")
		assert.True(t, note.IsDiscussion())
	})

	t.Run("does not touch structure", func(t *testing.T) {
		o, ids := buildOutline(t)
		before := o.ChildrenOf(idPtr(ids["B"]))

		require.NoError(t, o.UpdateNote(ids["B"], entities.NotePatch{Content: strPtr("renamed")}))

		assert.Equal(t, before, o.ChildrenOf(idPtr(ids["B"])))
		require.NoError(t, o.Validate())
	})

	t.Run("returns not found for unknown note", func(t *testing.T) {
		o := NewOutline(nil)
		err := o.UpdateNote(valueobjects.NewNoteID(), entities.NotePatch{})
		assert.Error(t, err)
	})
}

func TestDeleteNote(t *testing.T) {
	t.Run("cascade removes the whole subtree", func(t *testing.T) {
		o, ids := buildOutline(t)

		require.NoError(t, o.DeleteNote(ids["B"], true))

		assert.False(t, o.HasNote(ids["B"]))
		assert.False(t, o.HasNote(ids["B1"]))
		assert.False(t, o.HasNote(ids["B2"]))
		assert.Equal(t, []string{"A", "C"}, contentsOf(t, o, o.Roots()))
		require.NoError(t, o.Validate())
	})

	t.Run("non-cascade splices children into the vacated slot", func(t *testing.T) {
		o, ids := buildOutline(t)

		require.NoError(t, o.DeleteNote(ids["B"], false))

		assert.Equal(t, []string{"A", "B1", "B2", "C"}, contentsOf(t, o, o.Roots()))
		for i, id := range o.Roots() {
			note, err := o.Note(id)
			require.NoError(t, err)
			assert.Equal(t, i, note.Position())
		}
		require.NoError(t, o.Validate())
	})

	t.Run("deleting a leaf renumbers remaining siblings", func(t *testing.T) {
		o, ids := buildOutline(t)

		require.NoError(t, o.DeleteNote(ids["A"], false))

		assert.Equal(t, []string{"B", "C"}, contentsOf(t, o, o.Roots()))
		noteB, _ := o.Note(ids["B"])
		assert.Equal(t, 0, noteB.Position())
	})

	t.Run("returns not found for unknown note", func(t *testing.T) {
		o := NewOutline(nil)
		assert.Error(t, o.DeleteNote(valueobjects.NewNoteID(), true))
	})
}

func TestMoveNote(t *testing.T) {
	t.Run("reparents with subtree intact", func(t *testing.T) {
		o, ids := buildOutline(t)

		receipt, err := o.MoveNote(ids["B"], idPtr(ids["A"]), 0)
		require.NoError(t, err)
		require.NotNil(t, receipt)

		assert.Nil(t, receipt.FromParentID)
		assert.Equal(t, 1, receipt.FromPosition)
		require.NotNil(t, receipt.ToParentID)
		assert.True(t, receipt.ToParentID.Equals(ids["A"]))
		assert.Equal(t, 0, receipt.ToPosition)

		// Children travel with the note.
		assert.Equal(t, []string{"B1", "B2"}, contentsOf(t, o, o.ChildrenOf(idPtr(ids["B"]))))
		assert.Equal(t, []string{"A", "C"}, contentsOf(t, o, o.Roots()))
		require.NoError(t, o.Validate())
	})

	t.Run("rejects a move into the note's own descendant", func(t *testing.T) {
		o, ids := buildOutline(t)
		rootsBefore := o.Roots()

		receipt, err := o.MoveNote(ids["B"], idPtr(ids["B1"]), 0)
		require.Error(t, err)
		assert.Nil(t, receipt)
		assert.Contains(t, err.Error(), "descendant")

		// The failed move must leave the tree untouched.
		assert.Equal(t, rootsBefore, o.Roots())
		assert.Equal(t, []string{"B1", "B2"}, contentsOf(t, o, o.ChildrenOf(idPtr(ids["B"]))))
		require.NoError(t, o.Validate())
	})

	t.Run("dropping a note onto itself is a no-op", func(t *testing.T) {
		o, ids := buildOutline(t)
		before := contentsOf(t, o, o.Roots())

		receipt, err := o.MoveNote(ids["B"], idPtr(ids["B"]), 0)
		require.NoError(t, err)
		assert.Nil(t, receipt)
		assert.Equal(t, before, contentsOf(t, o, o.Roots()))
	})

	t.Run("reorders within the same sibling list", func(t *testing.T) {
		o, ids := buildOutline(t)

		receipt, err := o.MoveNote(ids["C"], nil, 0)
		require.NoError(t, err)
		require.NotNil(t, receipt)

		assert.Equal(t, []string{"C", "A", "B"}, contentsOf(t, o, o.Roots()))
		require.NoError(t, o.Validate())
	})

	t.Run("clamps target position past the end", func(t *testing.T) {
		o, ids := buildOutline(t)

		_, err := o.MoveNote(ids["A"], nil, 99)
		require.NoError(t, err)

		assert.Equal(t, []string{"B", "C", "A"}, contentsOf(t, o, o.Roots()))
	})

	t.Run("reverse of receipt restores the original shape", func(t *testing.T) {
		o, ids := buildOutline(t)
		before := contentsOf(t, o, o.Roots())

		receipt, err := o.MoveNote(ids["B"], idPtr(ids["A"]), 0)
		require.NoError(t, err)
		require.NotNil(t, receipt)

		_, err = o.MoveNote(receipt.NoteID, receipt.FromParentID, receipt.FromPosition)
		require.NoError(t, err)

		assert.Equal(t, before, contentsOf(t, o, o.Roots()))
		assert.Equal(t, []string{"B1", "B2"}, contentsOf(t, o, o.ChildrenOf(idPtr(ids["B"]))))
		require.NoError(t, o.Validate())
	})

	t.Run("returns not found for unknown note or target", func(t *testing.T) {
		o, ids := buildOutline(t)
		ghost := valueobjects.NewNoteID()

		_, err := o.MoveNote(ghost, nil, 0)
		assert.Error(t, err)

		_, err = o.MoveNote(ids["A"], &ghost, 0)
		assert.Error(t, err)
	})
}

func TestPositionNormalization(t *testing.T) {
	t.Run("positions stay contiguous across a mutation burst", func(t *testing.T) {
		o, ids := buildOutline(t)

		_, err := o.MoveNote(ids["B1"], nil, 1)
		require.NoError(t, err)
		require.NoError(t, o.DeleteNote(ids["A"], false))
		_, err = o.AddNote(idPtr(ids["C"]), nil)
		require.NoError(t, err)

		require.NoError(t, o.Validate())
		for _, id := range o.AllNoteIDs() {
			parent, ok := o.ParentOf(id)
			require.True(t, ok)
			siblings := o.ChildrenOf(parent)
			note, _ := o.Note(id)
			assert.True(t, note.Position() < len(siblings))
		}
	})
}

func TestDepthQueries(t *testing.T) {
	o, ids := buildOutline(t)

	assert.Equal(t, 0, o.Depth(ids["A"]))
	assert.Equal(t, 1, o.Depth(ids["B1"]))
	assert.Equal(t, 1, o.MaxDepth())
	assert.Equal(t, -1, o.Depth(valueobjects.NewNoteID()))

	// Only depth-0 notes sit above level 1.
	above := o.IDsAboveDepth(1)
	assert.Len(t, above, 3)

	above = o.IDsAboveDepth(2)
	assert.Len(t, above, 5)
}

func TestClone(t *testing.T) {
	t.Run("mutating the clone leaves the original untouched", func(t *testing.T) {
		o, ids := buildOutline(t)
		clone := o.Clone()

		_, err := clone.MoveNote(ids["C"], idPtr(ids["A"]), 0)
		require.NoError(t, err)
		require.NoError(t, clone.UpdateNote(ids["A"], entities.NotePatch{Content: strPtr("changed")}))

		assert.Equal(t, []string{"A", "B", "C"}, contentsOf(t, o, o.Roots()))
		original, _ := o.Note(ids["A"])
		assert.Equal(t, "A", original.Content())
	})

	t.Run("clone starts with no uncommitted events", func(t *testing.T) {
		o, _ := buildOutline(t)
		require.NotEmpty(t, o.GetUncommittedEvents())
		assert.Empty(t, o.Clone().GetUncommittedEvents())
	})
}

func TestDomainEvents(t *testing.T) {
	o := NewOutline(nil)
	note, err := o.AddNote(nil, nil)
	require.NoError(t, err)
	require.NoError(t, o.UpdateNote(note.ID(), entities.NotePatch{Content: strPtr("x")}))

	evts := o.GetUncommittedEvents()
	require.Len(t, evts, 2)
	assert.Equal(t, "note.added", evts[0].GetEventType())
	assert.Equal(t, "note.updated", evts[1].GetEventType())

	o.MarkEventsAsCommitted()
	assert.Empty(t, o.GetUncommittedEvents())
}

func TestGraft(t *testing.T) {
	t.Run("rebuilds an outline without raising events", func(t *testing.T) {
		o := NewOutline(nil)

		root, err := entities.ReconstructNote(
			valueobjects.NewNoteID(), "root", 0, false, nil, "", "", "", nil,
			time.Now(), time.Now(),
		)
		require.NoError(t, err)
		child, err := entities.ReconstructNote(
			valueobjects.NewNoteID(), "child", 0, false, nil, "", "", "", nil,
			time.Now(), time.Now(),
		)
		require.NoError(t, err)

		require.NoError(t, o.Graft(root, nil))
		rootID := root.ID()
		require.NoError(t, o.Graft(child, &rootID))
		o.NormalizePositions()

		assert.Empty(t, o.GetUncommittedEvents())
		assert.Equal(t, 2, o.NoteCount())
		require.NoError(t, o.Validate())
	})

	t.Run("rejects duplicate IDs", func(t *testing.T) {
		o := NewOutline(nil)
		note, err := entities.ReconstructNote(
			valueobjects.NewNoteID(), "x", 0, false, nil, "", "", "", nil,
			time.Now(), time.Now(),
		)
		require.NoError(t, err)

		require.NoError(t, o.Graft(note, nil))
		assert.Error(t, o.Graft(note, nil))
	})
}

func idPtr(id valueobjects.NoteID) *valueobjects.NoteID { return &id }
