package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/config"
	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
)

func strPtr(s string) *string { return &s }

func sampleOutline(t *testing.T) *aggregates.Outline {
	t.Helper()
	o := aggregates.NewOutline(nil)

	root, err := o.AddNote(nil, nil)
	require.NoError(t, err)
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	img, err := valueobjects.NewImageRef("uploads/a.png", "https://cdn.example.com/a.png")
	require.NoError(t, err)
	images := []valueobjects.ImageRef{img}
	require.NoError(t, o.UpdateNote(root.ID(), entities.NotePatch{
		Content: strPtr("agenda"),
		TimeSet: &ts,
		Images:  &images,
	}))

	rootID := root.ID()
	child, err := o.AddNote(&rootID, nil)
	require.NoError(t, err)
	require.NoError(t, o.UpdateNote(child.ID(), entities.NotePatch{Content: strPtr("first item")}))

	return o
}

func TestExport(t *testing.T) {
	o := sampleOutline(t)
	doc := Export(o)

	require.Len(t, doc.Notes, 1)
	root := doc.Notes[0]
	assert.Equal(t, "agenda", root.Content)
	assert.Equal(t, 0, root.Position)
	require.NotNil(t, root.TimeSet)
	assert.Equal(t, "2026-03-14T09:30:00Z", *root.TimeSet)
	require.Len(t, root.Images, 1)
	assert.Equal(t, "uploads/a.png", root.Images[0].Key)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "first item", root.Children[0].Content)
	assert.Nil(t, root.Children[0].TimeSet)
}

func TestToOutline(t *testing.T) {
	t.Run("round-trips the tree with IDs and images intact", func(t *testing.T) {
		o := sampleOutline(t)
		doc := Export(o)

		rebuilt, err := ToOutline(doc, nil)
		require.NoError(t, err)

		assert.Equal(t, o.NoteCount(), rebuilt.NoteCount())
		for _, id := range o.AllNoteIDs() {
			want, err := o.Note(id)
			require.NoError(t, err)
			got, err := rebuilt.Note(id)
			require.NoError(t, err, "IDs must survive the round trip")
			assert.Equal(t, want.Content(), got.Content())
			assert.Equal(t, want.Position(), got.Position())
			assert.Equal(t, len(want.Images()), len(got.Images()))
		}
		require.NoError(t, rebuilt.Validate())
	})

	t.Run("rejects malformed IDs", func(t *testing.T) {
		doc := &Document{Notes: []NoteDoc{{ID: "not-a-uuid", Content: "x"}}}
		_, err := ToOutline(doc, nil)
		assert.Error(t, err)
	})

	t.Run("rejects nil document", func(t *testing.T) {
		_, err := ToOutline(nil, nil)
		assert.Error(t, err)
	})

	t.Run("enforces configured limits on inbound documents", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxContentLength = 8

		doc := &Document{Notes: []NoteDoc{{
			ID:      valueobjects.NewNoteID().String(),
			Content: "well past the configured content cap",
		}}}
		_, err := ToOutline(doc, cfg)
		assert.Error(t, err, "stored documents must respect the configured limits")
	})
}

func TestImport(t *testing.T) {
	t.Run("regenerates IDs and drops image references", func(t *testing.T) {
		o := sampleOutline(t)
		doc := Export(o)

		imported, err := Import(doc, nil)
		require.NoError(t, err)

		assert.Equal(t, o.NoteCount(), imported.NoteCount())
		for _, id := range o.AllNoteIDs() {
			assert.False(t, imported.HasNote(id), "imported notes must not reuse source IDs")
		}
		for _, id := range imported.AllNoteIDs() {
			note, err := imported.Note(id)
			require.NoError(t, err)
			assert.Empty(t, note.Images())
		}

		// Content and shape still match.
		reexported := Export(imported)
		require.Len(t, reexported.Notes, 1)
		assert.Equal(t, "agenda", reexported.Notes[0].Content)
		require.Len(t, reexported.Notes[0].Children, 1)
		assert.Equal(t, "first item", reexported.Notes[0].Children[0].Content)
	})

	t.Run("empty document yields an empty outline", func(t *testing.T) {
		imported, err := Import(&Document{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, imported.NoteCount())
	})
}
