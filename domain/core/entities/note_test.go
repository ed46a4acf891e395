package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/config"
	"outline-backend/domain/core/valueobjects"
)

func strPtr(s string) *string { return &s }

func TestApplyPatch(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("nil fields are preserved", func(t *testing.T) {
		n := NewNote()
		require.NoError(t, n.Apply(NotePatch{Content: strPtr("hello"), URL: strPtr("https://example.com")}, cfg))

		require.NoError(t, n.Apply(NotePatch{IsDiscussion: boolPtr(true)}, cfg))
		assert.Equal(t, "hello", n.Content())
		assert.Equal(t, "https://example.com", n.URL())
		assert.True(t, n.IsDiscussion())
	})

	t.Run("clear time set", func(t *testing.T) {
		n := NewNote()
		ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, n.Apply(NotePatch{TimeSet: &ts}, cfg))
		require.NotNil(t, n.TimeSet())

		require.NoError(t, n.Apply(NotePatch{ClearTimeSet: true}, cfg))
		assert.Nil(t, n.TimeSet())
	})

	t.Run("content length limit", func(t *testing.T) {
		n := NewNote()
		long := strings.Repeat("x", cfg.MaxContentLength+1)
		err := n.Apply(NotePatch{Content: &long}, cfg)
		assert.Error(t, err)
		assert.Empty(t, n.Content())
	})

	t.Run("image count limit", func(t *testing.T) {
		n := NewNote()
		refs := make([]valueobjects.ImageRef, cfg.MaxImagesPerNote+1)
		for i := range refs {
			ref, err := valueobjects.NewImageRef("img-key", "")
			require.NoError(t, err)
			refs[i] = ref
		}
		assert.Error(t, n.Apply(NotePatch{Images: &refs}, cfg))
	})
}

func TestCloneIsolation(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	n := NewNote()
	ts := time.Now()
	ref, err := valueobjects.NewImageRef("img-1", "https://cdn.example.com/img-1")
	require.NoError(t, err)
	require.NoError(t, n.Apply(NotePatch{
		Content: strPtr("original"),
		TimeSet: &ts,
		Images:  &[]valueobjects.ImageRef{ref},
	}, cfg))

	clone := n.Clone()
	require.NoError(t, clone.Apply(NotePatch{Content: strPtr("changed"), ClearTimeSet: true}, cfg))

	assert.Equal(t, "original", n.Content())
	assert.NotNil(t, n.TimeSet())
	assert.Equal(t, "changed", clone.Content())
	assert.Len(t, clone.Images(), 1)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty content", "", "untitled"},
		{"whitespace only", "   \t ", "untitled"},
		{"first line only", "agenda\nsecond line", "agenda"},
		{"trimmed", "  topic  ", "topic"},
		{"truncated", strings.Repeat("a", 60), strings.Repeat("a", 40) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.content))
		})
	}
}

func boolPtr(b bool) *bool { return &b }
