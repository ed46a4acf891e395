package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/config"
	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/entities"
)

func TestValidateOutline(t *testing.T) {
	t.Run("accepts a well-formed outline", func(t *testing.T) {
		o := aggregates.NewOutline(nil)
		note, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		parentID := note.ID()
		_, err = o.AddNote(&parentID, nil)
		require.NoError(t, err)

		v := NewOutlineValidator(nil)
		assert.NoError(t, v.ValidateOutline(o))
	})

	t.Run("rejects nil outline", func(t *testing.T) {
		v := NewOutlineValidator(nil)
		assert.Error(t, v.ValidateOutline(nil))
	})

	t.Run("rejects an outline over the note limit", func(t *testing.T) {
		// Build with a permissive config, validate with a strict one. This is
		// the load path: stored data may predate a tightened limit.
		o := aggregates.NewOutline(config.DefaultDomainConfig())
		for i := 0; i < 3; i++ {
			_, err := o.AddNote(nil, nil)
			require.NoError(t, err)
		}

		strict := config.DefaultDomainConfig()
		strict.MaxNotesPerOutline = 2
		v := NewOutlineValidator(strict)
		assert.Error(t, v.ValidateOutline(o))
	})

	t.Run("rejects oversized content", func(t *testing.T) {
		o := aggregates.NewOutline(config.DefaultDomainConfig())
		note, err := o.AddNote(nil, nil)
		require.NoError(t, err)
		long := strings.Repeat("x", 100)
		require.NoError(t, o.UpdateNote(note.ID(), entities.NotePatch{Content: &long}))

		strict := config.DefaultDomainConfig()
		strict.MaxContentLength = 10
		v := NewOutlineValidator(strict)
		assert.Error(t, v.ValidateOutline(o))
	})
}
