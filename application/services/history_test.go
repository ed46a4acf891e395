package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/valueobjects"
)

func receiptFor(label string) *aggregates.MoveReceipt {
	return &aggregates.MoveReceipt{
		NoteID:       valueobjects.NewNoteID(),
		NoteLabel:    label,
		FromPosition: 1,
		ToPosition:   0,
	}
}

func TestMoveHistoryPushPop(t *testing.T) {
	h := NewMoveHistory(20)
	assert.False(t, h.CanUndo())

	h.Push(receiptFor("alpha"))
	h.Push(receiptFor("beta"))
	require.Equal(t, 2, h.Depth())

	record, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, `move "beta"`, record.Description)

	record, ok = h.Pop()
	require.True(t, ok)
	assert.Equal(t, `move "alpha"`, record.Description)

	_, ok = h.Pop()
	assert.False(t, ok)
}

func TestMoveHistoryIgnoresNilReceipts(t *testing.T) {
	h := NewMoveHistory(20)
	h.Push(nil)
	assert.Equal(t, 0, h.Depth())
}

func TestMoveHistoryBounded(t *testing.T) {
	h := NewMoveHistory(20)
	for i := 0; i < 25; i++ {
		h.Push(receiptFor(fmt.Sprintf("note-%d", i)))
	}
	assert.Equal(t, 20, h.Depth())

	// The newest record is on top; the five oldest fell off the bottom.
	record, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, `move "note-24"`, record.Description)

	descriptions := h.Descriptions()
	require.Len(t, descriptions, 20)
	assert.Equal(t, `move "note-5"`, descriptions[len(descriptions)-1])
}

func TestMoveHistoryPrune(t *testing.T) {
	h := NewMoveHistory(20)
	kept := receiptFor("kept")
	dropped := receiptFor("dropped")
	h.Push(kept)
	h.Push(dropped)

	h.Prune(func(id valueobjects.NoteID) bool {
		return id.Equals(kept.NoteID)
	})

	require.Equal(t, 1, h.Depth())
	record, _ := h.Peek()
	assert.Equal(t, `move "kept"`, record.Description)
}

func TestMoveHistoryClear(t *testing.T) {
	h := NewMoveHistory(20)
	h.Push(receiptFor("x"))
	h.Clear()
	assert.False(t, h.CanUndo())
}
