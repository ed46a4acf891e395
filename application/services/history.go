package services

import (
	"fmt"
	"sync"
	"time"

	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/valueobjects"
)

// defaultHistorySize bounds the undo stack when no config value is given
const defaultHistorySize = 20

// UndoRecord remembers one completed move so it can be reversed. The
// from-fields were captured before the tree changed; Description is a short
// human-readable line shown in the undo UI.
type UndoRecord struct {
	NoteID       valueobjects.NoteID
	FromParentID *valueobjects.NoteID
	FromPosition int
	ToParentID   *valueobjects.NoteID
	ToPosition   int
	Description  string
	RecordedAt   time.Time
}

// MoveHistory is a bounded LIFO stack of undo records. Only moves are
// recorded; content edits, adds and deletes are not undoable. When the stack
// is full the oldest record falls off the bottom.
type MoveHistory struct {
	mu       sync.Mutex
	records  []UndoRecord
	capacity int
}

// NewMoveHistory creates a history bounded to the given capacity
func NewMoveHistory(capacity int) *MoveHistory {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &MoveHistory{
		records:  make([]UndoRecord, 0, capacity),
		capacity: capacity,
	}
}

// Push records a completed move. Nil receipts (no-op moves) are ignored.
func (h *MoveHistory) Push(receipt *aggregates.MoveReceipt) {
	if receipt == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == h.capacity {
		copy(h.records, h.records[1:])
		h.records = h.records[:len(h.records)-1]
	}

	h.records = append(h.records, UndoRecord{
		NoteID:       receipt.NoteID,
		FromParentID: receipt.FromParentID,
		FromPosition: receipt.FromPosition,
		ToParentID:   receipt.ToParentID,
		ToPosition:   receipt.ToPosition,
		Description:  fmt.Sprintf("move %q", receipt.NoteLabel),
		RecordedAt:   time.Now(),
	})
}

// Pop removes and returns the most recent record
func (h *MoveHistory) Pop() (*UndoRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return nil, false
	}
	record := h.records[len(h.records)-1]
	h.records = h.records[:len(h.records)-1]
	return &record, true
}

// Peek returns the most recent record without removing it
func (h *MoveHistory) Peek() (*UndoRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return nil, false
	}
	record := h.records[len(h.records)-1]
	return &record, true
}

// Depth returns the number of undoable moves
func (h *MoveHistory) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// CanUndo reports whether any move can be undone
func (h *MoveHistory) CanUndo() bool {
	return h.Depth() > 0
}

// Descriptions returns the record descriptions, most recent first
func (h *MoveHistory) Descriptions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.records))
	for i := len(h.records) - 1; i >= 0; i-- {
		out = append(out, h.records[i].Description)
	}
	return out
}

// Clear drops all records, used when a different project is loaded
func (h *MoveHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}

// Prune drops records whose note no longer exists, so the undo stack never
// offers a move that is guaranteed to fail.
func (h *MoveHistory) Prune(exists func(valueobjects.NoteID) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.records[:0]
	for _, r := range h.records {
		if exists(r.NoteID) {
			kept = append(kept, r)
		}
	}
	h.records = kept
}
