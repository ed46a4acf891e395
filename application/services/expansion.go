package services

import (
	"sync"

	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/valueobjects"
)

// ExpansionState tracks which notes are unfolded in the outline view. It
// keeps two things in step: the explicit expanded set, and a level cursor
// that the expand-more/collapse-one controls walk up and down.
//
// Level L means "notes at depth L are visible": every note at depth < L is
// in the expanded set. Toggling a single note adjusts the set without moving
// the cursor.
type ExpansionState struct {
	mu           sync.Mutex
	expanded     map[valueobjects.NoteID]struct{}
	currentLevel int
	maxDepth     int
}

// NewExpansionState creates a fully-collapsed state
func NewExpansionState() *ExpansionState {
	return &ExpansionState{
		expanded: make(map[valueobjects.NoteID]struct{}),
	}
}

// CollapseAll folds everything and resets the level cursor
func (s *ExpansionState) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = make(map[valueobjects.NoteID]struct{})
	s.currentLevel = 0
}

// ExpandAll unfolds every note and moves the cursor to the deepest level
func (s *ExpansionState) ExpandAll(o *aggregates.Outline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expanded = make(map[valueobjects.NoteID]struct{})
	for _, id := range o.AllNoteIDs() {
		s.expanded[id] = struct{}{}
	}
	s.maxDepth = o.MaxDepth()
	s.currentLevel = s.maxDepth
}

// ExpandToLevel unfolds exactly the ancestors needed to reveal notes at the
// given depth. The level is clamped to the tree's actual depth.
func (s *ExpansionState) ExpandToLevel(o *aggregates.Outline, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = o.MaxDepth()
	s.expandToLevelLocked(o, level)
}

// ExpandOneMore unfolds one level deeper, clamped at the tree's depth
func (s *ExpansionState) ExpandOneMore(o *aggregates.Outline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = o.MaxDepth()
	s.expandToLevelLocked(o, s.currentLevel+1)
}

// CollapseOne folds one level back up, clamped at zero
func (s *ExpansionState) CollapseOne(o *aggregates.Outline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = o.MaxDepth()
	s.expandToLevelLocked(o, s.currentLevel-1)
}

// Toggle flips a single note's expansion without moving the level cursor
func (s *ExpansionState) Toggle(id valueobjects.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expanded[id]; ok {
		delete(s.expanded, id)
	} else {
		s.expanded[id] = struct{}{}
	}
}

// IsExpanded reports whether a note is unfolded
func (s *ExpansionState) IsExpanded(id valueobjects.NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.expanded[id]
	return ok
}

// CurrentLevel returns the level cursor
func (s *ExpansionState) CurrentLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLevel
}

// MaxDepth returns the deepest level observed at the last recalculation
func (s *ExpansionState) MaxDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDepth
}

// ExpandedIDs returns the unfolded note IDs in no particular order
func (s *ExpansionState) ExpandedIDs() []valueobjects.NoteID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]valueobjects.NoteID, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	return ids
}

// Recalculate reconciles the state with the tree after a mutation: entries
// for deleted notes are pruned, the max depth is recomputed, and the level
// cursor is clamped when the tree got shallower.
func (s *ExpansionState) Recalculate(o *aggregates.Outline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.expanded {
		if !o.HasNote(id) {
			delete(s.expanded, id)
		}
	}

	s.maxDepth = o.MaxDepth()
	if s.currentLevel > s.maxDepth {
		s.currentLevel = s.maxDepth
	}
}

// expandToLevelLocked clamps the level and rebuilds the expanded set. The
// caller holds the mutex and has refreshed maxDepth.
func (s *ExpansionState) expandToLevelLocked(o *aggregates.Outline, level int) {
	if level < 0 {
		level = 0
	}
	if level > s.maxDepth {
		level = s.maxDepth
	}

	s.expanded = make(map[valueobjects.NoteID]struct{})
	for _, id := range o.IDsAboveDepth(level) {
		s.expanded[id] = struct{}{}
	}
	s.currentLevel = level
}
