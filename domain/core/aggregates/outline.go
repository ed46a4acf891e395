package aggregates

import (
	"sort"
	"time"

	"outline-backend/domain/config"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
	"outline-backend/domain/events"
	pkgerrors "outline-backend/pkg/errors"
)

// rootKey indexes the top-level sibling list in the children arena.
const rootKey = ""

// Outline is the aggregate root for a project's note tree. Notes live in an
// arena keyed by ID; ordering is held in per-parent child-ID lists, so cycle
// checks and reparenting are index lookups rather than pointer chasing.
//
// The aggregate enforces the structural invariants: IDs are unique, the
// parent-child relation is acyclic, and every sibling list carries contiguous
// positions 0..n-1 in display order. Mutating an Outline that observers hold
// a reference to is not supported; the editing session clones the aggregate,
// mutates the clone and swaps it in.
type Outline struct {
	notes    map[valueobjects.NoteID]*entities.Note
	children map[string][]valueobjects.NoteID
	cfg      *config.DomainConfig
	events   []events.DomainEvent

	updatedAt time.Time
}

// MoveReceipt captures where a note came from and where it landed. The undo
// history is built from these; the from-fields are recorded before the tree
// is touched.
type MoveReceipt struct {
	NoteID       valueobjects.NoteID
	NoteLabel    string
	FromParentID *valueobjects.NoteID
	FromPosition int
	ToParentID   *valueobjects.NoteID
	ToPosition   int
}

// NewOutline creates an empty outline
func NewOutline(cfg *config.DomainConfig) *Outline {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Outline{
		notes:     make(map[valueobjects.NoteID]*entities.Note),
		children:  make(map[string][]valueobjects.NoteID),
		cfg:       cfg,
		events:    []events.DomainEvent{},
		updatedAt: time.Now(),
	}
}

// AddNote creates a note with empty content under the given parent (nil for
// root). When insertPos is omitted the note is appended at root level but
// prepended under an existing parent, matching how an outline editor drops a
// fresh child above older ones.
func (o *Outline) AddNote(parentID *valueobjects.NoteID, insertPos *int) (*entities.Note, error) {
	if parentID != nil {
		if _, exists := o.notes[*parentID]; !exists {
			return nil, pkgerrors.NewNotFoundError("parent note")
		}
		if o.depthOf(*parentID)+1 >= o.cfg.MaxOutlineDepth {
			return nil, pkgerrors.NewValidationError("maximum outline depth exceeded")
		}
	}
	if len(o.notes) >= o.cfg.MaxNotesPerOutline {
		return nil, pkgerrors.NewValidationError("maximum notes per outline exceeded")
	}

	key := siblingKey(parentID)
	siblings := o.children[key]

	pos := 0
	if insertPos != nil {
		pos = clamp(*insertPos, 0, len(siblings))
	} else if parentID == nil {
		pos = len(siblings)
	}

	note := entities.NewNote()
	o.notes[note.ID()] = note
	o.children[key] = spliceIn(siblings, note.ID(), pos)
	note.SetPosition(pos)
	o.normalizePositions()
	o.updatedAt = time.Now()

	parentStr := ""
	if parentID != nil {
		parentStr = parentID.String()
	}
	o.addEvent(events.NewNoteAdded(note.ID(), parentStr, note.Position(), o.updatedAt))

	return note, nil
}

// UpdateNote merges a patch into the note with the given ID. Structure is
// never touched: children stay where they are and omitted fields, images
// included, keep their prior values.
func (o *Outline) UpdateNote(id valueobjects.NoteID, patch entities.NotePatch) error {
	note, exists := o.notes[id]
	if !exists {
		return pkgerrors.NewNotFoundError("note")
	}

	if err := note.Apply(patch, o.cfg); err != nil {
		return err
	}

	o.updatedAt = time.Now()
	o.addEvent(events.NewNoteUpdated(id, o.updatedAt))
	return nil
}

// DeleteNote removes a note. With cascade the whole subtree goes; without it
// the note's children are spliced into the exact sibling slot the note
// occupied, preserving their order, so nothing is orphaned.
func (o *Outline) DeleteNote(id valueobjects.NoteID, cascade bool) error {
	if _, exists := o.notes[id]; !exists {
		return pkgerrors.NewNotFoundError("note")
	}

	key, idx := o.locate(id)
	promoted := 0

	if cascade {
		o.deleteSubtree(id)
		o.children[key] = spliceOut(o.children[key], idx)
	} else {
		childIDs := o.children[id.String()]
		promoted = len(childIDs)

		siblings := spliceOut(o.children[key], idx)
		// Re-splice the children into the vacated slot in their own order.
		expanded := make([]valueobjects.NoteID, 0, len(siblings)+len(childIDs))
		expanded = append(expanded, siblings[:idx]...)
		expanded = append(expanded, childIDs...)
		expanded = append(expanded, siblings[idx:]...)
		o.children[key] = expanded

		// Promoted children keep their relative order but take over the
		// deleted note's position so the normalizer slots them correctly.
		for i, childID := range childIDs {
			o.notes[childID].SetPosition(idx + i)
		}

		delete(o.children, id.String())
		delete(o.notes, id)
	}

	o.normalizePositions()
	o.updatedAt = time.Now()
	o.addEvent(events.NewNoteDeleted(id, cascade, promoted, o.updatedAt))
	return nil
}

// MoveNote detaches a note (subtree intact) and reinserts it under the
// target parent at the given position. A nil target means root. Moves that
// would make the note its own ancestor are rejected with the tree untouched;
// dropping a note onto itself is a no-op and returns a nil receipt.
func (o *Outline) MoveNote(id valueobjects.NoteID, targetParentID *valueobjects.NoteID, position int) (*MoveReceipt, error) {
	note, exists := o.notes[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("note")
	}

	if targetParentID != nil {
		if _, exists := o.notes[*targetParentID]; !exists {
			return nil, pkgerrors.NewNotFoundError("target parent")
		}
		if targetParentID.Equals(id) {
			return nil, nil
		}
		if o.isDescendant(id, *targetParentID) {
			return nil, pkgerrors.NewStructuralError("invalid move: cannot move a note into its own descendant")
		}
		if o.depthOf(*targetParentID)+1+o.subtreeHeight(id) >= o.cfg.MaxOutlineDepth {
			return nil, pkgerrors.NewValidationError("maximum outline depth exceeded")
		}
	}

	fromKey, fromIdx := o.locate(id)
	receipt := &MoveReceipt{
		NoteID:       id,
		NoteLabel:    note.Label(),
		FromParentID: parentIDFromKey(fromKey),
		FromPosition: fromIdx,
		ToParentID:   copyID(targetParentID),
	}

	o.children[fromKey] = spliceOut(o.children[fromKey], fromIdx)

	toKey := siblingKey(targetParentID)
	pos := clamp(position, 0, len(o.children[toKey]))
	o.children[toKey] = spliceIn(o.children[toKey], id, pos)
	note.SetPosition(pos)
	receipt.ToPosition = pos

	o.normalizePositions()
	o.updatedAt = time.Now()

	fromStr, toStr := "", ""
	if receipt.FromParentID != nil {
		fromStr = receipt.FromParentID.String()
	}
	if targetParentID != nil {
		toStr = targetParentID.String()
	}
	o.addEvent(events.NewNoteMoved(id, fromStr, fromIdx, toStr, pos, o.updatedAt))

	return receipt, nil
}

// Graft appends an already-reconstructed note under the given parent without
// raising events. Used when rebuilding an outline from a stored or imported
// document; callers finish with NormalizePositions.
func (o *Outline) Graft(note *entities.Note, parentID *valueobjects.NoteID) error {
	if note == nil {
		return pkgerrors.NewValidationError("note cannot be nil")
	}
	if _, exists := o.notes[note.ID()]; exists {
		return pkgerrors.NewConflictError("note already exists in outline")
	}
	if parentID != nil {
		if _, exists := o.notes[*parentID]; !exists {
			return pkgerrors.NewNotFoundError("parent note")
		}
	}
	if len(o.notes) >= o.cfg.MaxNotesPerOutline {
		return pkgerrors.NewValidationError("maximum notes per outline exceeded")
	}

	key := siblingKey(parentID)
	o.notes[note.ID()] = note
	o.children[key] = append(o.children[key], note.ID())
	return nil
}

// Note returns the note with the given ID
func (o *Outline) Note(id valueobjects.NoteID) (*entities.Note, error) {
	note, exists := o.notes[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("note")
	}
	return note, nil
}

// HasNote checks if a note exists without error
func (o *Outline) HasNote(id valueobjects.NoteID) bool {
	_, exists := o.notes[id]
	return exists
}

// Roots returns the ordered top-level note IDs
func (o *Outline) Roots() []valueobjects.NoteID {
	return copyIDs(o.children[rootKey])
}

// ChildrenOf returns the ordered child IDs of a note (nil parent for root)
func (o *Outline) ChildrenOf(parentID *valueobjects.NoteID) []valueobjects.NoteID {
	return copyIDs(o.children[siblingKey(parentID)])
}

// ParentOf reports the parent of a note; a nil parent with ok=true means the
// note sits at root level.
func (o *Outline) ParentOf(id valueobjects.NoteID) (*valueobjects.NoteID, bool) {
	if _, exists := o.notes[id]; !exists {
		return nil, false
	}
	key, _ := o.locate(id)
	return parentIDFromKey(key), true
}

// Depth returns the 0-based nesting depth of a note (-1 when absent)
func (o *Outline) Depth(id valueobjects.NoteID) int {
	if _, exists := o.notes[id]; !exists {
		return -1
	}
	return o.depthOf(id)
}

// MaxDepth returns the deepest 0-based nesting level in the tree, 0 for an
// empty or flat outline.
func (o *Outline) MaxDepth() int {
	max := 0
	o.walk(func(id valueobjects.NoteID, depth int) {
		if depth > max {
			max = depth
		}
	})
	return max
}

// IDsAboveDepth returns every note ID whose depth is strictly less than the
// given level, i.e. the ancestors whose expansion reveals level-L notes.
func (o *Outline) IDsAboveDepth(level int) []valueobjects.NoteID {
	ids := []valueobjects.NoteID{}
	o.walk(func(id valueobjects.NoteID, depth int) {
		if depth < level {
			ids = append(ids, id)
		}
	})
	return ids
}

// AllNoteIDs returns every note ID in depth-first display order
func (o *Outline) AllNoteIDs() []valueobjects.NoteID {
	ids := make([]valueobjects.NoteID, 0, len(o.notes))
	o.walk(func(id valueobjects.NoteID, depth int) {
		ids = append(ids, id)
	})
	return ids
}

// NoteCount returns the number of notes in the outline
func (o *Outline) NoteCount() int {
	return len(o.notes)
}

// UpdatedAt returns when the outline last changed
func (o *Outline) UpdatedAt() time.Time {
	return o.updatedAt
}

// Clone returns a deep copy of the outline. The clone starts with an empty
// uncommitted-event list; events belong to the mutation session that raised
// them, not to the snapshot.
func (o *Outline) Clone() *Outline {
	clone := &Outline{
		notes:     make(map[valueobjects.NoteID]*entities.Note, len(o.notes)),
		children:  make(map[string][]valueobjects.NoteID, len(o.children)),
		cfg:       o.cfg,
		events:    []events.DomainEvent{},
		updatedAt: o.updatedAt,
	}
	for id, note := range o.notes {
		clone.notes[id] = note.Clone()
	}
	for key, ids := range o.children {
		clone.children[key] = copyIDs(ids)
	}
	return clone
}

// NormalizePositions renumbers every sibling list to contiguous 0-based
// positions, preserving intended order by sorting on prior position first.
// Mutating operations call this internally; it is exported for callers that
// rebuild an outline via Graft.
func (o *Outline) NormalizePositions() {
	o.normalizePositions()
}

// Validate ensures the structural invariants hold: every referenced ID
// exists, every note is reachable exactly once from the roots (acyclic, no
// orphans), and sibling positions are contiguous from zero.
func (o *Outline) Validate() error {
	seen := make(map[valueobjects.NoteID]bool, len(o.notes))

	for key, ids := range o.children {
		if key != rootKey {
			parentID, err := valueobjects.NewNoteIDFromString(key)
			if err != nil {
				return pkgerrors.NewInternalError("malformed parent key in child index")
			}
			if _, exists := o.notes[parentID]; !exists {
				return pkgerrors.NewStructuralError("child list references missing parent " + key)
			}
		}
		for _, id := range ids {
			if _, exists := o.notes[id]; !exists {
				return pkgerrors.NewStructuralError("child list references missing note " + id.String())
			}
			if seen[id] {
				return pkgerrors.NewStructuralError("note appears in more than one sibling list: " + id.String())
			}
			seen[id] = true
		}
	}

	if len(seen) != len(o.notes) {
		return pkgerrors.NewStructuralError("outline contains unreachable notes")
	}

	// Reachability from the roots rules out cycles among non-root notes.
	reached := 0
	o.walk(func(id valueobjects.NoteID, depth int) { reached++ })
	if reached != len(o.notes) {
		return pkgerrors.NewStructuralError("outline contains a cycle")
	}

	for _, ids := range o.children {
		for i, id := range ids {
			if o.notes[id].Position() != i {
				return pkgerrors.NewStructuralError("sibling positions are not contiguous")
			}
		}
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (o *Outline) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(o.events))
	copy(out, o.events)
	return out
}

// MarkEventsAsCommitted clears the uncommitted events
func (o *Outline) MarkEventsAsCommitted() {
	o.events = []events.DomainEvent{}
}

// Private helper methods

func (o *Outline) addEvent(event events.DomainEvent) {
	o.events = append(o.events, event)
}

// locate finds the sibling list and index holding the given ID. Callers must
// have checked the note exists.
func (o *Outline) locate(id valueobjects.NoteID) (string, int) {
	for key, ids := range o.children {
		for i, candidate := range ids {
			if candidate.Equals(id) {
				return key, i
			}
		}
	}
	return rootKey, -1
}

// isDescendant reports whether candidate lies in the subtree rooted at
// ancestorID. Bounded depth-first descent over the child index.
func (o *Outline) isDescendant(ancestorID, candidate valueobjects.NoteID) bool {
	stack := copyIDs(o.children[ancestorID.String()])
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id.Equals(candidate) {
			return true
		}
		stack = append(stack, o.children[id.String()]...)
	}
	return false
}

func (o *Outline) depthOf(id valueobjects.NoteID) int {
	depth := 0
	current := id
	for {
		key, _ := o.locate(current)
		if key == rootKey {
			return depth
		}
		parentID, err := valueobjects.NewNoteIDFromString(key)
		if err != nil {
			return depth
		}
		depth++
		current = parentID
	}
}

// subtreeHeight returns the number of levels below the note (0 for a leaf)
func (o *Outline) subtreeHeight(id valueobjects.NoteID) int {
	max := 0
	for _, childID := range o.children[id.String()] {
		if h := o.subtreeHeight(childID) + 1; h > max {
			max = h
		}
	}
	return max
}

// deleteSubtree removes the note and everything under it from both arenas.
// The caller removes the note's own sibling-list entry.
func (o *Outline) deleteSubtree(id valueobjects.NoteID) {
	for _, childID := range o.children[id.String()] {
		o.deleteSubtree(childID)
	}
	delete(o.children, id.String())
	delete(o.notes, id)
}

// walk visits every note depth-first in display order
func (o *Outline) walk(visit func(id valueobjects.NoteID, depth int)) {
	var descend func(ids []valueobjects.NoteID, depth int)
	descend = func(ids []valueobjects.NoteID, depth int) {
		for _, id := range ids {
			visit(id, depth)
			descend(o.children[id.String()], depth+1)
		}
	}
	descend(o.children[rootKey], 0)
}

// normalizePositions runs globally rather than incrementally: moves,
// multi-child deletes and undo can each perturb several sibling lists at
// once, and patching a recursive structure piecemeal is error-prone. O(n)
// over all notes, fine for outlines of a few thousand notes.
func (o *Outline) normalizePositions() {
	for key, ids := range o.children {
		if len(ids) == 0 {
			delete(o.children, key)
			continue
		}
		sort.SliceStable(ids, func(i, j int) bool {
			return o.notes[ids[i]].Position() < o.notes[ids[j]].Position()
		})
		for i, id := range ids {
			o.notes[id].SetPosition(i)
		}
	}
}

// Package-level helpers

func siblingKey(parentID *valueobjects.NoteID) string {
	if parentID == nil {
		return rootKey
	}
	return parentID.String()
}

func parentIDFromKey(key string) *valueobjects.NoteID {
	if key == rootKey {
		return nil
	}
	id, err := valueobjects.NewNoteIDFromString(key)
	if err != nil {
		return nil
	}
	return &id
}

func copyID(id *valueobjects.NoteID) *valueobjects.NoteID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyIDs(ids []valueobjects.NoteID) []valueobjects.NoteID {
	out := make([]valueobjects.NoteID, len(ids))
	copy(out, ids)
	return out
}

func spliceIn(ids []valueobjects.NoteID, id valueobjects.NoteID, pos int) []valueobjects.NoteID {
	out := make([]valueobjects.NoteID, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, id)
	out = append(out, ids[pos:]...)
	return out
}

func spliceOut(ids []valueobjects.NoteID, idx int) []valueobjects.NoteID {
	out := make([]valueobjects.NoteID, 0, len(ids)-1)
	out = append(out, ids[:idx]...)
	out = append(out, ids[idx+1:]...)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
