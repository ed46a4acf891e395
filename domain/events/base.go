package events

import (
	"time"

	"outline-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Note Events

// NoteAdded is raised when a new note is created in the outline
type NoteAdded struct {
	BaseEvent
	NoteID   valueobjects.NoteID `json:"note_id"`
	ParentID string              `json:"parent_id,omitempty"`
	Position int                 `json:"position"`
}

// NewNoteAdded creates a NoteAdded event
func NewNoteAdded(noteID valueobjects.NoteID, parentID string, position int, timestamp time.Time) NoteAdded {
	return NoteAdded{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   "note.added",
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID:   noteID,
		ParentID: parentID,
		Position: position,
	}
}

// NoteUpdated is raised when note fields are merged
type NoteUpdated struct {
	BaseEvent
	NoteID valueobjects.NoteID `json:"note_id"`
}

// NewNoteUpdated creates a NoteUpdated event
func NewNoteUpdated(noteID valueobjects.NoteID, timestamp time.Time) NoteUpdated {
	return NoteUpdated{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   "note.updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID: noteID,
	}
}

// NoteDeleted is raised when a note is removed from the outline
type NoteDeleted struct {
	BaseEvent
	NoteID   valueobjects.NoteID `json:"note_id"`
	Cascade  bool                `json:"cascade"`
	Promoted int                 `json:"promoted"`
}

// NewNoteDeleted creates a NoteDeleted event. Promoted counts the children
// spliced into the deleted note's former slot when cascade is off.
func NewNoteDeleted(noteID valueobjects.NoteID, cascade bool, promoted int, timestamp time.Time) NoteDeleted {
	return NoteDeleted{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   "note.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID:   noteID,
		Cascade:  cascade,
		Promoted: promoted,
	}
}

// NoteMoved is raised when a note is reparented
type NoteMoved struct {
	BaseEvent
	NoteID       valueobjects.NoteID `json:"note_id"`
	FromParentID string              `json:"from_parent_id,omitempty"`
	FromPosition int                 `json:"from_position"`
	ToParentID   string              `json:"to_parent_id,omitempty"`
	ToPosition   int                 `json:"to_position"`
}

// NewNoteMoved creates a NoteMoved event
func NewNoteMoved(noteID valueobjects.NoteID, fromParentID string, fromPosition int, toParentID string, toPosition int, timestamp time.Time) NoteMoved {
	return NoteMoved{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   "note.moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID:       noteID,
		FromParentID: fromParentID,
		FromPosition: fromPosition,
		ToParentID:   toParentID,
		ToPosition:   toPosition,
	}
}

// MoveUndone is raised when the most recent move is reversed
type MoveUndone struct {
	BaseEvent
	NoteID valueobjects.NoteID `json:"note_id"`
}

// NewMoveUndone creates a MoveUndone event
func NewMoveUndone(noteID valueobjects.NoteID, timestamp time.Time) MoveUndone {
	return MoveUndone{
		BaseEvent: BaseEvent{
			AggregateID: noteID.String(),
			EventType:   "note.move_undone",
			Timestamp:   timestamp,
			Version:     1,
		},
		NoteID: noteID,
	}
}

// Outline Events

// OutlineSaved is raised after a successful persistence save
type OutlineSaved struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NoteCount int    `json:"note_count"`
	Sequence  uint64 `json:"sequence"`
}

// NewOutlineSaved creates an OutlineSaved event
func NewOutlineSaved(projectID string, noteCount int, sequence uint64, timestamp time.Time) OutlineSaved {
	return OutlineSaved{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "outline.saved",
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectID: projectID,
		NoteCount: noteCount,
		Sequence:  sequence,
	}
}

// OutlineLoaded is raised when a project's tree replaces the working copy
type OutlineLoaded struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NoteCount int    `json:"note_count"`
}

// NewOutlineLoaded creates an OutlineLoaded event
func NewOutlineLoaded(projectID string, noteCount int, timestamp time.Time) OutlineLoaded {
	return OutlineLoaded{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "outline.loaded",
			Timestamp:   timestamp,
			Version:     1,
		},
		ProjectID: projectID,
		NoteCount: noteCount,
	}
}
