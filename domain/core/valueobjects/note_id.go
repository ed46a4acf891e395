package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NoteID is a value object representing a unique note identifier
// Value objects are immutable and have no identity beyond their value
type NoteID struct {
	value string
}

// NewNoteID creates a new random NoteID
func NewNoteID() NoteID {
	return NoteID{value: uuid.New().String()}
}

// NewNoteIDFromString creates a NoteID from an existing string
func NewNoteIDFromString(id string) (NoteID, error) {
	if id == "" {
		return NoteID{}, errors.New("note ID cannot be empty")
	}
	if !isValidUUID(id) {
		return NoteID{}, errors.New("note ID must be a valid UUID")
	}
	return NoteID{value: id}, nil
}

// String returns the string representation of the NoteID
func (id NoteID) String() string {
	return id.value
}

// Equals checks if two NoteIDs are equal
func (id NoteID) Equals(other NoteID) bool {
	return id.value == other.value
}

// IsZero checks if the NoteID is the zero value
func (id NoteID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NoteID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NoteID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NoteID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
