package handlers

import (
	"outline-backend/domain/core/valueobjects"
	apperrors "outline-backend/pkg/errors"
)

// parseNoteID converts a path parameter into a note ID
func parseNoteID(raw string) (valueobjects.NoteID, error) {
	id, err := valueobjects.NewNoteIDFromString(raw)
	if err != nil {
		return valueobjects.NoteID{}, apperrors.NewValidationError("invalid note id").WithCause(err)
	}
	return id, nil
}
