package commands

import "outline-backend/pkg/utils"

// UndoMoveCommand reverses the most recent recorded move
type UndoMoveCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`

	// UndoneNoteID and Description are set by the handler on success
	UndoneNoteID string
	Description  string
}

// Validate checks the command's fields
func (c *UndoMoveCommand) Validate() error {
	return utils.ValidateStruct(c)
}
