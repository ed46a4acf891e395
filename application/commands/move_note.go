package commands

import "outline-backend/pkg/utils"

// MoveNoteCommand reparents a note. A nil TargetParentID moves to root
// level. GestureToken ties the request to a drag session; it is required
// while a drag is in flight and consumed on success.
type MoveNoteCommand struct {
	ProjectID      string  `validate:"required"`
	UserID         string  `validate:"required"`
	NoteID         string  `validate:"required,uuid"`
	TargetParentID *string `validate:"omitempty,uuid"`
	Position       int     `validate:"gte=0"`
	GestureToken   string
}

// Validate checks the command's fields
func (c *MoveNoteCommand) Validate() error {
	return utils.ValidateStruct(c)
}
