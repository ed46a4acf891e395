package commands

import "outline-backend/pkg/utils"

// DeleteNoteCommand removes a note. With Cascade the whole subtree goes;
// without it the children are promoted into the deleted note's slot.
type DeleteNoteCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
	NoteID    string `validate:"required,uuid"`
	Cascade   bool
}

// Validate checks the command's fields
func (c *DeleteNoteCommand) Validate() error {
	return utils.ValidateStruct(c)
}
