package commands

import "outline-backend/pkg/utils"

// AddNoteCommand creates an empty note in a project's outline. A nil
// ParentID adds at root level; a nil Position takes the default slot
// (appended at root, prepended under a parent).
type AddNoteCommand struct {
	ProjectID string  `validate:"required"`
	UserID    string  `validate:"required"`
	ParentID  *string `validate:"omitempty,uuid"`
	Position  *int    `validate:"omitempty,gte=0"`

	// CreatedID is set by the handler on success
	CreatedID string
}

// Validate checks the command's fields
func (c *AddNoteCommand) Validate() error {
	return utils.ValidateStruct(c)
}
