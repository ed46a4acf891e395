package commands

import "outline-backend/pkg/utils"

// SaveProjectCommand persists the project immediately, bypassing the
// autosave debounce.
type SaveProjectCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`

	// Sequence is set by the handler to the stored save sequence
	Sequence uint64
}

// Validate checks the command's fields
func (c *SaveProjectCommand) Validate() error {
	return utils.ValidateStruct(c)
}
