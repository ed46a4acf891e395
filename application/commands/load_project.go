package commands

import "outline-backend/pkg/utils"

// LoadProjectCommand replaces the workspace tree with the stored project.
// Undo history, expansion and selection reset.
type LoadProjectCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
}

// Validate checks the command's fields
func (c *LoadProjectCommand) Validate() error {
	return utils.ValidateStruct(c)
}
