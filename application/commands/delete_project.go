package commands

import "outline-backend/pkg/utils"

// DeleteProjectCommand removes a stored project and closes its workspace.
// Unsaved changes are discarded with it.
type DeleteProjectCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
}

// Validate checks the command's fields
func (c *DeleteProjectCommand) Validate() error {
	return utils.ValidateStruct(c)
}
