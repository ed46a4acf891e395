package commands

import (
	"outline-backend/application/transfer"
	pkgerrors "outline-backend/pkg/errors"
	"outline-backend/pkg/utils"
)

// ImportDocumentCommand replaces the workspace tree with an imported
// document. Notes get fresh IDs and image references are dropped.
type ImportDocumentCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
	Document  *transfer.Document
}

// Validate checks the command's fields
func (c *ImportDocumentCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Document == nil {
		return pkgerrors.NewValidationError("document is required")
	}
	return nil
}
