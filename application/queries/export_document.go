package queries

import "outline-backend/pkg/utils"

// ExportDocumentQuery serializes the current tree into the transfer format
type ExportDocumentQuery struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
}

// Validate checks the query's fields
func (q *ExportDocumentQuery) Validate() error {
	return utils.ValidateStruct(q)
}
