package queries

import "outline-backend/pkg/utils"

// ListProjectsQuery returns the metadata of every project the user owns
type ListProjectsQuery struct {
	UserID string `validate:"required"`
}

// Validate checks the query's fields
func (q *ListProjectsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ProjectListItem is one project in the listing
type ProjectListItem struct {
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	NoteCount   int    `json:"note_count"`
	UpdatedAt   string `json:"updated_at"`
}
