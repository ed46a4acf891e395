package queries

import "outline-backend/pkg/utils"

// GetUndoStatusQuery reports the state of the undo stack
type GetUndoStatusQuery struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
}

// Validate checks the query's fields
func (q *GetUndoStatusQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// UndoStatusView is the query result, descriptions most recent first
type UndoStatusView struct {
	CanUndo      bool     `json:"can_undo"`
	Depth        int      `json:"depth"`
	Descriptions []string `json:"descriptions"`
}
