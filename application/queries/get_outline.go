package queries

import "outline-backend/pkg/utils"

// GetOutlineQuery returns the project's tree as the view layer renders it:
// nested notes in display order, each annotated with its expansion state,
// plus the session's level cursor, selection and dirty flag.
type GetOutlineQuery struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
}

// Validate checks the query's fields
func (q *GetOutlineQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// OutlineView is the query result
type OutlineView struct {
	ProjectID    string     `json:"project_id"`
	Name         string     `json:"name"`
	NoteCount    int        `json:"note_count"`
	Dirty        bool       `json:"dirty"`
	Sequence     uint64     `json:"sequence"`
	SelectedID   *string    `json:"selected_id"`
	CurrentLevel int        `json:"current_level"`
	MaxDepth     int        `json:"max_depth"`
	CanUndo      bool       `json:"can_undo"`
	UndoLabel    string     `json:"undo_label"`
	Notes        []NoteView `json:"notes"`
}

// NoteView is one note in the rendered tree
type NoteView struct {
	ID             string      `json:"id"`
	Content        string      `json:"content"`
	Position       int         `json:"position"`
	IsDiscussion   bool        `json:"is_discussion"`
	TimeSet        *string     `json:"time_set"`
	YoutubeURL     string      `json:"youtube_url"`
	URL            string      `json:"url"`
	URLDisplayText string      `json:"url_display_text"`
	Images         []ImageView `json:"images"`
	Expanded       bool        `json:"expanded"`
	Children       []NoteView  `json:"children"`
}

// ImageView is an image reference in the rendered tree
type ImageView struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
