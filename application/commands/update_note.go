package commands

import (
	"time"

	"outline-backend/pkg/utils"
)

// UpdateNoteCommand merges field changes into a note. Nil fields are left
// untouched; ClearTimeSet removes the scheduled time explicitly since a nil
// TimeSet means "no change".
type UpdateNoteCommand struct {
	ProjectID string `validate:"required"`
	UserID    string `validate:"required"`
	NoteID    string `validate:"required,uuid"`

	Content        *string
	IsDiscussion   *bool
	TimeSet        *time.Time
	ClearTimeSet   bool
	YoutubeURL     *string `validate:"omitempty"`
	URL            *string `validate:"omitempty"`
	URLDisplayText *string
	Images         *[]ImagePayload
}

// ImagePayload is an image reference in a command
type ImagePayload struct {
	Key string `validate:"required"`
	URL string
}

// Validate checks the command's fields
func (c *UpdateNoteCommand) Validate() error {
	return utils.ValidateStruct(c)
}
