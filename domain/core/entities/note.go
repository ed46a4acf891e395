package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	"outline-backend/domain/config"
	"outline-backend/domain/core/valueobjects"
	pkgerrors "outline-backend/pkg/errors"
)

// Note is a single node in the outline tree. It carries no parent pointer:
// membership is purely structural and owned by the Outline aggregate, which
// keeps the ordered child lists.
type Note struct {
	// Private fields ensure encapsulation
	id             valueobjects.NoteID
	content        string
	position       int
	isDiscussion   bool
	timeSet        *time.Time
	youtubeURL     string
	url            string
	urlDisplayText string
	images         []valueobjects.ImageRef
	createdAt      time.Time
	updatedAt      time.Time
}

// NotePatch describes a partial update to a note. Nil fields are preserved
// from the prior value, never wiped. Images follow the same rule: a nil
// slice pointer leaves the existing references untouched.
type NotePatch struct {
	Content        *string
	IsDiscussion   *bool
	TimeSet        *time.Time
	ClearTimeSet   bool
	YoutubeURL     *string
	URL            *string
	URLDisplayText *string
	Images         *[]valueobjects.ImageRef
}

// NewNote creates a fresh note with empty content. Position is assigned by
// the aggregate when the note is inserted into a sibling list.
func NewNote() *Note {
	now := time.Now()
	return &Note{
		id:        valueobjects.NewNoteID(),
		content:   "",
		position:  0,
		images:    []valueobjects.ImageRef{},
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructNote recreates a note from stored data with preserved timestamps
func ReconstructNote(
	id valueobjects.NoteID,
	content string,
	position int,
	isDiscussion bool,
	timeSet *time.Time,
	youtubeURL, url, urlDisplayText string,
	images []valueobjects.ImageRef,
	createdAt, updatedAt time.Time,
) (*Note, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("note ID cannot be empty")
	}
	if images == nil {
		images = []valueobjects.ImageRef{}
	}

	return &Note{
		id:             id,
		content:        content,
		position:       position,
		isDiscussion:   isDiscussion,
		timeSet:        timeSet,
		youtubeURL:     youtubeURL,
		url:            url,
		urlDisplayText: urlDisplayText,
		images:         images,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

// ID returns the note's unique identifier
func (n *Note) ID() valueobjects.NoteID {
	return n.id
}

// Content returns the note's text content
func (n *Note) Content() string {
	return n.content
}

// Position returns the note's zero-based rank among its siblings
func (n *Note) Position() int {
	return n.position
}

// IsDiscussion reports whether the note is flagged as a discussion item
func (n *Note) IsDiscussion() bool {
	return n.isDiscussion
}

// TimeSet returns the optional scheduled time, nil when unset
func (n *Note) TimeSet() *time.Time {
	return n.timeSet
}

// YoutubeURL returns the attached YouTube link, empty when unset
func (n *Note) YoutubeURL() string {
	return n.youtubeURL
}

// URL returns the attached link, empty when unset
func (n *Note) URL() string {
	return n.url
}

// URLDisplayText returns the display text for the attached link
func (n *Note) URLDisplayText() string {
	return n.urlDisplayText
}

// Images returns the ordered image references
func (n *Note) Images() []valueobjects.ImageRef {
	// Return a copy to maintain encapsulation
	images := make([]valueobjects.ImageRef, len(n.images))
	copy(images, n.images)
	return images
}

// CreatedAt returns when the note was created
func (n *Note) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the note was last updated
func (n *Note) UpdatedAt() time.Time {
	return n.updatedAt
}

// SetPosition assigns the note's rank among its siblings. Only the position
// normalizer should call this.
func (n *Note) SetPosition(position int) {
	n.position = position
}

// Apply merges a patch into the note. Omitted fields keep their prior
// values; the patch never touches tree structure.
func (n *Note) Apply(patch NotePatch, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if patch.Content != nil {
		if len(*patch.Content) > cfg.MaxContentLength {
			return pkgerrors.NewValidationError("content exceeds maximum length")
		}
		if !cfg.AllowEmptyContent && strings.TrimSpace(*patch.Content) == "" {
			return pkgerrors.NewValidationError("content cannot be empty")
		}
		n.content = *patch.Content
	}
	if patch.IsDiscussion != nil {
		n.isDiscussion = *patch.IsDiscussion
	}
	if patch.ClearTimeSet {
		n.timeSet = nil
	} else if patch.TimeSet != nil {
		t := *patch.TimeSet
		n.timeSet = &t
	}
	if patch.YoutubeURL != nil {
		n.youtubeURL = *patch.YoutubeURL
	}
	if patch.URL != nil {
		n.url = *patch.URL
	}
	if patch.URLDisplayText != nil {
		n.urlDisplayText = *patch.URLDisplayText
	}
	if patch.Images != nil {
		if len(*patch.Images) > cfg.MaxImagesPerNote {
			return pkgerrors.NewValidationError("too many images on note")
		}
		images := make([]valueobjects.ImageRef, len(*patch.Images))
		copy(images, *patch.Images)
		n.images = images
	}

	n.updatedAt = time.Now()
	return nil
}

// Clone returns a deep copy of the note
func (n *Note) Clone() *Note {
	clone := *n
	clone.images = make([]valueobjects.ImageRef, len(n.images))
	copy(clone.images, n.images)
	if n.timeSet != nil {
		t := *n.timeSet
		clone.timeSet = &t
	}
	return &clone
}

// Label renders a short human-readable handle for the note, used in undo
// descriptions and log lines.
func (n *Note) Label() string {
	return Label(n.content)
}

// labelMaxRunes caps label length so undo descriptions stay one line.
const labelMaxRunes = 40

// Label derives a display label from note content: the first line,
// truncated, or "untitled" when there is nothing to show.
func Label(content string) string {
	line := content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "untitled"
	}
	if utf8.RuneCountInString(line) > labelMaxRunes {
		runes := []rune(line)
		return string(runes[:labelMaxRunes]) + "..."
	}
	return line
}
