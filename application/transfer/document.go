package transfer

import (
	"time"

	"outline-backend/domain/config"
	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/validators"
	"outline-backend/domain/core/valueobjects"
	pkgerrors "outline-backend/pkg/errors"
	"outline-backend/pkg/utils"
)

// Document is the serialized form of an outline, used both for persistence
// and for user-facing export/import. The field order below is the wire
// order; it is part of the format and must not be rearranged.
type Document struct {
	Notes []NoteDoc `json:"notes"`
}

// NoteDoc is one note in a document, children nested in display order
type NoteDoc struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Position       int        `json:"position"`
	IsDiscussion   bool       `json:"is_discussion"`
	TimeSet        *string    `json:"time_set"`
	YoutubeURL     string     `json:"youtube_url"`
	URL            string     `json:"url"`
	URLDisplayText string     `json:"url_display_text"`
	Images         []ImageDoc `json:"images"`
	Children       []NoteDoc  `json:"children"`
}

// ImageDoc is a stored image reference
type ImageDoc struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Export serializes an outline into a document. Children appear nested in
// display order with their normalized positions.
func Export(o *aggregates.Outline) *Document {
	if o == nil {
		return &Document{Notes: []NoteDoc{}}
	}
	return &Document{Notes: exportLevel(o, nil)}
}

func exportLevel(o *aggregates.Outline, parentID *valueobjects.NoteID) []NoteDoc {
	ids := o.ChildrenOf(parentID)
	docs := make([]NoteDoc, 0, len(ids))
	for _, id := range ids {
		note, err := o.Note(id)
		if err != nil {
			continue
		}

		var timeSet *string
		if ts := note.TimeSet(); ts != nil {
			s := utils.FormatRFC3339(*ts)
			timeSet = &s
		}

		images := make([]ImageDoc, 0, len(note.Images()))
		for _, ref := range note.Images() {
			images = append(images, ImageDoc{Key: ref.Key(), URL: ref.URL()})
		}

		childID := id
		docs = append(docs, NoteDoc{
			ID:             id.String(),
			Content:        note.Content(),
			Position:       note.Position(),
			IsDiscussion:   note.IsDiscussion(),
			TimeSet:        timeSet,
			YoutubeURL:     note.YoutubeURL(),
			URL:            note.URL(),
			URLDisplayText: note.URLDisplayText(),
			Images:         images,
			Children:       exportLevel(o, &childID),
		})
	}
	return docs
}

// ToOutline rebuilds an outline from a stored document, preserving note IDs
// and image references. Used on project load.
func ToOutline(doc *Document, cfg *config.DomainConfig) (*aggregates.Outline, error) {
	return rebuild(doc, cfg, false)
}

// Import rebuilds an outline from an external document. Every note gets a
// fresh ID so an import can never collide with existing trees, and image
// references are dropped since they point at another project's storage.
func Import(doc *Document, cfg *config.DomainConfig) (*aggregates.Outline, error) {
	return rebuild(doc, cfg, true)
}

func rebuild(doc *Document, cfg *config.DomainConfig, fresh bool) (*aggregates.Outline, error) {
	if doc == nil {
		return nil, pkgerrors.NewValidationError("document cannot be nil")
	}

	o := aggregates.NewOutline(cfg)
	if err := graftLevel(o, doc.Notes, nil, fresh); err != nil {
		return nil, err
	}
	o.NormalizePositions()

	// Structural checks plus the configured size and depth limits; an
	// inbound document is untrusted regardless of where it came from.
	if err := validators.NewOutlineValidator(cfg).ValidateOutline(o); err != nil {
		return nil, err
	}
	return o, nil
}

func graftLevel(o *aggregates.Outline, docs []NoteDoc, parentID *valueobjects.NoteID, fresh bool) error {
	now := time.Now()
	for _, d := range docs {
		var id valueobjects.NoteID
		if fresh {
			id = valueobjects.NewNoteID()
		} else {
			parsed, err := valueobjects.NewNoteIDFromString(d.ID)
			if err != nil {
				return pkgerrors.NewValidationError("document contains malformed note ID: " + d.ID)
			}
			id = parsed
		}

		var timeSet *time.Time
		if d.TimeSet != nil {
			t, err := utils.ParseRFC3339(*d.TimeSet)
			if err != nil {
				return pkgerrors.NewValidationError("document contains malformed time_set value")
			}
			timeSet = &t
		}

		var images []valueobjects.ImageRef
		if !fresh {
			for _, img := range d.Images {
				ref, err := valueobjects.NewImageRef(img.Key, img.URL)
				if err != nil {
					return pkgerrors.NewValidationError("document contains malformed image reference")
				}
				images = append(images, ref)
			}
		}

		note, err := entities.ReconstructNote(
			id, d.Content, d.Position, d.IsDiscussion, timeSet,
			d.YoutubeURL, d.URL, d.URLDisplayText, images,
			now, now,
		)
		if err != nil {
			return err
		}

		if err := o.Graft(note, parentID); err != nil {
			return err
		}
		if err := graftLevel(o, d.Children, &id, fresh); err != nil {
			return err
		}
	}
	return nil
}
