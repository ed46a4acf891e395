package validators

import (
	"outline-backend/domain/config"
	"outline-backend/domain/core/aggregates"
	pkgerrors "outline-backend/pkg/errors"
)

// OutlineValidator checks an outline against the configured business limits.
// Structural invariants (acyclicity, contiguous positions, no orphans) are
// the aggregate's own Validate; this layer adds the size and depth rules that
// come from configuration, applied before a tree is accepted from persistence
// or import.
type OutlineValidator struct {
	cfg *config.DomainConfig
}

// NewOutlineValidator creates a validator with the given domain config
func NewOutlineValidator(cfg *config.DomainConfig) *OutlineValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &OutlineValidator{cfg: cfg}
}

// ValidateOutline runs structural and limit checks over a whole outline
func (v *OutlineValidator) ValidateOutline(o *aggregates.Outline) error {
	if o == nil {
		return pkgerrors.NewValidationError("outline cannot be nil")
	}

	if err := o.Validate(); err != nil {
		return err
	}

	if o.NoteCount() > v.cfg.MaxNotesPerOutline {
		return pkgerrors.NewValidationError("outline exceeds maximum note count")
	}
	if o.MaxDepth() >= v.cfg.MaxOutlineDepth {
		return pkgerrors.NewValidationError("outline exceeds maximum nesting depth")
	}

	for _, id := range o.AllNoteIDs() {
		note, err := o.Note(id)
		if err != nil {
			return err
		}
		if len(note.Content()) > v.cfg.MaxContentLength {
			return pkgerrors.NewValidationError("note content exceeds maximum length")
		}
		if len(note.Images()) > v.cfg.MaxImagesPerNote {
			return pkgerrors.NewValidationError("note carries too many images")
		}
	}

	return nil
}
