package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"outline-backend/application/ports"
)

// SaveFunc performs one persistence save stamped with the given sequence
// number and returns the authoritative stored metadata.
type SaveFunc func(ctx context.Context, sequence uint64) (*ports.ProjectMeta, error)

// AutosaveScheduler debounces persistence: every mutation marks the
// workspace dirty and restarts a timer, so a typing burst becomes one save.
// Each save carries a monotonic sequence number; a response that arrives
// after a newer save has already been applied is discarded rather than
// allowed to roll metadata backwards. A failed save leaves the workspace
// dirty so the next mutation or manual save retries.
type AutosaveScheduler struct {
	mu       sync.Mutex
	debounce time.Duration
	save     SaveFunc
	onMeta   func(*ports.ProjectMeta)
	logger   *zap.Logger

	timer      *time.Timer
	dirty      bool
	nextSeq    uint64
	appliedSeq uint64
	lastMeta   *ports.ProjectMeta
	closed     bool
}

// NewAutosaveScheduler creates a scheduler. onMeta is invoked, outside the
// scheduler's lock, each time a save response is accepted as current.
func NewAutosaveScheduler(debounce time.Duration, save SaveFunc, onMeta func(*ports.ProjectMeta), logger *zap.Logger) *AutosaveScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutosaveScheduler{
		debounce: debounce,
		save:     save,
		onMeta:   onMeta,
		logger:   logger,
		nextSeq:  1,
	}
}

// MarkDirty notes an unsaved change and restarts the debounce timer
func (s *AutosaveScheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if _, err := s.Flush(context.Background()); err != nil {
			s.logger.Warn("autosave flush failed", zap.Error(err))
		}
	})
}

// Dirty reports whether unsaved changes exist
func (s *AutosaveScheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// AppliedSequence returns the sequence of the newest accepted save
func (s *AutosaveScheduler) AppliedSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appliedSeq
}

// LastMeta returns the metadata from the newest accepted save, nil before
// the first one.
func (s *AutosaveScheduler) LastMeta() *ports.ProjectMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMeta
}

// SaveNow cancels any pending debounce and saves immediately, dirty or not.
// Used for explicit save actions and before unload.
func (s *AutosaveScheduler) SaveNow(ctx context.Context) (*ports.ProjectMeta, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.lastMeta, nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dirty = true
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Flush saves if dirty. The save itself runs without the lock held so
// mutations keep flowing while persistence is in flight.
func (s *AutosaveScheduler) Flush(ctx context.Context) (*ports.ProjectMeta, error) {
	s.mu.Lock()
	if s.closed || !s.dirty {
		meta := s.lastMeta
		s.mu.Unlock()
		return meta, nil
	}
	s.dirty = false
	seq := s.nextSeq
	s.nextSeq++
	s.mu.Unlock()

	meta, err := s.save(ctx, seq)

	s.mu.Lock()
	if err != nil {
		// Stay dirty so the next mutation or manual save retries.
		s.dirty = true
		s.mu.Unlock()
		return nil, err
	}

	if seq <= s.appliedSeq {
		// A newer save already landed; this response is stale.
		s.logger.Debug("discarding stale save response",
			zap.Uint64("sequence", seq),
			zap.Uint64("applied", s.appliedSeq))
		meta = s.lastMeta
		s.mu.Unlock()
		return meta, nil
	}

	s.appliedSeq = seq
	s.lastMeta = meta
	onMeta := s.onMeta
	s.mu.Unlock()

	if onMeta != nil && meta != nil {
		onMeta(meta)
	}
	return meta, nil
}

// Reset clears dirty state and sequence tracking, used when a different
// project replaces the working copy.
func (s *AutosaveScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dirty = false
	s.nextSeq = 1
	s.appliedSeq = 0
	s.lastMeta = nil
}

// Close stops the scheduler. Pending changes are not flushed; callers that
// need a final save call SaveNow first.
func (s *AutosaveScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
