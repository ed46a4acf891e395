package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/application/ports"
)

// countingSaver records every save call and can be told to fail
type countingSaver struct {
	mu    sync.Mutex
	calls []uint64
	fail  bool
}

func (c *countingSaver) save(ctx context.Context, seq uint64) (*ports.ProjectMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, seq)
	if c.fail {
		return nil, errors.New("store unavailable")
	}
	return &ports.ProjectMeta{ProjectID: "p1", Sequence: seq}, nil
}

func (c *countingSaver) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestAutosaveDebounce(t *testing.T) {
	t.Run("a burst of changes becomes one save", func(t *testing.T) {
		saver := &countingSaver{}
		s := NewAutosaveScheduler(20*time.Millisecond, saver.save, nil, nil)
		defer s.Close()

		for i := 0; i < 5; i++ {
			s.MarkDirty()
			time.Sleep(2 * time.Millisecond)
		}

		require.Eventually(t, func() bool {
			return saver.callCount() == 1 && !s.Dirty()
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, uint64(1), s.AppliedSequence())
	})

	t.Run("changes after a flush trigger another save", func(t *testing.T) {
		saver := &countingSaver{}
		s := NewAutosaveScheduler(10*time.Millisecond, saver.save, nil, nil)
		defer s.Close()

		s.MarkDirty()
		require.Eventually(t, func() bool { return saver.callCount() == 1 }, time.Second, 5*time.Millisecond)

		s.MarkDirty()
		require.Eventually(t, func() bool { return saver.callCount() == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, uint64(2), s.AppliedSequence())
	})
}

func TestAutosaveFailureKeepsDirty(t *testing.T) {
	saver := &countingSaver{fail: true}
	s := NewAutosaveScheduler(time.Hour, saver.save, nil, nil)
	defer s.Close()

	s.MarkDirty()
	_, err := s.Flush(context.Background())
	require.Error(t, err)
	assert.True(t, s.Dirty(), "a failed save must leave unsaved changes marked")
	assert.Equal(t, uint64(0), s.AppliedSequence())

	// Recovery: the next explicit save retries and clears the flag.
	saver.mu.Lock()
	saver.fail = false
	saver.mu.Unlock()

	meta, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.False(t, s.Dirty())
}

func TestAutosaveDiscardsStaleResponses(t *testing.T) {
	var applied []uint64
	var mu sync.Mutex

	blockFirst := make(chan struct{})
	var callN int
	save := func(ctx context.Context, seq uint64) (*ports.ProjectMeta, error) {
		mu.Lock()
		callN++
		n := callN
		mu.Unlock()
		if n == 1 {
			<-blockFirst // first save responds after the second
		}
		return &ports.ProjectMeta{Sequence: seq}, nil
	}
	onMeta := func(m *ports.ProjectMeta) {
		mu.Lock()
		applied = append(applied, m.Sequence)
		mu.Unlock()
	}

	s := NewAutosaveScheduler(time.Hour, save, onMeta, nil)
	defer s.Close()

	done := make(chan struct{})
	s.MarkDirty()
	go func() {
		_, _ = s.Flush(context.Background())
		close(done)
	}()

	// Wait until the first save is in flight, then run a second one.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return callN == 1
	}, time.Second, time.Millisecond)

	s.MarkDirty()
	meta, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), meta.Sequence)

	close(blockFirst)
	<-done

	// Only sequence 2 was applied; the late sequence-1 response was dropped.
	assert.Equal(t, uint64(2), s.AppliedSequence())
	mu.Lock()
	assert.Equal(t, []uint64{2}, applied)
	mu.Unlock()
}

func TestAutosaveSaveNowBypassesDebounce(t *testing.T) {
	saver := &countingSaver{}
	s := NewAutosaveScheduler(time.Hour, saver.save, nil, nil)
	defer s.Close()

	s.MarkDirty()
	meta, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 1, saver.callCount())
}

func TestAutosaveReset(t *testing.T) {
	saver := &countingSaver{}
	s := NewAutosaveScheduler(time.Hour, saver.save, nil, nil)
	defer s.Close()

	s.MarkDirty()
	_, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.AppliedSequence())

	s.Reset()
	assert.False(t, s.Dirty())
	assert.Equal(t, uint64(0), s.AppliedSequence())
	assert.Nil(t, s.LastMeta())
}

func TestAutosaveCloseStopsTimer(t *testing.T) {
	saver := &countingSaver{}
	s := NewAutosaveScheduler(5*time.Millisecond, saver.save, nil, nil)

	s.MarkDirty()
	s.Close()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, saver.callCount())
}
