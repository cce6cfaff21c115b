// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/media"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mustTier(t *testing.T, id string) format.Tier {
	t.Helper()
	tier, ok := format.Lookup(id)
	require.True(t, ok)
	return tier
}

func newSession(identity string) Session {
	return Session{
		Identity:   identity,
		URL:        "https://youtu.be/dQw4w9WgXcQ",
		Descriptor: media.Descriptor{Title: "t", DurationSeconds: 600, BitrateKbps: 128, SizeBytes: media.UnknownSize},
	}
}

func TestPutGet(t *testing.T) {
	st := NewStore()

	_, ok := st.Get("tg:1")
	assert.False(t, ok)

	put := st.Put(newSession("tg:1"))
	assert.NotZero(t, put.Seq)
	assert.Equal(t, AwaitingFormatSelection, put.State)
	assert.False(t, put.HasTier())

	got, ok := st.Get("tg:1")
	require.True(t, ok)
	assert.Equal(t, put, got)
}

func TestPutReplacesAndResetsState(t *testing.T) {
	st := NewStore()
	first := st.Put(newSession("tg:1"))
	_, err := st.TransitionToDownloading("tg:1", mustTier(t, "ORIGINAL"))
	require.NoError(t, err)

	next := newSession("tg:1")
	next.URL = "https://youtu.be/aaaaaaaaaaa"
	second := st.Put(next)
	assert.Greater(t, second.Seq, first.Seq)

	got, ok := st.Get("tg:1")
	require.True(t, ok)
	assert.Equal(t, AwaitingFormatSelection, got.State)
	assert.Equal(t, next.URL, got.URL)
	assert.Equal(t, 1, st.Len())
}

func TestTransitionToDownloading(t *testing.T) {
	st := NewStore()

	_, err := st.TransitionToDownloading("tg:1", mustTier(t, "OPUS_64"))
	require.ErrorIs(t, err, ErrNoSession)

	st.Put(newSession("tg:1"))
	sess, err := st.TransitionToDownloading("tg:1", mustTier(t, "OPUS_64"))
	require.NoError(t, err)
	assert.Equal(t, Downloading, sess.State)
	assert.Equal(t, format.Opus64, sess.Tier.ID)

	_, err = st.TransitionToDownloading("tg:1", mustTier(t, "OPUS_48"))
	require.ErrorIs(t, err, ErrAlreadyDownloading)

	got, _ := st.Get("tg:1")
	assert.Equal(t, format.Opus64, got.Tier.ID, "losing transition must not overwrite tier")
}

func TestTransitionIfCurrentRejectsReplacedSession(t *testing.T) {
	st := NewStore()
	first := st.Put(newSession("tg:1"))
	second := st.Put(newSession("tg:1"))

	_, err := st.TransitionIfCurrent("tg:1", first.Seq, mustTier(t, "OPUS_64"))
	require.ErrorIs(t, err, ErrSuperseded)

	got, _ := st.Get("tg:1")
	assert.Equal(t, AwaitingFormatSelection, got.State, "newer session must be untouched")

	sess, err := st.TransitionIfCurrent("tg:1", second.Seq, mustTier(t, "OPUS_64"))
	require.NoError(t, err)
	assert.Equal(t, second.Seq, sess.Seq)
	assert.Equal(t, Downloading, sess.State)
}

func TestTransitionRejectsEmptyTier(t *testing.T) {
	st := NewStore()
	st.Put(newSession("tg:1"))

	_, err := st.TransitionToDownloading("tg:1", format.Tier{})
	require.Error(t, err)

	got, _ := st.Get("tg:1")
	assert.Equal(t, AwaitingFormatSelection, got.State)
}

func TestTransitionExpiredEvicts(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(WithClock(clock.Now))
	st.Put(newSession("tg:1"))

	clock.Advance(DefaultTTL + time.Second)

	_, err := st.TransitionToDownloading("tg:1", mustTier(t, "ORIGINAL"))
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 0, st.Len())

	_, err = st.TransitionToDownloading("tg:1", mustTier(t, "ORIGINAL"))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestExactTTLIsNotExpired(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(WithClock(clock.Now))
	st.Put(newSession("tg:1"))

	clock.Advance(DefaultTTL)
	_, ok := st.Get("tg:1")
	assert.True(t, ok)
}

func TestConcurrentTransitionsAdmitExactlyOne(t *testing.T) {
	for round := 0; round < 20; round++ {
		st := NewStore()
		st.Put(newSession("tg:1"))
		tier := mustTier(t, "ORIGINAL")

		const callers = 32
		var (
			wg       sync.WaitGroup
			start    = make(chan struct{})
			ok       atomic.Int32
			rejected atomic.Int32
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := st.TransitionToDownloading("tg:1", tier)
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, ErrAlreadyDownloading):
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), ok.Load())
		require.Equal(t, int32(callers-1), rejected.Load())
	}
}

func TestRemoveIf(t *testing.T) {
	st := NewStore()
	old := st.Put(newSession("tg:1"))
	newer := st.Put(newSession("tg:1"))

	assert.False(t, st.RemoveIf("tg:1", old.Seq), "stale seq must not remove newer session")
	_, ok := st.Get("tg:1")
	assert.True(t, ok)

	assert.True(t, st.RemoveIf("tg:1", newer.Seq))
	_, ok = st.Get("tg:1")
	assert.False(t, ok)

	st.Put(newSession("tg:2"))
	st.Remove("tg:2")
	assert.Equal(t, 0, st.Len())
}
