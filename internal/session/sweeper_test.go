// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSweeper_SweepOnce_RemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(WithClock(clock.Now))

	st.Put(newSession("tg:old"))
	clock.Advance(20 * time.Minute)
	st.Put(newSession("tg:young"))
	clock.Advance(11 * time.Minute)

	sw := &Sweeper{Store: st}
	removed := sw.SweepOnce(context.Background())

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, st.Len())
	_, ok := st.Get("tg:old")
	assert.False(t, ok)
	_, ok = st.Get("tg:young")
	assert.True(t, ok)
}

func TestSweeper_SweepOnce_IgnoresState(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(WithClock(clock.Now), WithTTL(time.Minute))
	st.Put(newSession("tg:1"))
	_, err := st.TransitionToDownloading("tg:1", mustTier(t, "OPUS_96"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	sw := &Sweeper{Store: st}
	assert.Equal(t, 1, sw.SweepOnce(context.Background()))
	assert.Equal(t, 0, st.Len())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st := NewStore(WithTTL(time.Millisecond))
	st.Put(newSession("tg:1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	sw := &Sweeper{Store: st, Interval: 10 * time.Millisecond}
	go func() { done <- sw.Run(ctx) }()

	require.Eventually(t, func() bool { return st.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
