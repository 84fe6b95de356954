package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglab-backend/internal/models"
	"readinglab-backend/internal/stats"
)

func TestManager_OpenGetClose(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, 30*time.Minute, WithManagerClock(clock.Now))

	id, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Active())

	_, err = mgr.Get(id, "u2")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = mgr.Get(uuid.New(), "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clock.Advance(12 * time.Second)
	d, err := mgr.Close(id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12, d.DurationSeconds)
	assert.Equal(t, 0, mgr.Active())

	_, err = mgr.Close(id, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, stats.CountAction(store.Snapshot(), models.ActionCloseMaterial))
}

func TestManager_CloseByOtherUserIsForbidden(t *testing.T) {
	clock := newClock()
	mgr := NewManager(newStore(clock), time.Minute, WithManagerClock(clock.Now))

	id, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)

	_, err = mgr.Close(id, "u2")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 1, mgr.Active())
}

func TestManager_ReopenClosesPreviousView(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, 30*time.Minute, WithManagerClock(clock.Now))

	first, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)
	clock.Advance(4 * time.Second)
	second, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, mgr.Active())

	_, err = mgr.Get(first, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	snap := store.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, models.ActionOpenMaterial, snap[0].Action)
	assert.Equal(t, models.ActionCloseMaterial, snap[1].Action)
	assert.Equal(t, 4, closeDetails(t, snap[1]).DurationSeconds)
}

func TestManager_ConcurrentReopenKeepsOneView(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, 30*time.Minute, WithManagerClock(clock.Now))

	const openers = 32
	var wg sync.WaitGroup
	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := mgr.Open(alice, m1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mgr.Active())

	snap := store.Snapshot()
	opens := stats.CountAction(snap, models.ActionOpenMaterial)
	closes := stats.CountAction(snap, models.ActionCloseMaterial)
	assert.Equal(t, openers, opens)
	assert.Equal(t, 1, opens-closes, "every replaced view must be closed")
	assert.Equal(t, models.ActionOpenMaterial, snap[0].Action)

	assert.Equal(t, 1, mgr.CloseAll())
	assert.Equal(t, 0, stats.CountAction(store.Snapshot(), models.ActionOpenMaterial)-stats.CountAction(store.Snapshot(), models.ActionCloseMaterial))
}

func TestManager_HeartbeatKeepsViewAlive(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, 10*time.Minute, WithManagerClock(clock.Now))

	id, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)

	clock.Advance(8 * time.Minute)
	require.NoError(t, mgr.Heartbeat(id, "u1"))
	clock.Advance(8 * time.Minute)

	assert.Equal(t, 0, mgr.ReapIdle())
	assert.Equal(t, 1, mgr.Active())
}

func TestManager_ReapIdleMeasuresToLastActivity(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, 10*time.Minute, WithManagerClock(clock.Now))

	_, tr, err := mgr.Open(alice, m1)
	require.NoError(t, err)
	_, _, err = mgr.Open(bob, m1)
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	require.NoError(t, tr.SetProgress(40))
	clock.Advance(9 * time.Minute)

	// bob has been idle for 10m30s, alice for 9m.
	assert.Equal(t, 1, mgr.ReapIdle())
	assert.Equal(t, 1, mgr.Active())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, mgr.ReapIdle())

	var aliceClose models.Event
	for _, ev := range store.Snapshot() {
		if ev.Action == models.ActionCloseMaterial && ev.UserID == "u1" {
			aliceClose = ev
		}
	}
	assert.Equal(t, models.CloseDetails{DurationSeconds: 90, ScrollProgressPercent: 40}, closeDetails(t, aliceClose))
}

func TestManager_ReapDisabledWithoutTimeout(t *testing.T) {
	clock := newClock()
	mgr := NewManager(newStore(clock), 0, WithManagerClock(clock.Now))

	_, _, err := mgr.Open(alice, m1)
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)

	assert.Equal(t, 0, mgr.ReapIdle())
}

func TestManager_CloseAll(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, time.Hour, WithManagerClock(clock.Now))

	for _, u := range []models.User{alice, bob} {
		_, _, err := mgr.Open(u, m1)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, mgr.CloseAll())
	assert.Equal(t, 0, mgr.Active())
	assert.Equal(t, 2, stats.CountAction(store.Snapshot(), models.ActionCloseMaterial))
	assert.Equal(t, 0, mgr.CloseAll())
}

func TestManager_CloseUser(t *testing.T) {
	clock := newClock()
	store := newStore(clock)
	mgr := NewManager(store, time.Hour, WithManagerClock(clock.Now))

	m4 := models.Material{ID: "m4", Title: "Ambient Sounds"}
	for _, open := range []struct {
		user     models.User
		material models.Material
	}{{alice, m1}, {alice, m4}, {bob, m1}} {
		_, _, err := mgr.Open(open.user, open.material)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, mgr.CloseUser("u1"))
	assert.Equal(t, 1, mgr.Active())
	for _, ev := range store.Snapshot() {
		if ev.Action == models.ActionCloseMaterial {
			assert.Equal(t, "u1", ev.UserID)
		}
	}
	assert.Equal(t, 0, mgr.CloseUser("u1"))
}

func TestManager_Info(t *testing.T) {
	clock := newClock()
	mgr := NewManager(newStore(clock), time.Hour, WithManagerClock(clock.Now))

	id, tr, err := mgr.Open(alice, m1)
	require.NoError(t, err)
	require.NoError(t, tr.SetProgress(25))

	info, err := mgr.Info(id, "u1")
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, "m1", info.MaterialID)
	assert.Equal(t, 25, info.Progress)
	assert.Equal(t, clock.Now(), info.StartedAt)
}
