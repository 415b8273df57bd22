package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterEnforcesPerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(8, nil)
	assert.NoError(t, err)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(3))

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.False(t, hub.IsOnline(3))
	assert.Zero(t, hub.totalConns)
}

func TestHub_BroadcastTargetsUser(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, "hello")
	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Empty(t, b.Send)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	assert.NotPanics(t, func() { c.TrySend([]byte("overflow")) })
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_StartWiringDeliversUserEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	notifier.Notify(ctx, 42, EventPostLiked, map[string]uint{"post_id": 9})

	var got []byte
	require.Eventually(t, func() bool {
		select {
		case got = <-client.Send:
			return true
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	var ev Event
	require.NoError(t, json.Unmarshal(got, &ev))
	assert.Equal(t, EventPostLiked, ev.Type)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	_, err := hub.Register(1, nil)
	require.NoError(t, err)
	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrServerFull)
}
