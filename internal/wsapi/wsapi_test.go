package wsapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busfahrer/server/internal/cleanup"
	"github.com/busfahrer/server/internal/game"
	"github.com/busfahrer/server/internal/lobby"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
)

func newTestServer(grace time.Duration) (*Server, *registry.Registry, *cleanup.Scheduler, store.Store) {
	st := store.NewMemoryStore()
	reg := registry.New()
	cl := cleanup.New(grace)
	lobbySvc := lobby.New(st, reg, 10)
	gameSvc := game.New(st, reg)
	return NewServer(reg, nil, cl, lobbySvc, gameSvc, 30*time.Second), reg, cl, st
}

func TestHandleFrameAccountSubscribesUser(t *testing.T) {
	s, reg, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	s.handleFrame(c, inboundFrame{Type: "account"})

	assert.Len(t, reg.UserSockets("u1"), 1)
}

func TestHandleFrameLobbyRecordsSubscribedLobby(t *testing.T) {
	s, reg, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	s.handleFrame(c, inboundFrame{Type: "lobby", LobbyID: "lobby1"})

	assert.Equal(t, "lobby1", c.subscribedLobby)
	sock, ok := reg.LobbySocketFor("lobby1", "u1")
	require.True(t, ok)
	assert.Equal(t, c, sock)
}

func TestHandleFrameLobbyIgnoresEmptyLobbyID(t *testing.T) {
	s, _, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	s.handleFrame(c, inboundFrame{Type: "lobby"})

	assert.Empty(t, c.subscribedLobby)
}

func TestHandleFrameGameRecordsSubscribedGame(t *testing.T) {
	s, reg, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	s.handleFrame(c, inboundFrame{Type: "game", GameID: "game1"})

	assert.Equal(t, "game1", c.subscribedGame)
	sock, ok := reg.GameSocketFor("game1", "u1")
	require.True(t, ok)
	assert.Equal(t, c, sock)
}

func TestHandleFrameUnknownTypeIsNoop(t *testing.T) {
	s, reg, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	s.handleFrame(c, inboundFrame{Type: "bogus"})

	assert.Empty(t, reg.UserSockets("u1"))
}

func TestScheduleDisconnectCleanupRunsLeaveLobbyAfterGrace(t *testing.T) {
	s, _, _, st := newTestServer(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, st.Insert(ctx, "lobbies", "lobby1", model.Lobby{
		ID:      "lobby1",
		Players: []model.LobbyPlayer{{ID: "u1", Role: model.RoleMaster}},
	}))

	c := &Client{userID: "u1", send: make(chan any, 4), subscribedLobby: "lobby1"}
	s.scheduleDisconnectCleanup(c)

	time.Sleep(60 * time.Millisecond)

	var l model.Lobby
	err := st.Read(ctx, "lobbies", "lobby1", &l)
	assert.Error(t, err)
}

func TestScheduleDisconnectCleanupCancelOnReconnect(t *testing.T) {
	s, _, cl, st := newTestServer(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, st.Insert(ctx, "lobbies", "lobby1", model.Lobby{
		ID:      "lobby1",
		Players: []model.LobbyPlayer{{ID: "u1", Role: model.RoleMaster}},
	}))

	c := &Client{userID: "u1", send: make(chan any, 4), subscribedLobby: "lobby1"}
	s.scheduleDisconnectCleanup(c)
	cl.Cancel("u1", "lobby")

	time.Sleep(60 * time.Millisecond)

	var l model.Lobby
	require.NoError(t, st.Read(ctx, "lobbies", "lobby1", &l))
}

func TestScheduleDisconnectCleanupSkipsUnstatefulScopes(t *testing.T) {
	s, _, _, _ := newTestServer(time.Hour)
	c := &Client{userID: "u1", send: make(chan any, 4)}

	// No subscribedLobby/subscribedGame set: nothing should be scheduled,
	// and this must not panic on a nil service call.
	s.scheduleDisconnectCleanup(c)
}

func TestClientSendDropsWhenClosed(t *testing.T) {
	c := &Client{send: make(chan any, 1)}
	c.closed = 1

	assert.False(t, c.Send("hello"))
}

func TestClientSendDropsWhenQueueFull(t *testing.T) {
	c := &Client{send: make(chan any, 1)}
	assert.True(t, c.Send("first"))
	assert.False(t, c.Send("second"))
}
