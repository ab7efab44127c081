package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
)

func TestHandleLobbiesBroadcastsPublicWaitingLobby(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := registry.New()
	d := New(st, reg)

	sock := &capturingSocket{}
	reg.SubscribeLobbies(sock)

	lobby := model.Lobby{
		ID:       "lobby1",
		Name:     "Friday",
		Status:   model.LobbyWaiting,
		Private:  false,
		Settings: model.Settings{PlayerLimit: 6},
	}
	require.NoError(t, st.Insert(ctx, "lobbies", "lobby1", lobby))

	d.handle(ctx, store.ChangeEvent{Collection: "lobbies", ID: "lobby1", Op: store.OpInsert})

	assert.Contains(t, sock.types(), "lobbiesUpdate")
}

func TestHandleLobbiesHidesPrivateLobby(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := registry.New()
	d := New(st, reg)

	sock := &capturingSocket{}
	reg.SubscribeLobbies(sock)

	lobby := model.Lobby{
		ID:       "lobby1",
		Status:   model.LobbyWaiting,
		Private:  true,
		Settings: model.Settings{PlayerLimit: 6},
	}
	require.NoError(t, st.Insert(ctx, "lobbies", "lobby1", lobby))

	d.handle(ctx, store.ChangeEvent{Collection: "lobbies", ID: "lobby1", Op: store.OpInsert})

	require.Len(t, sock.msgs, 1)
	upd := sock.msgs[0].(LobbiesUpdate)
	assert.Equal(t, "delete", upd.Action)
}

func TestHandleGameSettingsTouchNotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := registry.New()
	d := New(st, reg)

	sock := &capturingSocket{}
	reg.SubscribeGame("game1", "p1", sock)

	game := model.Game{
		ID:       "game1",
		Status:   model.GamePhase1,
		Settings: model.Settings{Giving: model.GivingAvatar},
		Players:  []model.GamePlayer{{ID: "p1"}},
	}
	require.NoError(t, st.Insert(ctx, "games", "game1", game))

	d.handle(ctx, store.ChangeEvent{Collection: "games", ID: "game1", Op: store.OpUpdate, UpdatedFields: []string{"settings.giving"}})

	assert.Contains(t, sock.types(), "settingUpdate")
}

func TestHandleGameCardsTouchBroadcastsGameCardUpdate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := registry.New()
	d := New(st, reg)

	sock := &capturingSocket{}
	reg.SubscribeGame("game1", "p1", sock)

	game := model.Game{
		ID:      "game1",
		Status:  model.GamePhase1,
		Cards:   [][]model.GameCard{{{Card: model.Card{Number: 7, Suit: model.SuitHearts}}}},
		Players: []model.GamePlayer{{ID: "p1"}},
	}
	require.NoError(t, st.Insert(ctx, "games", "game1", game))

	d.handle(ctx, store.ChangeEvent{Collection: "games", ID: "game1", Op: store.OpUpdate, UpdatedFields: []string{"cards"}})

	assert.Contains(t, sock.types(), "gameCardUpdate")
}

func TestHandleDeletedLobbyBroadcastsDeleteAction(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := registry.New()
	d := New(st, reg)

	sock := &capturingSocket{}
	reg.SubscribeLobbies(sock)

	d.handle(ctx, store.ChangeEvent{Collection: "lobbies", ID: "gone", Op: store.OpDelete})

	require.Len(t, sock.msgs, 1)
	upd := sock.msgs[0].(LobbiesUpdate)
	assert.Equal(t, "delete", upd.Action)
	assert.Equal(t, "gone", upd.LobbyID)
}
