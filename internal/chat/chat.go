// Package chat implements C8: lobby-scoped chat messages (spec §4.8).
package chat

import (
	"context"
	"time"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/ids"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

const (
	collLobbies = "lobbies"
	collChats   = "chats"

	// historyLimit bounds how many messages GetHistory returns; the
	// document itself keeps every message. The fan-out dispatcher applies
	// its own, smaller tail when mirroring to sockets.
	historyLimit = 200
)

type Service struct {
	st store.Store
}

func New(st store.Store) *Service {
	return &Service{st: st}
}

func (s *Service) authorized(ctx context.Context, lobbyID, userID string) error {
	var l model.Lobby
	if err := s.st.Read(ctx, collLobbies, lobbyID, &l); err != nil {
		return apperr.NotFound("Chat Error", "lobby not found")
	}
	for _, p := range l.Players {
		if p.ID == userID {
			return nil
		}
	}
	for _, p := range l.Spectators {
		if p.ID == userID {
			return nil
		}
	}
	return apperr.Authorization("Chat Error", "not a member of this lobby")
}

// SendMessage appends a message to the lobby's chat, authorized only for
// current players and spectators.
func (s *Service) SendMessage(ctx context.Context, lobbyID, userID, name, text string) error {
	if err := s.authorized(ctx, lobbyID, userID); err != nil {
		return err
	}
	if text == "" {
		return apperr.Precondition("Chat Error", "message must not be empty")
	}

	msg := model.ChatMessage{
		ID:        ids.New(),
		UserID:    userID,
		Name:      name,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}

	if err := s.st.Update(ctx, collChats, lobbyID, store.Patch{
		Push: map[string]any{"messages": msg},
	}); err != nil {
		return apperr.Internal("Chat Error", err)
	}
	return nil
}

// GetHistory returns the last historyLimit messages of a chat (used by the
// HTTP surface to backfill on subscribe).
func (s *Service) GetHistory(ctx context.Context, lobbyID string) ([]model.ChatMessage, error) {
	var c model.Chat
	if err := s.st.Read(ctx, collChats, lobbyID, &c); err != nil {
		return nil, apperr.NotFound("Chat Error", "chat not found")
	}
	if len(c.Messages) > historyLimit {
		return c.Messages[len(c.Messages)-historyLimit:], nil
	}
	return c.Messages, nil
}
