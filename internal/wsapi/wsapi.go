// Package wsapi implements C5: the single websocket endpoint, its
// subscription router and heartbeat. The client/send-queue/read-write
// pump shape follows the teacher's Hub/Client pair; the ping/pong
// liveness handshake follows the same pattern used throughout the
// example pack's websocket handlers.
package wsapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/busfahrer/server/internal/auth"
	"github.com/busfahrer/server/internal/cleanup"
	"github.com/busfahrer/server/internal/game"
	"github.com/busfahrer/server/internal/lobby"
	"github.com/busfahrer/server/internal/registry"
)

const (
	writeWait  = 10 * time.Second
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundFrame is the single shape every client->server message takes
// (spec §6): {type, lobbyId?, gameId?}.
type inboundFrame struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId"`
	GameID  string `json:"gameId"`
}

// Server upgrades connections and routes inbound subscription frames.
// Lobby and game are the only scopes with a stateful server-side
// membership to unwind on disconnect (spec §4.6); account/friends/
// lobbies/chat are pure broadcast fan-out with nothing to clean up.
type Server struct {
	reg      *registry.Registry
	signer   *auth.Signer
	cleanup  *cleanup.Scheduler
	lobbySvc *lobby.Service
	gameSvc  *game.Service

	pingPeriod time.Duration
	pongWait   time.Duration
}

// NewServer wires the given heartbeat interval (spec §4.5) into the
// ping/pong liveness handshake: the server pings every heartbeat, and
// the read deadline gives the client slack beyond that before it's
// considered gone.
func NewServer(reg *registry.Registry, signer *auth.Signer, cl *cleanup.Scheduler, lobbySvc *lobby.Service, gameSvc *game.Service, heartbeat time.Duration) *Server {
	return &Server{
		reg: reg, signer: signer, cleanup: cl, lobbySvc: lobbySvc, gameSvc: gameSvc,
		pingPeriod: heartbeat,
		pongWait:   (heartbeat * 10) / 9,
	}
}

// Client is one live socket. It satisfies registry.Socket.
type Client struct {
	conn   *websocket.Conn
	send   chan any
	userID string
	closed int32

	// subscribed{Lobby,Game} remember the scope id so a disconnect can
	// schedule the right cleanup callback.
	subscribedLobby string
	subscribedGame  string
}

func (c *Client) Send(msg any) bool {
	if atomic.LoadInt32(&c.closed) == 1 {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ServeHTTP upgrades the connection, authenticating via the same cookie
// used by the HTTP surface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := auth.FromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := s.signer.Validate(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsapi: upgrade: %v", err)
		return
	}

	c := &Client{conn: conn, send: make(chan any, 16), userID: userID}

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *Client) {
	defer func() {
		atomic.StoreInt32(&c.closed, 1)
		close(c.send)
		s.reg.Unsubscribe(c)
		s.scheduleDisconnectCleanup(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		s.handleFrame(c, frame)
	}
}

func (s *Server) handleFrame(c *Client, frame inboundFrame) {
	switch frame.Type {
	case "account":
		s.reg.SubscribeUser(c.userID, c)
		s.cleanup.Cancel(c.userID, "account")
	case "friend":
		s.reg.SubscribeFriends(c.userID, c)
		s.cleanup.Cancel(c.userID, "friend")
	case "lobbies":
		s.reg.SubscribeLobbies(c)
		s.cleanup.Cancel(c.userID, "lobbies")
	case "lobby":
		if frame.LobbyID == "" {
			return
		}
		c.subscribedLobby = frame.LobbyID
		s.reg.SubscribeLobby(frame.LobbyID, c.userID, c)
		s.cleanup.Cancel(c.userID, "lobby")
	case "chat":
		if frame.LobbyID == "" {
			return
		}
		s.reg.SubscribeChat(frame.LobbyID, c)
		s.cleanup.Cancel(c.userID, "chat")
	case "game":
		if frame.GameID == "" {
			return
		}
		c.subscribedGame = frame.GameID
		s.reg.SubscribeGame(frame.GameID, c.userID, c)
		s.cleanup.Cancel(c.userID, "game")
	}
}

// scheduleDisconnectCleanup arms the grace-period removal for any scope
// the socket held a stateful membership in (spec §4.6). Plain viewing
// scopes (account/friends/lobbies/chat) carry no server-side membership
// to unwind, so only lobby/game schedule a callback.
func (s *Server) scheduleDisconnectCleanup(c *Client) {
	if c.subscribedLobby != "" {
		lobbyID, userID := c.subscribedLobby, c.userID
		s.cleanup.Schedule(userID, "lobby", func() {
			_ = s.lobbySvc.LeaveLobby(bgCtx(), userID, lobbyID)
		})
	}
	if c.subscribedGame != "" {
		gameID, userID := c.subscribedGame, c.userID
		s.cleanup.Schedule(userID, "game", func() {
			_ = s.gameSvc.LeaveGame(bgCtx(), gameID, userID)
		})
	}
}

// bgCtx gives deferred cleanup callbacks an unrelated context, since the
// connection's own request context is long gone by the time the grace
// period elapses.
func bgCtx() context.Context {
	return context.Background()
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
