// Package httpapi implements C12: the command surface from spec §6 — every
// mutating operation arrives as an HTTP request, authenticated by the same
// cookie the websocket upgrade reads, with state changes observed later
// over the socket via the fan-out dispatcher. Routing follows the
// teacher's httprouter wiring in web.go; JSON in/out and the {title,
// error} body are this package's own, with status codes taken from
// apperr.Error.Status, grounded in spec §7.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/auth"
	"github.com/busfahrer/server/internal/chat"
	"github.com/busfahrer/server/internal/friend"
	"github.com/busfahrer/server/internal/game"
	"github.com/busfahrer/server/internal/lobby"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
	"github.com/busfahrer/server/internal/uploads"
)

const collUsers = "users"

type Server struct {
	signer    *auth.Signer
	lobbySvc  *lobby.Service
	chatSvc   *chat.Service
	friendSvc *friend.Service
	gameSvc   *game.Service
	uploads   *uploads.Store
	st        store.Store
}

func NewServer(signer *auth.Signer, lobbySvc *lobby.Service, chatSvc *chat.Service, friendSvc *friend.Service, gameSvc *game.Service, up *uploads.Store, st store.Store) *Server {
	return &Server{signer: signer, lobbySvc: lobbySvc, chatSvc: chatSvc, friendSvc: friendSvc, gameSvc: gameSvc, uploads: up, st: st}
}

func (s *Server) username(r *http.Request, userID string) string {
	var u model.User
	if err := s.st.Read(r.Context(), collUsers, userID, &u); err != nil {
		return ""
	}
	return u.Username
}

func (s *Server) avatar(r *http.Request, userID string) string {
	var u model.User
	if err := s.st.Read(r.Context(), collUsers, userID, &u); err != nil {
		return ""
	}
	return u.Profile.Avatar
}

type errorBody struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeErr maps an apperr.Error to {title, error} per spec §7; any other
// error is treated as an unexpected internal failure.
func writeErr(w http.ResponseWriter, err error) {
	if ae, ok := err.(*apperr.Error); ok {
		writeJSON(w, ae.Status(), errorBody{Title: ae.Title, Error: ae.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Title: "Internal Error", Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.Precondition("Request Error", "missing request body")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Precondition("Request Error", "malformed JSON body")
	}
	return nil
}

// authed wraps a handler needing an authenticated userID, extracted from
// the same token cookie the websocket upgrade validates.
func (s *Server) authed(fn func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		tokenStr, err := auth.FromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Title: "Unauthorized", Error: "missing token"})
			return
		}
		userID, err := s.signer.Validate(tokenStr)
		if err != nil {
			writeJSON(w, http.StatusForbidden, errorBody{Title: "Unauthorized", Error: "invalid token"})
			return
		}
		fn(w, r, p, userID)
	}
}

// Register wires every spec §6 route onto router.
func (s *Server) Register(router *httprouter.Router) {
	router.POST("/create-lobby", s.authed(s.createLobby))
	router.POST("/check-lobby-code", s.authed(s.checkLobbyCode))
	router.POST("/join-lobby/:lobbyId", s.authed(s.joinLobby))
	router.POST("/leave-join/:lobbyId", s.authed(s.leaveJoin))
	router.POST("/leave-lobby/:lobbyId", s.authed(s.leaveLobby))
	router.POST("/kick-lobby-player/:lobbyId", s.authed(s.kickLobbyPlayer))
	router.POST("/start-game/:lobbyId", s.authed(s.startGame))
	router.POST("/invite-friend/:lobbyId", s.authed(s.inviteFriend))
	router.POST("/accept-invitation/:lobbyId", s.authed(s.acceptInvitation))
	router.POST("/decline-invitation/:lobbyId", s.authed(s.declineInvitation))
	router.GET("/get-lobbies", s.authed(s.getLobbies))
	router.GET("/get-lobby-info/:lobbyId", s.authed(s.getLobbyInfo))
	router.GET("/is-lobby-master/:lobbyId", s.authed(s.isLobbyMaster))

	router.POST("/send-chat-message/:lobbyId", s.authed(s.sendChatMessage))
	router.GET("/get-chat-history/:lobbyId", s.authed(s.getChatHistory))

	router.POST("/send-friend-request", s.authed(s.sendFriendRequest))
	router.POST("/accept-friend/:friendId", s.authed(s.acceptFriend))
	router.POST("/decline-friend/:friendId", s.authed(s.declineFriend))
	router.POST("/remove-friend/:friendId", s.authed(s.removeFriend))
	router.POST("/block-friend/:friendId", s.authed(s.blockFriend))
	router.POST("/send-friend-message/:friendId", s.authed(s.sendFriendMessage))
	router.POST("/mark-messages-read/:friendId", s.authed(s.markMessagesRead))
	router.GET("/get-friend-record", s.authed(s.getFriendRecord))

	router.POST("/flip-row/:gameId", s.authed(s.flipRow))
	router.POST("/lay-card/:gameId", s.authed(s.layCard))
	router.POST("/card-action/:gameId", s.authed(s.cardAction))
	router.POST("/give-drink-player/:gameId", s.authed(s.giveDrinkPlayer))
	router.POST("/next-player/:gameId", s.authed(s.nextPlayer))
	router.POST("/advance-phase/:gameId", s.authed(s.advancePhase))
	router.POST("/retry-phase3/:gameId", s.authed(s.retryPhase3))
	router.POST("/open-new-game/:gameId", s.authed(s.openNewGame))
	router.POST("/leave-game/:gameId", s.authed(s.leaveGame))

	router.GET("/get-game-info/:gameId", s.authed(s.getGameInfo))
	router.GET("/get-player-info/:gameId", s.authed(s.getPlayerInfo))
	router.GET("/get-drink-info/:gameId", s.authed(s.getDrinkInfo))
	router.GET("/get-game-cards/:gameId", s.authed(s.getGameCards))
	router.GET("/get-player-cards/:gameId", s.authed(s.getPlayerCards))
	router.GET("/get-busfahrer/:gameId", s.authed(s.getBusfahrer))
	router.GET("/get-game-players/:gameId", s.authed(s.getGamePlayers))
	router.GET("/get-game-settings/:gameId", s.authed(s.getGameSettings))

	router.POST("/upload-avatar", s.authed(s.uploadAvatar))
	router.GET("/get-achievements", s.authed(s.getAchievements))
}
