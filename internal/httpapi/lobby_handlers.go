package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/busfahrer/server/internal/model"
)

type createLobbyRequest struct {
	Name       string         `json:"name"`
	PlayerName string         `json:"playerName"`
	Private    bool           `json:"private"`
	Gender     model.Gender   `json:"gender"`
	Settings   model.Settings `json:"settings"`
}

func (s *Server) createLobby(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	var req createLobbyRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	id, err := s.lobbySvc.Create(r.Context(), userID, req.Name, req.PlayerName, req.Private, req.Gender, req.Settings)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lobbyId": id})
}

type checkLobbyCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) checkLobbyCode(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	var req checkLobbyCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	lobbyID, err := s.lobbySvc.Authenticate(r.Context(), userID, req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lobbyId": lobbyID})
}

type joinLobbyRequest struct {
	PlayerName string       `json:"playerName"`
	Gender     model.Gender `json:"gender"`
	Spectator  bool         `json:"spectator"`
}

func (s *Server) joinLobby(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req joinLobbyRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	lobbyID := p.ByName("lobbyId")
	if err := s.lobbySvc.Join(r.Context(), userID, lobbyID, req.PlayerName, req.Gender, req.Spectator); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) leaveJoin(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.lobbySvc.LeaveJoin(r.Context(), userID, p.ByName("lobbyId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) leaveLobby(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.lobbySvc.LeaveLobby(r.Context(), userID, p.ByName("lobbyId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type kickRequest struct {
	TargetID string `json:"targetId"`
}

func (s *Server) kickLobbyPlayer(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req kickRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.lobbySvc.Kick(r.Context(), p.ByName("lobbyId"), userID, req.TargetID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	gameID, err := s.lobbySvc.Start(r.Context(), p.ByName("lobbyId"), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gameId": gameID})
}

type inviteRequest struct {
	FriendID string `json:"friendId"`
}

func (s *Server) inviteFriend(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req inviteRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	inviterName := s.username(r, userID)
	if err := s.lobbySvc.Invite(r.Context(), userID, req.FriendID, p.ByName("lobbyId"), inviterName); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.lobbySvc.AcceptInvitation(r.Context(), userID, p.ByName("lobbyId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) declineInvitation(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.lobbySvc.DeclineInvitation(r.Context(), userID, p.ByName("lobbyId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) getLobbies(w http.ResponseWriter, r *http.Request, _ httprouter.Params, _ string) {
	lobbies, err := s.lobbySvc.GetPublicLobbies(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbies)
}

func (s *Server) getLobbyInfo(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	l, err := s.lobbySvc.GetLobbyInfo(r.Context(), p.ByName("lobbyId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) isLobbyMaster(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	isMaster, err := s.lobbySvc.IsLobbyMaster(r.Context(), p.ByName("lobbyId"), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isLobbyMaster": isMaster})
}
