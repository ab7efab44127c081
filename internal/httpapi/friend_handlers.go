package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type sendFriendRequestRequest struct {
	FriendCode string `json:"friendCode"`
}

func (s *Server) sendFriendRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	var req sendFriendRequestRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.friendSvc.SendFriendRequest(r.Context(), userID, req.FriendCode); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) acceptFriend(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	friendID := p.ByName("friendId")
	myUsername := s.username(r, userID)
	myAvatar := s.avatar(r, userID)
	friendUsername := s.username(r, friendID)
	friendAvatar := s.avatar(r, friendID)
	if err := s.friendSvc.Accept(r.Context(), userID, friendID, myUsername, myAvatar, friendUsername, friendAvatar); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) declineFriend(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.friendSvc.Decline(r.Context(), userID, p.ByName("friendId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) removeFriend(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.friendSvc.Remove(r.Context(), userID, p.ByName("friendId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) blockFriend(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.friendSvc.Block(r.Context(), userID, p.ByName("friendId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type sendFriendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) sendFriendMessage(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req sendFriendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	senderUsername := s.username(r, userID)
	if err := s.friendSvc.SendMessage(r.Context(), userID, senderUsername, p.ByName("friendId"), req.Text); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) markMessagesRead(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.friendSvc.MarkMessagesAsRead(r.Context(), userID, p.ByName("friendId")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) getFriendRecord(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	record, err := s.friendSvc.GetRecord(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
