package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type sendChatMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) sendChatMessage(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req sendChatMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	name := s.username(r, userID)
	if err := s.chatSvc.SendMessage(r.Context(), p.ByName("lobbyId"), userID, name, req.Message); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) getChatHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	messages, err := s.chatSvc.GetHistory(r.Context(), p.ByName("lobbyId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
