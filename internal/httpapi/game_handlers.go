package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type flipRowRequest struct {
	Idx int `json:"idx"`
}

func (s *Server) flipRow(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req flipRowRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.gameSvc.FlipRow(r.Context(), p.ByName("gameId"), userID, req.Idx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type layCardRequest struct {
	Idx int `json:"idx"`
}

func (s *Server) layCard(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req layCardRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.gameSvc.LayCard(r.Context(), p.ByName("gameId"), userID, req.Idx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// cardAction is the phase-3 ride guess, keyed by "row-col" per spec §6.
// secondAction is accepted and ignored: the spec leaves its semantics
// unspecified (§9 open questions), and the single-action higher/lower/
// same/equal/unequal vocabulary fully determines every phase-3 guess.
type cardActionRequest struct {
	CardIdx      string `json:"cardIdx"`
	Action       string `json:"action"`
	SecondAction string `json:"secondAction"`
}

func (s *Server) cardAction(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req cardActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.gameSvc.GuessPhase3(r.Context(), p.ByName("gameId"), userID, req.CardIdx, req.Action); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type giveDrinkPlayerRequest struct {
	PlayerID string `json:"playerId"`
	Inc      int    `json:"inc"`
}

func (s *Server) giveDrinkPlayer(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	var req giveDrinkPlayerRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.gameSvc.GiveDrinkToPlayer(r.Context(), p.ByName("gameId"), userID, req.PlayerID, req.Inc); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) nextPlayer(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.gameSvc.NextPlayer(r.Context(), p.ByName("gameId"), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) advancePhase(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.gameSvc.AdvancePhase(r.Context(), p.ByName("gameId"), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) retryPhase3(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.gameSvc.RetryPhase3(r.Context(), p.ByName("gameId"), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) openNewGame(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.gameSvc.OpenNewGame(r.Context(), p.ByName("gameId"), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) leaveGame(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	if err := s.gameSvc.LeaveGame(r.Context(), p.ByName("gameId"), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
