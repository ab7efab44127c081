package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/busfahrer/server/internal/model"
)

// The GET game views are read-only projections of the one game document,
// matching the derived-view list in spec §6 ("get-game-info",
// "get-player-info", etc). Each just slices the document differently for
// a client that doesn't want the whole thing.

func (s *Server) getGameInfo(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.GameInfo)
}

type playerInfoView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Role     model.Role     `json:"role"`
	Avatar   string         `json:"avatar"`
	TurnInfo model.TurnInfo `json:"turnInfo"`
}

func (s *Server) getPlayerInfo(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	for _, pl := range g.Players {
		if pl.ID == userID {
			writeJSON(w, http.StatusOK, playerInfoView{ID: pl.ID, Name: pl.Name, Role: pl.Role, Avatar: pl.Avatar, TurnInfo: pl.TurnInfo})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Title: "Game Error", Error: "player not found"})
}

type drinkInfoView struct {
	DrinksPerRound int            `json:"drinksPerRound"`
	DrinksPerType  map[string]int `json:"drinksPerType"`
	DrinksPerTry   int            `json:"drinksPerTry"`
}

func (s *Server) getDrinkInfo(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drinkInfoView{
		DrinksPerRound: g.GameInfo.DrinksPerRound,
		DrinksPerType:  g.GameInfo.DrinksPerType,
		DrinksPerTry:   g.GameInfo.DrinksPerTry,
	})
}

func (s *Server) getGameCards(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.Cards)
}

func (s *Server) getPlayerCards(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	for _, pl := range g.Players {
		if pl.ID == userID {
			writeJSON(w, http.StatusOK, pl.Cards)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Title: "Game Error", Error: "player not found"})
}

type busfahrerView struct {
	Busfahrer     []string `json:"busfahrer"`
	BusfahrerName string   `json:"busfahrerName"`
}

func (s *Server) getBusfahrer(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, busfahrerView{Busfahrer: g.GameInfo.Busfahrer, BusfahrerName: g.GameInfo.BusfahrerName})
}

func (s *Server) getGamePlayers(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.Players)
}

func (s *Server) getGameSettings(w http.ResponseWriter, r *http.Request, p httprouter.Params, _ string) {
	g, err := s.gameSvc.Get(r.Context(), p.ByName("gameId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.Settings)
}

// getAchievements reads the caller's unlocked achievement slugs from their
// user document (spec's DATA MODEL commits to the field and collection;
// the distilled HTTP surface never lists its accessor, per SPEC_FULL.md's
// supplemented features).
func (s *Server) getAchievements(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	var u model.User
	if err := s.st.Read(r.Context(), collUsers, userID, &u); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Title: "Achievements Error", Error: "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, u.Achievements)
}
