// Package game implements C10: the three-phase Busfahrer state machine
// (spec §4.10). It is the largest subsystem; phase1.go, phase2.go and
// phase3.go hold each phase's round logic, and this file holds the
// service scaffolding and cross-phase operations (nextPlayer, leaveGame).
package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/fanout"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
	"github.com/busfahrer/server/internal/turn"
)

const (
	collGames   = "games"
	collLobbies = "lobbies"
)

// ChaosProbability is CHAOS_MODE from spec §9 open question #3: the
// probability threshold, in [0,1], that a phase-1 lay-card roll its
// chaos-mode bonus rather than the flat per-round amount.
const ChaosProbability = 0.3

type Service struct {
	st  store.Store
	reg *registry.Registry
}

func New(st store.Store, reg *registry.Registry) *Service {
	return &Service{st: st, reg: reg}
}

func randFloat() float64 {
	v, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0
	}
	return float64(v.Int64()) / float64(int64(1)<<53)
}

// Get returns the game document as-is, for the read-only derived-view
// endpoints in httpapi (spec §6's "GET variants").
func (s *Service) Get(ctx context.Context, gameID string) (model.Game, error) {
	return s.load(ctx, gameID)
}

func (s *Service) load(ctx context.Context, gameID string) (model.Game, error) {
	var g model.Game
	if err := s.st.Read(ctx, collGames, gameID, &g); err != nil {
		return g, apperr.NotFound("Game Error", "game not found")
	}
	return g, nil
}

func playerIdx(g model.Game, userID string) int {
	for i, p := range g.Players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

func requirePlayer(g model.Game, userID string) (int, error) {
	idx := playerIdx(g, userID)
	if idx < 0 {
		return -1, apperr.NotFound("Game Error", "player not found")
	}
	return idx, nil
}

func requireActive(g model.Game, userID string) error {
	if g.ActivePlayer == nil || *g.ActivePlayer != userID {
		return apperr.Authorization("Game Error", "not your turn")
	}
	return nil
}

func requireMaster(g model.Game, userID string) error {
	idx := playerIdx(g, userID)
	if idx < 0 || g.Players[idx].Role != model.RoleMaster {
		return apperr.Authorization("Game Error", "not the game master")
	}
	return nil
}

func requirePhase(g model.Game, want model.GameStatus) error {
	if g.Status != want {
		return apperr.Precondition("Game Error", "wrong phase for this action")
	}
	return nil
}

func pref(idx int) string {
	return "players." + strconv.Itoa(idx)
}

// canEndTurn mirrors fanout.nextPlayerEnabled's gating, applied
// authoritatively rather than only for the client-facing flag.
func canEndTurn(g model.Game, userID string) bool {
	if g.ActivePlayer == nil || *g.ActivePlayer != userID {
		return false
	}
	if g.Status == model.GamePhase1 {
		if !g.GameInfo.IsRowFlipped {
			return false
		}
		if g.Settings.Giving == model.GivingAvatar {
			total := 0
			for _, p := range g.Players {
				total += p.TurnInfo.DrinksPerPlayer
			}
			return total >= g.GameInfo.DrinksPerRound
		}
	}
	return true
}

// NextPlayer advances turn order for phases 1 and 2 (rounds 1 and 3 of
// phase 2 are sequential; round 2 ignores this and is driven entirely by
// layCard's hadTurn bookkeeping, per spec §9 open question #4).
func (s *Service) NextPlayer(ctx context.Context, gameID, userID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != model.GamePhase1 && g.Status != model.GamePhase2 {
		return apperr.Precondition("Next Player Error", "no active turn order in this phase")
	}
	if g.Status == model.GamePhase2 && g.GameInfo.RoundNr == 2 {
		return apperr.Precondition("Next Player Error", "round 2 advances automatically")
	}
	if !canEndTurn(g, userID) {
		return apperr.Authorization("Next Player Error", "not your turn, or turn requirements unmet")
	}

	idx, err := requirePlayer(g, userID)
	if err != nil {
		return err
	}

	hadTurn := map[string]bool{}
	for _, p := range g.Players {
		hadTurn[p.ID] = p.TurnInfo.HadTurn
	}

	next, roundComplete := turn.Next(g.TurnOrder, userID, g.Settings.Turning, hadTurn)

	patch := store.Patch{
		Set: map[string]any{
			"activePlayer":               next,
			pref(idx) + ".turnInfo.hadTurn": true,
		},
	}

	if roundComplete {
		if err := s.advanceRound(ctx, &g, &patch); err != nil {
			return err
		}
	}

	if err := s.st.Update(ctx, collGames, gameID, patch); err != nil {
		return apperr.Internal("Next Player Error", err)
	}
	return nil
}

// advanceRound folds in the end-of-round resets for phase 1 (§4.10) and
// phase 2 round transitions, mutating patch in place.
func (s *Service) advanceRound(ctx context.Context, g *model.Game, patch *store.Patch) error {
	if patch.Set == nil {
		patch.Set = map[string]any{}
	}

	switch g.Status {
	case model.GamePhase1:
		for i := range g.Players {
			patch.Set[pref(i)+".turnInfo.hadTurn"] = false
			patch.Set[pref(i)+".turnInfo.drinksPerPlayer"] = 0
		}
		newRound := g.GameInfo.RoundNr + 1
		patch.Set["gameInfo.roundNr"] = newRound
		patch.Set["gameInfo.drinksPerRound"] = 0
		patch.Set["gameInfo.isRowFlipped"] = false
		if newRound == 6 {
			patch.Set["gameInfo.nextPhaseEnabled"] = true
		}

	case model.GamePhase2:
		for i := range g.Players {
			patch.Set[pref(i)+".turnInfo.hadTurn"] = false
		}
		newRound := g.GameInfo.RoundNr + 1
		patch.Set["gameInfo.roundNr"] = newRound
		patch.Set["gameInfo.drinksPerRound"] = 0
		if newRound == 4 {
			patch.Set["gameInfo.nextPhaseEnabled"] = true
		}
	}
	return nil
}

// AdvancePhase moves PHASE1->PHASE2 or PHASE2->PHASE3, master-only, only
// once the local end-of-phase condition holds.
func (s *Service) AdvancePhase(ctx context.Context, gameID, userID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requireMaster(g, userID); err != nil {
		return err
	}
	if !g.GameInfo.NextPhaseEnabled {
		return apperr.Precondition("Advance Phase Error", "end-of-phase condition not met")
	}

	switch g.Status {
	case model.GamePhase1:
		patch := store.Patch{Set: map[string]any{
			"status":                  string(model.GamePhase2),
			"gameInfo.roundNr":        1,
			"gameInfo.drinksPerRound": 0,
			"gameInfo.nextPhaseEnabled": false,
			"gameInfo.drinksPerType":  map[string]int{"JACK": 0, "QUEEN": 0, "KING": 0},
			"gameInfo.hasToDown":      map[string]int{},
		}}
		for i := range g.Players {
			patch.Set[pref(i)+".turnInfo.hadTurn"] = false
		}
		if err := s.st.Update(ctx, collGames, gameID, patch); err != nil {
			return apperr.Internal("Advance Phase Error", err)
		}
		return nil

	case model.GamePhase2:
		return s.startPhase3(ctx, g)

	default:
		return apperr.Precondition("Advance Phase Error", "no further phase to advance to")
	}
}

// LeaveGame removes the caller. Per spec §9 open question #1, once a
// prior branch has deleted the game document, no later branch may try to
// mutate it further.
func (s *Service) LeaveGame(ctx context.Context, gameID, userID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	idx, err := requirePlayer(g, userID)
	if err != nil {
		return err
	}

	if len(g.Players) <= 1 {
		return s.deleteGame(ctx, gameID, g.LobbyID)
	}

	wasMaster := g.Players[idx].Role == model.RoleMaster
	remaining := append(append([]model.GamePlayer{}, g.Players[:idx]...), g.Players[idx+1:]...)

	patch := store.Patch{
		Pull: map[string]store.PullMatch{"players": {"id": userID}},
		Set:  map[string]any{},
	}

	if wasMaster && len(remaining) > 0 {
		heirIdx := playerIdx(g, remaining[0].ID)
		patch.Set[pref(heirIdx)+".role"] = string(model.RoleMaster)
	}

	if g.ActivePlayer != nil && *g.ActivePlayer == userID && len(remaining) > 0 {
		patch.Set["activePlayer"] = remaining[0].ID
	}

	if err := s.st.Update(ctx, collGames, gameID, patch); err != nil {
		return apperr.Internal("Leave Game Error", err)
	}
	return nil
}

func (s *Service) deleteGame(ctx context.Context, gameID, lobbyID string) error {
	if err := s.st.Delete(ctx, collGames, gameID); err != nil {
		return apperr.Internal("Leave Game Error", err)
	}
	_ = s.st.Update(ctx, collLobbies, lobbyID, store.Patch{
		Set: map[string]any{"status": string(model.LobbyWaiting)},
	})
	return nil
}

// OpenNewGame deletes the finished game and resets the lobby, notifying
// every game subscriber.
func (s *Service) OpenNewGame(ctx context.Context, gameID, userID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requireMaster(g, userID); err != nil {
		return err
	}
	if !g.GameInfo.GameOver {
		return apperr.Precondition("Open New Game Error", "game is not over")
	}

	if err := s.st.Delete(ctx, collGames, gameID); err != nil {
		return apperr.Internal("Open New Game Error", err)
	}
	if err := s.st.Update(ctx, collLobbies, g.LobbyID, store.Patch{
		Set: map[string]any{"status": string(model.LobbyWaiting)},
	}); err != nil {
		return apperr.Internal("Open New Game Error", err)
	}

	fanout.SendNewGameUpdate(s.reg, gameID, g.LobbyID)
	return nil
}
