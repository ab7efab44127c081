package game

import (
	"context"
	"strconv"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/cards"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

// FlipRow reveals round k's pyramid row. Only the master may call it, and
// only for the round currently in progress; a row cannot be re-flipped.
func (s *Service) FlipRow(ctx context.Context, gameID, userID string, idx int) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requirePhase(g, model.GamePhase1); err != nil {
		return err
	}
	if err := requireMaster(g, userID); err != nil {
		return err
	}
	if idx != g.GameInfo.RoundNr {
		return apperr.Precondition("Flip Row Error", "not this round's row")
	}
	if g.GameInfo.IsRowFlipped {
		return apperr.Precondition("Flip Row Error", "row already flipped")
	}

	row := idx - 1
	if row < 0 || row >= len(g.Cards) {
		return apperr.Precondition("Flip Row Error", "row out of range")
	}

	set := map[string]any{"gameInfo.isRowFlipped": true}
	for c := range g.Cards[row] {
		set["cards."+strconv.Itoa(row)+"."+strconv.Itoa(c)+".flipped"] = true
	}

	if err := s.st.Update(ctx, collGames, gameID, store.Patch{Set: set}); err != nil {
		return apperr.Internal("Flip Row Error", err)
	}
	return nil
}

// LayCard plays cardIdx from the caller's hand. Phase 1 requires it match
// some card in the current (flipped) pyramid row; phase 2 delegates to
// layCardPhase2's rank-restricted rules.
func (s *Service) LayCard(ctx context.Context, gameID, userID string, cardIdx int) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}

	switch g.Status {
	case model.GamePhase1:
		return s.layCardPhase1(ctx, g, userID, cardIdx)
	case model.GamePhase2:
		return s.layCardPhase2(ctx, g, userID, cardIdx)
	default:
		return apperr.Precondition("Lay Card Error", "cards cannot be laid in this phase")
	}
}

func (s *Service) layCardPhase1(ctx context.Context, g model.Game, userID string, cardIdx int) error {
	if err := requireActive(g, userID); err != nil {
		return err
	}
	if !g.GameInfo.IsRowFlipped {
		return apperr.Precondition("Lay Card Error", "this round's row has not been flipped yet")
	}

	idx, err := requirePlayer(g, userID)
	if err != nil {
		return err
	}
	player := g.Players[idx]
	if cardIdx < 0 || cardIdx >= len(player.Cards) {
		return apperr.Precondition("Lay Card Error", "card index out of range")
	}
	pc := player.Cards[cardIdx]
	if pc.Played {
		return apperr.Precondition("Lay Card Error", "card already played")
	}

	row := g.Cards[g.GameInfo.RoundNr-1]
	candidates := make([]model.Card, len(row))
	for i, gc := range row {
		candidates[i] = gc.Card
	}
	if !cards.MatchAny(pc.Card, candidates, g.Settings.Matching) {
		return apperr.Precondition("Lay Card Error", "card does not match the current row")
	}

	amount := g.GameInfo.RoundNr
	if g.Settings.IsChaos && randFloat() < ChaosProbability {
		amount = pc.Card.Number * g.GameInfo.RoundNr
	}

	patch := store.Patch{
		Set: map[string]any{pref(idx) + ".cards." + strconv.Itoa(cardIdx) + ".played": true},
		Inc: map[string]float64{"gameInfo.drinksPerRound": float64(amount)},
	}
	if err := s.st.Update(ctx, collGames, g.ID, patch); err != nil {
		return apperr.Internal("Lay Card Error", err)
	}
	return nil
}

// GiveDrinkToPlayer implements Avatar giving mode's per-target
// allocation. inc must be +1 or -1; the running total against the
// active player must stay within [0, drinksPerRound].
func (s *Service) GiveDrinkToPlayer(ctx context.Context, gameID, userID, targetID string, inc int) error {
	if inc != 1 && inc != -1 {
		return apperr.Precondition("Give Drink Error", "inc must be +1 or -1")
	}

	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requirePhase(g, model.GamePhase1); err != nil {
		return err
	}
	if g.Settings.Giving != model.GivingAvatar {
		return apperr.Precondition("Give Drink Error", "lobby is not using avatar giving mode")
	}
	if err := requireActive(g, userID); err != nil {
		return err
	}

	targetIdx, err := requirePlayer(g, targetID)
	if err != nil {
		return err
	}

	total := 0
	for _, p := range g.Players {
		total += p.TurnInfo.DrinksPerPlayer
	}
	if inc > 0 && total >= g.GameInfo.DrinksPerRound {
		return apperr.Precondition("Give Drink Error", "all drinks for this round are already assigned")
	}
	if inc < 0 && (total <= 0 || g.Players[targetIdx].TurnInfo.DrinksPerPlayer <= 0) {
		return apperr.Precondition("Give Drink Error", "no drinks to take back from this player")
	}

	patch := store.Patch{
		Inc: map[string]float64{pref(targetIdx) + ".turnInfo.drinksPerPlayer": float64(inc)},
	}
	if err := s.st.Update(ctx, collGames, gameID, patch); err != nil {
		return apperr.Internal("Give Drink Error", err)
	}
	return nil
}
