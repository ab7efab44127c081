package game

import (
	"context"
	"strconv"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

// layCardPhase2 enforces the rank restriction for the current sub-round
// (spec §4.10 "Phase 2"). Round 1 and round 3 are turn-sequential like
// phase 1; round 2 is laid simultaneously by every player with no single
// active player, per spec §9 open question #4.
func (s *Service) layCardPhase2(ctx context.Context, g model.Game, userID string, cardIdx int) error {
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

	switch g.GameInfo.RoundNr {
	case 1:
		if err := requireActive(g, userID); err != nil {
			return err
		}
		if pc.Card.Number < 2 || pc.Card.Number > 10 {
			return apperr.Precondition("Lay Card Error", "only number cards 2-10 may be played this round")
		}
		patch := store.Patch{
			Set: map[string]any{pref(idx) + ".cards." + strconv.Itoa(cardIdx) + ".played": true},
			Inc: map[string]float64{"gameInfo.drinksPerRound": float64(pc.Card.Number)},
		}
		return s.applyGamePatch(ctx, g.ID, patch, "Lay Card Error")

	case 2:
		if pc.Card.Number < 11 || pc.Card.Number > 13 {
			return apperr.Precondition("Lay Card Error", "only Jack, Queen or King may be played this round")
		}

		rankKey := rankName(pc.Card.Number)
		patch := store.Patch{
			Set: map[string]any{pref(idx) + ".cards." + strconv.Itoa(cardIdx) + ".played": true},
			Inc: map[string]float64{"gameInfo.drinksPerType." + rankKey: 1},
		}

		stillHasRank := false
		for i, c := range player.Cards {
			if i == cardIdx || c.Played {
				continue
			}
			if c.Card.Number >= 11 && c.Card.Number <= 13 {
				stillHasRank = true
				break
			}
		}
		if !stillHasRank {
			patch.Set[pref(idx)+".turnInfo.hadTurn"] = true
		}

		if err := s.applyGamePatch(ctx, g.ID, patch, "Lay Card Error"); err != nil {
			return err
		}

		if !stillHasRank {
			return s.maybeFinishPhase2Round2(ctx, g.ID)
		}
		return nil

	case 3:
		if err := requireActive(g, userID); err != nil {
			return err
		}
		if pc.Card.Number != 14 {
			return apperr.Precondition("Lay Card Error", "only Aces may be played this round")
		}
		patch := store.Patch{
			Set: map[string]any{pref(idx) + ".cards." + strconv.Itoa(cardIdx) + ".played": true},
			Inc: map[string]float64{"gameInfo.hasToDown." + userID: 1},
		}
		return s.applyGamePatch(ctx, g.ID, patch, "Lay Card Error")

	default:
		return apperr.Precondition("Lay Card Error", "hand disposal is already complete")
	}
}

func rankName(number int) string {
	switch number {
	case 11:
		return "JACK"
	case 12:
		return "QUEEN"
	default:
		return "KING"
	}
}

func (s *Service) applyGamePatch(ctx context.Context, gameID string, patch store.Patch, title string) error {
	if err := s.st.Update(ctx, collGames, gameID, patch); err != nil {
		return apperr.Internal(title, err)
	}
	return nil
}

// maybeFinishPhase2Round2 checks whether every player has exhausted their
// face cards and, if so, credits gender-based drinks and advances to
// round 3.
func (s *Service) maybeFinishPhase2Round2(ctx context.Context, gameID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != model.GamePhase2 || g.GameInfo.RoundNr != 2 {
		return nil
	}
	for _, p := range g.Players {
		if !p.TurnInfo.HadTurn {
			return nil
		}
	}

	jack := g.GameInfo.DrinksPerType["JACK"]
	queen := g.GameInfo.DrinksPerType["QUEEN"]
	king := g.GameInfo.DrinksPerType["KING"]

	set := map[string]any{
		"gameInfo.roundNr":        3,
		"gameInfo.drinksPerRound": 0,
	}
	for i, p := range g.Players {
		total := 0
		switch p.Gender {
		case model.GenderMale:
			total = jack + king
		case model.GenderFemale:
			total = queen + king
		default:
			total = jack + queen + king
		}
		set[pref(i)+".turnInfo.hadTurn"] = false
		set[pref(i)+".turnInfo.drinksPerPlayer"] = total
	}

	return s.applyGamePatch(ctx, gameID, store.Patch{Set: set}, "Lay Card Error")
}
