package game

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/cards"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

const collUsers = "users"

// rideLayout is the bottom-up row-width table for the phase-3 ride.
var rideLayout = [9]int{2, 2, 3, 4, 5, 4, 3, 2, 2}

func unplayedCount(p model.GamePlayer) int {
	n := 0
	for _, c := range p.Cards {
		if !c.Played {
			n++
		}
	}
	return n
}

// electBusfahrer implements the default/reverse/random election rules.
func electBusfahrer(players []model.GamePlayer, mode model.TurnMode) []string {
	if len(players) == 0 {
		return nil
	}
	if mode == model.TurnRandom {
		return []string{players[randIntn(len(players))].ID}
	}

	best := unplayedCount(players[0])
	for _, p := range players[1:] {
		n := unplayedCount(p)
		if mode == model.TurnReverse {
			if n < best {
				best = n
			}
		} else if n > best {
			best = n
		}
	}

	var out []string
	for _, p := range players {
		n := unplayedCount(p)
		if n == best {
			out = append(out, p.ID)
		}
	}
	return out
}

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(randFloat() * float64(n))
}

func buildRide(deck []model.Card) [][]model.GameCard {
	ride := make([][]model.GameCard, 9)
	for r, width := range rideLayout {
		row := make([]model.GameCard, width)
		for c := 0; c < width; c++ {
			row[c] = model.GameCard{Card: deck[0]}
			deck = deck[1:]
		}
		ride[r] = row
	}
	ride[0][1].Flipped = true
	ride[8][0].Flipped = true
	return ride
}

// startPhase3 elects the busfahrer, builds the ride and transitions the
// game document.
func (s *Service) startPhase3(ctx context.Context, g model.Game) error {
	busfahrer := electBusfahrer(g.Players, g.Settings.BusMode)
	if len(busfahrer) == 0 {
		return apperr.Internal("Advance Phase Error", nil)
	}

	deck := cards.NewDeck()
	cards.Shuffle(deck, cards.ShuffleAlgorithm(g.Settings.Shuffling))
	ride := buildRide(deck)
	seed := ride[0][1].Card

	active := busfahrer[0]

	set := map[string]any{
		"status":                    string(model.GamePhase3),
		"cards":                     ride,
		"activePlayer":              active,
		"gameInfo.roundNr":          1,
		"gameInfo.busfahrer":        busfahrer,
		"gameInfo.busfahrerName":    strings.Join(namesFor(g.Players, busfahrer), " & "),
		"gameInfo.currentRow":       0,
		"gameInfo.lastCard":         seed,
		"gameInfo.drinksPerTry":     0,
		"gameInfo.tryOver":          false,
		"gameInfo.gameOver":         false,
		"gameInfo.nextPhaseEnabled": false,
	}

	return s.applyGamePatch(ctx, g.ID, store.Patch{Set: set}, "Advance Phase Error")
}

func namesFor(players []model.GamePlayer, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		for _, p := range players {
			if p.ID == id {
				out = append(out, p.Name)
				break
			}
		}
	}
	return out
}

// GuessPhase3 resolves one higher/lower/same/equal/unequal guess against
// the ride. rowCol is "row-col" as sent by the client.
func (s *Service) GuessPhase3(ctx context.Context, gameID, userID, rowCol, action string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requirePhase(g, model.GamePhase3); err != nil {
		return err
	}
	if err := requireActive(g, userID); err != nil {
		return err
	}
	if g.GameInfo.TryOver {
		return apperr.Precondition("Guess Error", "a retry is required before continuing")
	}

	row, col, ok := parseRowCol(rowCol)
	if !ok || row != g.GameInfo.CurrentRow || row < 0 || row >= len(g.Cards) || col < 0 || col >= len(g.Cards[row]) {
		return apperr.Precondition("Guess Error", "card does not match the current row")
	}
	gc := g.Cards[row][col]
	if gc.Flipped {
		return apperr.Precondition("Guess Error", "card already flipped")
	}

	var correct bool
	if row == 8 {
		if action != "equal" && action != "unequal" {
			return apperr.Precondition("Guess Error", "final row requires equal or unequal")
		}
		seed := g.Cards[8][0].Card
		same := gc.Card.Number == seed.Number
		correct = (action == "equal" && same) || (action == "unequal" && !same)
	} else {
		if action != "higher" && action != "lower" && action != "same" {
			return apperr.Precondition("Guess Error", "row requires higher, lower or same")
		}
		last := g.GameInfo.LastCard
		if last == nil {
			return apperr.Internal("Guess Error", nil)
		}
		switch action {
		case "higher":
			correct = gc.Card.Number > last.Number
		case "lower":
			correct = gc.Card.Number < last.Number
		case "same":
			correct = gc.Card.Number == last.Number
		}
	}

	set := map[string]any{
		"cards." + strconv.Itoa(row) + "." + strconv.Itoa(col) + ".flipped": true,
	}

	if !correct {
		set["gameInfo.drinksPerTry"] = row + 1
		set["gameInfo.tryOver"] = true
		return s.applyGamePatch(ctx, gameID, store.Patch{Set: set}, "Guess Error")
	}

	newRow := row + 1
	set["gameInfo.currentRow"] = newRow
	set["gameInfo.lastCard"] = gc.Card

	if newRow == 9 {
		set["gameInfo.gameOver"] = true
	}

	if err := s.applyGamePatch(ctx, gameID, store.Patch{Set: set}, "Guess Error"); err != nil {
		return err
	}

	if newRow == 9 {
		return s.creditWin(ctx, g, userID)
	}
	return nil
}

func parseRowCol(s string) (row, col int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	r, err1 := strconv.Atoi(parts[0])
	c, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return r, c, true
}

// creditWin bumps every participant's gamesPlayed and the driver's
// gamesWon on their long-lived user documents (spec §4.10's closing
// paragraph; distinct from the per-game GameStatistics document).
func (s *Service) creditWin(ctx context.Context, g model.Game, driverID string) error {
	for _, p := range g.Players {
		inc := map[string]float64{"statistics." + model.StatGamesPlayed: 1}
		if p.ID == driverID {
			inc["statistics."+model.StatGamesWon] = 1
			inc["statistics."+model.StatBusfahrerCount] = 1
		}
		if err := s.st.Update(ctx, collUsers, p.ID, store.Patch{Inc: inc}); err != nil {
			return apperr.Internal("Guess Error", err)
		}
	}
	return nil
}

// RetryPhase3 flips every card back down, then reconstructs a fresh
// layout. The activePlayer=null update is issued first and separately so
// the dispatcher emits a visible transition before the full reset, per
// spec §4.10.
func (s *Service) RetryPhase3(ctx context.Context, gameID, userID string) error {
	g, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := requirePhase(g, model.GamePhase3); err != nil {
		return err
	}
	if err := requireMaster(g, userID); err != nil {
		return err
	}
	if !g.GameInfo.TryOver {
		return apperr.Precondition("Retry Error", "no failed try to retry")
	}

	flipDown := map[string]any{}
	for r := range g.Cards {
		for c := range g.Cards[r] {
			flipDown["cards."+strconv.Itoa(r)+"."+strconv.Itoa(c)+".flipped"] = false
		}
	}
	flipDown["activePlayer"] = nil
	if err := s.applyGamePatch(ctx, gameID, store.Patch{Set: flipDown}, "Retry Error"); err != nil {
		return err
	}

	time.Sleep(350 * time.Millisecond)

	deck := cards.NewDeck()
	cards.Shuffle(deck, cards.ShuffleAlgorithm(g.Settings.Shuffling))
	ride := buildRide(deck)

	active := g.GameInfo.Busfahrer[0]
	set := map[string]any{
		"cards":                 ride,
		"activePlayer":          active,
		"gameInfo.currentRow":   0,
		"gameInfo.drinksPerTry": 0,
		"gameInfo.tryOver":      false,
		"gameInfo.gameOver":     false,
		"gameInfo.lastCard":     ride[0][1].Card,
	}
	return s.applyGamePatch(ctx, gameID, store.Patch{Set: set}, "Retry Error")
}
