package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busfahrer/server/internal/model"
)

func phase1Game(active string) model.Game {
	g := basicGame("g1", model.GamePhase1, active)
	g.Cards = [][]model.GameCard{
		{{Card: model.Card{Number: 7, Suit: model.SuitHearts}}},
		{{Card: model.Card{Number: 9, Suit: model.SuitClubs}}, {Card: model.Card{Number: 3, Suit: model.SuitSpades}}},
	}
	g.Players[0].Cards = []model.PlayerCard{
		{Card: model.Card{Number: 7, Suit: model.SuitDiamonds}},
		{Card: model.Card{Number: 4, Suit: model.SuitHearts}},
	}
	return g
}

func TestFlipRowRequiresMaster(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.FlipRow(ctx, "g1", "p2", 1)
	assert.Error(t, err)
}

func TestFlipRowRejectsWrongRound(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.FlipRow(ctx, "g1", "p1", 2)
	assert.Error(t, err)
}

func TestFlipRowMarksRowFlipped(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	require.NoError(t, svc.FlipRow(ctx, "g1", "p1", 1))

	var got model.Game
	require.NoError(t, st.Read(ctx, collGames, "g1", &got))
	assert.True(t, got.GameInfo.IsRowFlipped)
	assert.True(t, got.Cards[0][0].Flipped)
}

func TestFlipRowRejectsAlreadyFlipped(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.GameInfo.IsRowFlipped = true
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.FlipRow(ctx, "g1", "p1", 1)
	assert.Error(t, err)
}

func TestLayCardPhase1RequiresMatchingRow(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.GameInfo.IsRowFlipped = true
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	// card index 1 is a 4, row is a 7 -> number-only match style fails.
	err := svc.LayCard(ctx, "g1", "p1", 1)
	assert.Error(t, err)
}

func TestLayCardPhase1AppliesDrinksOnMatch(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.GameInfo.IsRowFlipped = true
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	require.NoError(t, svc.LayCard(ctx, "g1", "p1", 0))

	var got model.Game
	require.NoError(t, st.Read(ctx, collGames, "g1", &got))
	assert.True(t, got.Players[0].Cards[0].Played)
	assert.Equal(t, 1, got.GameInfo.DrinksPerRound)
}

func TestLayCardPhase1RejectsBeforeRowFlipped(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.LayCard(ctx, "g1", "p1", 0)
	assert.Error(t, err)
}

func TestLayCardPhase1RejectsAlreadyPlayedCard(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.GameInfo.IsRowFlipped = true
	g.Players[0].Cards[0].Played = true
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.LayCard(ctx, "g1", "p1", 0)
	assert.Error(t, err)
}

func TestGiveDrinkToPlayerRequiresAvatarMode(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.GameInfo.DrinksPerRound = 3
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.GiveDrinkToPlayer(ctx, "g1", "p1", "p2", 1)
	assert.Error(t, err)
}

func TestGiveDrinkToPlayerAssignsWithinBudget(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.Settings.Giving = model.GivingAvatar
	g.GameInfo.DrinksPerRound = 2
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	require.NoError(t, svc.GiveDrinkToPlayer(ctx, "g1", "p1", "p2", 1))

	var got model.Game
	require.NoError(t, st.Read(ctx, collGames, "g1", &got))
	assert.Equal(t, 1, got.Players[1].TurnInfo.DrinksPerPlayer)
}

func TestGiveDrinkToPlayerRejectsOverBudget(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.Settings.Giving = model.GivingAvatar
	g.GameInfo.DrinksPerRound = 1
	g.Players[1].TurnInfo.DrinksPerPlayer = 1
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.GiveDrinkToPlayer(ctx, "g1", "p1", "p2", 1)
	assert.Error(t, err)
}

func TestGiveDrinkToPlayerRejectsTakeBackBelowZero(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.Settings.Giving = model.GivingAvatar
	g.GameInfo.DrinksPerRound = 2
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.GiveDrinkToPlayer(ctx, "g1", "p1", "p2", -1)
	assert.Error(t, err)
}

func TestGiveDrinkToPlayerRejectsInvalidIncrement(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	g := phase1Game("p1")
	g.Settings.Giving = model.GivingAvatar
	require.NoError(t, st.Insert(ctx, collGames, "g1", g))

	err := svc.GiveDrinkToPlayer(ctx, "g1", "p1", "p2", 2)
	assert.Error(t, err)
}
