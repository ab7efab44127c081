package fanout

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/busfahrer/server/internal/model"
)

func TestTouchesMatchesExactAndPrefix(t *testing.T) {
	fields := []string{"players.0.turnInfo.drinksPerPlayer"}

	assert.True(t, touches(fields, "players"))
	assert.True(t, touches(fields, "players.0.turnInfo.drinksPerPlayer"))
	assert.False(t, touches(fields, "players.1"))
}

func TestTouchesAnyRequiresOneMatch(t *testing.T) {
	fields := []string{"settings.giving"}

	assert.True(t, touchesAny(fields, "status", "settings"))
	assert.False(t, touchesAny(fields, "status", "gameInfo"))
}

func TestParsePlayerFieldsClassifiesKind(t *testing.T) {
	fields := []string{
		"players.0.turnInfo.drinksPerPlayer",
		"players.1.cards",
		"players.2.avatar",
		"irrelevant.field",
	}

	touches := parsePlayerFields(fields)
	assert.Len(t, touches, 3)

	byIdx := map[int]playerFieldKind{}
	for _, pt := range touches {
		byIdx[pt.idx] = pt.kind
	}
	assert.Equal(t, pfTurnInfo, byIdx[0])
	assert.Equal(t, pfCards, byIdx[1])
	assert.Equal(t, pfOther, byIdx[2])
}

func TestNextPlayerEnabledRequiresActivePlayer(t *testing.T) {
	active := "p1"
	g := model.Game{
		ActivePlayer: &active,
		Status:       model.GamePhase2,
	}

	assert.True(t, nextPlayerEnabled(g, "p1"))
	assert.False(t, nextPlayerEnabled(g, "p2"))
}

func TestNextPlayerEnabledPhase1RequiresRowFlipped(t *testing.T) {
	active := "p1"
	g := model.Game{
		ActivePlayer: &active,
		Status:       model.GamePhase1,
		GameInfo:     model.GameInfo{IsRowFlipped: false},
	}
	assert.False(t, nextPlayerEnabled(g, "p1"))

	g.GameInfo.IsRowFlipped = true
	assert.True(t, nextPlayerEnabled(g, "p1"))
}

func TestNextPlayerEnabledPhase1AvatarGivingRequiresFullDistribution(t *testing.T) {
	active := "p1"
	g := model.Game{
		ActivePlayer: &active,
		Status:       model.GamePhase1,
		GameInfo:     model.GameInfo{IsRowFlipped: true, DrinksPerRound: 3},
		Settings:     model.Settings{Giving: model.GivingAvatar},
		Players: []model.GamePlayer{
			{ID: "p1", TurnInfo: model.TurnInfo{DrinksPerPlayer: 1}},
			{ID: "p2", TurnInfo: model.TurnInfo{DrinksPerPlayer: 1}},
		},
	}
	assert.False(t, nextPlayerEnabled(g, "p1"))

	g.Players[0].TurnInfo.DrinksPerPlayer = 2
	assert.True(t, nextPlayerEnabled(g, "p1"))
}

type capturingSocket struct {
	mu   sync.Mutex
	msgs []any
}

func (c *capturingSocket) Send(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *capturingSocket) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.msgs {
		switch v := m.(type) {
		case SettingUpdate:
			out = append(out, v.Type)
		case GameCardUpdate:
			out = append(out, v.Type)
		case LobbiesUpdate:
			out = append(out, v.Type)
		}
	}
	return out
}
