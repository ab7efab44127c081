package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/busfahrer/server/internal/model"
)

func TestNextDefaultAdvancesAndWrapsRound(t *testing.T) {
	order := []string{"a", "b", "c"}

	next, done := Next(order, "a", model.TurnDefault, nil)
	assert.Equal(t, "b", next)
	assert.False(t, done)

	next, done = Next(order, "c", model.TurnDefault, nil)
	assert.Equal(t, "a", next)
	assert.True(t, done)
}

func TestNextReverseAdvancesBackward(t *testing.T) {
	order := []string{"a", "b", "c"}

	next, done := Next(order, "a", model.TurnReverse, nil)
	assert.Equal(t, "c", next)
	assert.False(t, done)

	next, done = Next(order, "b", model.TurnReverse, nil)
	assert.Equal(t, "a", next)
	assert.True(t, done)
}

func TestNextRandomVisitsEveryPlayerBeforeRepeating(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	hadTurn := map[string]bool{}

	seen := map[string]bool{"a": true}
	current := "a"
	for i := 0; i < len(order)-1; i++ {
		next, done := Next(order, current, model.TurnRandom, hadTurn)
		assert.False(t, seen[next], "player %s visited twice before round completed", next)
		seen[next] = true
		current = next
		if i < len(order)-2 {
			assert.False(t, done)
		}
	}

	assert.Len(t, seen, len(order))
}

func TestNextRandomCompletesRoundAndResets(t *testing.T) {
	order := []string{"a", "b"}
	hadTurn := map[string]bool{}

	next, done := Next(order, "a", model.TurnRandom, hadTurn)
	assert.Equal(t, "b", next)
	assert.False(t, done)

	next, done = Next(order, "b", model.TurnRandom, hadTurn)
	assert.Equal(t, "a", next)
	assert.True(t, done)

	for _, v := range hadTurn {
		assert.False(t, v)
	}
}

func TestNextSinglePlayerAlwaysReturnsThemselves(t *testing.T) {
	order := []string{"solo"}

	next, done := Next(order, "solo", model.TurnDefault, nil)
	assert.Equal(t, "solo", next)
	assert.True(t, done)

	next, done = Next(order, "solo", model.TurnRandom, nil)
	assert.Equal(t, "solo", next)
	assert.False(t, done)
}

func TestNextEmptyOrderReturnsEmpty(t *testing.T) {
	next, done := Next(nil, "a", model.TurnDefault, nil)
	assert.Empty(t, next)
	assert.False(t, done)
}

func TestNextUnknownCurrentFallsBackToFirst(t *testing.T) {
	order := []string{"a", "b", "c"}

	next, done := Next(order, "ghost", model.TurnDefault, nil)
	assert.Equal(t, "a", next)
	assert.False(t, done)
}
