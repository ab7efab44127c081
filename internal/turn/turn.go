// Package turn implements C2: next-player computation under the three
// turn modes from spec §4.2.
package turn

import (
	"crypto/rand"
	"math/big"

	"github.com/busfahrer/server/internal/model"
)

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// Next computes the next player id. hadTurn maps player id to whether
// they've already taken a turn this round (consulted/mutated only in
// Random mode); roundComplete reports whether every player has now taken
// a turn (Random clears hadTurn and returns index 0 in that case).
//
// Default advances to (i+1) mod n. Reverse advances to (i-1+n) mod n.
// Random marks current as hadTurn=true and picks uniformly among players
// with hadTurn==false that are not current; when all have taken a turn,
// hadTurn is cleared for the whole round and index returns to 0.
func Next(order []string, current string, mode model.TurnMode, hadTurn map[string]bool) (next string, roundComplete bool) {
	n := len(order)
	if n == 0 {
		return "", false
	}
	if n == 1 {
		return order[0], mode != model.TurnRandom
	}

	i := indexOf(order, current)
	if i == -1 {
		return order[0], false
	}

	switch mode {
	case model.TurnReverse:
		j := (i - 1 + n) % n
		return order[j], j == 0

	case model.TurnRandom:
		if hadTurn == nil {
			hadTurn = map[string]bool{}
		}
		hadTurn[current] = true

		var candidates []string
		for _, id := range order {
			if id == current {
				continue
			}
			if !hadTurn[id] {
				candidates = append(candidates, id)
			}
		}

		allDone := true
		for _, id := range order {
			if !hadTurn[id] {
				allDone = false
				break
			}
		}

		if len(candidates) == 0 || allDone {
			for _, id := range order {
				hadTurn[id] = false
			}
			return order[0], true
		}

		return candidates[randIntn(len(candidates))], false

	default: // model.TurnDefault
		j := (i + 1) % n
		return order[j], j == 0
	}
}
