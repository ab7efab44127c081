// Package cards implements C1: deck construction, the three shuffle
// algorithms, and card-match predicates from spec §4.1.
package cards

import (
	"crypto/rand"
	"math/big"

	"github.com/busfahrer/server/internal/model"
)

var suits = []string{model.SuitHearts, model.SuitDiamonds, model.SuitClubs, model.SuitSpades}

// NewDeck builds two copies of a standard 52-card deck (104 cards total),
// numbers 2..14 (11=J, 12=Q, 13=K, 14=A) across the four suits.
func NewDeck() []model.Card {
	deck := make([]model.Card, 0, 104)
	for copyIdx := 0; copyIdx < 2; copyIdx++ {
		for _, suit := range suits {
			for n := 2; n <= 14; n++ {
				deck = append(deck, model.Card{Number: n, Suit: suit})
			}
		}
	}
	return deck
}

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

// ShuffleAlgorithm selects one of the three shuffle styles from spec §4.1.
type ShuffleAlgorithm string

const (
	FisherYates ShuffleAlgorithm = "FisherYates"
	Caotic      ShuffleAlgorithm = "Caotic"
	Riffle      ShuffleAlgorithm = "Riffle"
)

// Shuffle reorders deck in place according to algo.
func Shuffle(deck []model.Card, algo ShuffleAlgorithm) {
	switch algo {
	case Caotic:
		shuffleCaotic(deck)
	case Riffle:
		shuffleRiffle(deck)
	default:
		shuffleFisherYates(deck)
	}
}

// shuffleFisherYates is the standard unbiased in-place swap.
func shuffleFisherYates(deck []model.Card) {
	for i := len(deck) - 1; i > 0; i-- {
		j := randIntn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// shuffleCaotic draws uniformly from the remaining pile, except with
// probability 0.3 (when the output tail is non-empty) it draws uniformly
// from remaining cards sharing Number or Suit with the tail card,
// producing streaks.
func shuffleCaotic(deck []model.Card) {
	remaining := append([]model.Card(nil), deck...)
	out := make([]model.Card, 0, len(deck))

	for len(remaining) > 0 {
		idx := -1

		if len(out) > 0 && randIntn(10) < 3 {
			tail := out[len(out)-1]
			var candidates []int
			for i, c := range remaining {
				if c.Number == tail.Number || c.Suit == tail.Suit {
					candidates = append(candidates, i)
				}
			}
			if len(candidates) > 0 {
				idx = candidates[randIntn(len(candidates))]
			}
		}

		if idx == -1 {
			idx = randIntn(len(remaining))
		}

		out = append(out, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	copy(deck, out)
}

// shuffleRiffle runs seven rounds; each round cuts near the middle with
// jitter ±5, then interleaves halves, choosing each side with probability
// 0.5 (taking the non-empty side when only one remains).
func shuffleRiffle(deck []model.Card) {
	cur := append([]model.Card(nil), deck...)

	for round := 0; round < 7; round++ {
		n := len(cur)
		jitter := randIntn(11) - 5 // -5..+5
		cut := n/2 + jitter
		if cut < 0 {
			cut = 0
		}
		if cut > n {
			cut = n
		}

		left := append([]model.Card(nil), cur[:cut]...)
		right := append([]model.Card(nil), cur[cut:]...)

		merged := make([]model.Card, 0, n)
		for len(left) > 0 || len(right) > 0 {
			switch {
			case len(left) == 0:
				merged = append(merged, right...)
				right = nil
			case len(right) == 0:
				merged = append(merged, left...)
				left = nil
			case randIntn(2) == 0:
				merged = append(merged, left[0])
				left = left[1:]
			default:
				merged = append(merged, right[0])
				right = right[1:]
			}
		}

		cur = merged
	}

	copy(deck, cur)
}

// Match compares two cards under the given style. Number-only is the
// default per spec §4.1.
func Match(a, b model.Card, style model.MatchStyle) bool {
	switch style {
	case model.MatchExact:
		return a.Number == b.Number && a.Suit == b.Suit
	case model.MatchTypeOnly:
		return a.Suit == b.Suit
	case model.MatchNumberOnly:
		return a.Number == b.Number
	default:
		return a.Number == b.Number
	}
}

// MatchAny reports whether card matches any of candidates under style.
func MatchAny(card model.Card, candidates []model.Card, style model.MatchStyle) bool {
	for _, c := range candidates {
		if Match(card, c, style) {
			return true
		}
	}
	return false
}
