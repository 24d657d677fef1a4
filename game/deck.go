package game

import (
	"math/rand"
)

// Card is a single card in the deck. ID is unique per physical card;
// the two cards of a pair share Symbol.
type Card struct {
	ID      int
	Symbol  string
	Flipped bool
	Matched bool
}

// NewDeck builds two face-down cards per symbol and shuffles them with
// Fisher-Yates. intn must return a uniform value in [0, n); nil uses math/rand.
func NewDeck(symbols []string, intn func(n int) int) []Card {
	if intn == nil {
		intn = rand.Intn
	}

	cards := make([]Card, 0, 2*len(symbols))
	for k, sym := range symbols {
		cards = append(cards,
			Card{ID: 2 * k, Symbol: sym},
			Card{ID: 2*k + 1, Symbol: sym},
		)
	}

	for i := len(cards) - 1; i > 0; i-- {
		j := intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards
}

// PairCount returns the number of pairs in the deck.
func PairCount(cards []Card) int {
	return len(cards) / 2
}

// AllMatched returns true if every card in the deck is matched.
func AllMatched(cards []Card) bool {
	for _, c := range cards {
		if !c.Matched {
			return false
		}
	}
	return true
}
