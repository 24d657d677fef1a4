package game

// Status is the lifecycle state of a game.
type Status int

const (
	Playing Status = iota
	Won
)

// String returns the protocol string for a Status.
func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Won:
		return "won"
	default:
		return "unknown"
	}
}

// Outcome describes what a SelectCard call did.
type Outcome int

const (
	Ignored Outcome = iota
	Flipped
	Matched
	Mismatched
	GameWon
)

// String returns a short name for the outcome (used in logs).
func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Flipped:
		return "flipped"
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	case GameWon:
		return "won"
	default:
		return "unknown"
	}
}

// PendingResolution identifies a mismatched pair waiting to be flipped back.
// Generation is the controller generation at the time of the mismatch; a
// restart bumps the generation so older tokens no longer apply.
type PendingResolution struct {
	Generation uint64
	First      int
	Second     int
}

// Result is returned by SelectCard. Pending is only set for Mismatched.
type Result struct {
	Outcome Outcome
	Pending *PendingResolution
}

// State is a point-in-time copy of a game.
type State struct {
	Cards     []Card
	Selection []int
	Moves     int
	Matches   int
	Status    Status
	// Pending is true while a mismatched pair is waiting to be flipped back.
	Pending bool
}

// Controller owns the state of one game and applies the selection and
// restart rules. It is not safe for concurrent use; Session serializes
// access to it.
type Controller struct {
	symbols    []string
	intn       func(n int) int
	cards      []Card
	selection  []int
	moves      int
	matches    int
	status     Status
	generation uint64
}

// NewController creates a controller with a freshly shuffled deck.
// intn is passed to NewDeck; nil uses math/rand.
func NewController(symbols []string, intn func(n int) int) *Controller {
	syms := make([]string, len(symbols))
	copy(syms, symbols)
	c := &Controller{
		symbols: syms,
		intn:    intn,
	}
	c.reset()
	return c
}

func (c *Controller) reset() {
	c.cards = NewDeck(c.symbols, c.intn)
	c.selection = make([]int, 0, 2)
	c.moves = 0
	c.matches = 0
	c.status = Playing
}

// Generation returns the current generation. It changes on every Restart.
func (c *Controller) Generation() uint64 {
	return c.generation
}

// SelectCard flips the card at position if the rules allow it.
func (c *Controller) SelectCard(position int) Result {
	if c.status != Playing {
		return Result{Outcome: Ignored}
	}
	if len(c.selection) == 2 {
		return Result{Outcome: Ignored}
	}
	if position < 0 || position >= len(c.cards) {
		return Result{Outcome: Ignored}
	}
	card := &c.cards[position]
	if card.Flipped || card.Matched {
		return Result{Outcome: Ignored}
	}

	card.Flipped = true
	c.selection = append(c.selection, position)
	if len(c.selection) == 1 {
		return Result{Outcome: Flipped}
	}

	c.moves++
	a, b := c.selection[0], c.selection[1]
	if c.cards[a].Symbol != c.cards[b].Symbol {
		return Result{
			Outcome: Mismatched,
			Pending: &PendingResolution{Generation: c.generation, First: a, Second: b},
		}
	}

	c.cards[a].Matched = true
	c.cards[b].Matched = true
	c.selection = c.selection[:0]
	c.matches++
	if c.matches == PairCount(c.cards) {
		c.status = Won
		return Result{Outcome: GameWon}
	}
	return Result{Outcome: Matched}
}

// ResolveMismatch flips back the pair named by p. It reports false and
// changes nothing when p belongs to an earlier generation or no longer
// describes the current selection.
func (c *Controller) ResolveMismatch(p PendingResolution) bool {
	if p.Generation != c.generation {
		return false
	}
	if len(c.selection) != 2 || c.selection[0] != p.First || c.selection[1] != p.Second {
		return false
	}
	c.cards[p.First].Flipped = false
	c.cards[p.Second].Flipped = false
	c.selection = c.selection[:0]
	return true
}

// Restart deals a new deck and zeroes the counters. Any outstanding
// PendingResolution becomes stale.
func (c *Controller) Restart() {
	c.generation++
	c.reset()
}

// State returns a copy of the current game state.
func (c *Controller) State() State {
	cards := make([]Card, len(c.cards))
	copy(cards, c.cards)
	sel := make([]int, len(c.selection))
	copy(sel, c.selection)
	return State{
		Cards:     cards,
		Selection: sel,
		Moves:     c.moves,
		Matches:   c.matches,
		Status:    c.status,
		Pending:   len(c.selection) == 2,
	}
}
