package game

import "strings"

// AttemptKind tags an attempt as a guess or a skip
type AttemptKind string

const (
	KindGuess AttemptKind = "guess"
	KindSkip  AttemptKind = "skip"
)

// Attempt is one turn consumed by the player
type Attempt struct {
	Kind    AttemptKind `json:"type"`
	Value   string      `json:"value,omitempty"`
	Correct bool        `json:"correct"`
}

// GuessAttempt builds a guess with its precomputed correctness
func GuessAttempt(value string, correct bool) Attempt {
	return Attempt{Kind: KindGuess, Value: value, Correct: correct}
}

// SkipAttempt builds a skip
func SkipAttempt() Attempt {
	return Attempt{Kind: KindSkip}
}

// MatchesTitle reports whether guess names the song title. The match is
// exact apart from letter case.
func MatchesTitle(guess, title string) bool {
	return strings.EqualFold(guess, title)
}

// Outcome is the result of a finished game
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Ledger is the append-only record of attempts for one song
type Ledger struct {
	attempts []Attempt
	max      int
	schedule Schedule
}

// NewLedger creates an empty ledger. A max of zero or less leaves the
// ledger unbounded.
func NewLedger(max int, schedule Schedule) *Ledger {
	return &Ledger{max: max, schedule: schedule}
}

// Append records an attempt and returns the new length. It fails with
// ErrLedgerClosed once the ledger is won or full, leaving it unchanged.
func (l *Ledger) Append(a Attempt) (int, error) {
	if l.IsTerminal() {
		return len(l.attempts), ErrLedgerClosed
	}
	if a.Kind == KindSkip {
		a.Value = ""
		a.Correct = false
	}
	l.attempts = append(l.attempts, a)
	return len(l.attempts), nil
}

// IsWon reports whether any attempt is a correct guess
func (l *Ledger) IsWon() bool {
	for _, a := range l.attempts {
		if a.Kind == KindGuess && a.Correct {
			return true
		}
	}
	return false
}

// IsExhausted reports whether every attempt has been used
func (l *Ledger) IsExhausted() bool {
	return l.max > 0 && len(l.attempts) >= l.max
}

// IsTerminal reports whether no further attempts may be appended
func (l *Ledger) IsTerminal() bool {
	return l.IsWon() || l.IsExhausted()
}

// Outcome returns won, lost or none
func (l *Ledger) Outcome() Outcome {
	switch {
	case l.IsWon():
		return OutcomeWon
	case l.IsExhausted():
		return OutcomeLost
	default:
		return OutcomeNone
	}
}

// UnlockedDuration is the audible window for the current length. The
// segment at index len is already included, so the first segment is free.
func (l *Ledger) UnlockedDuration() int {
	return l.schedule.Unlocked(len(l.attempts))
}

// NextIncrement is what the next skip adds to the window
func (l *Ledger) NextIncrement() int {
	return l.schedule.Increment(len(l.attempts))
}

// Len returns the number of attempts
func (l *Ledger) Len() int { return len(l.attempts) }

// Max returns the attempt cap, zero or less when unbounded
func (l *Ledger) Max() int { return l.max }

// Schedule returns the ledger's segment schedule
func (l *Ledger) Schedule() Schedule { return l.schedule }

// Attempts returns a copy of the recorded attempts
func (l *Ledger) Attempts() []Attempt {
	out := make([]Attempt, len(l.attempts))
	copy(out, l.attempts)
	return out
}
