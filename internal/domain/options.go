package domain

import "fmt"

// Keys of the collection-wide scheduler options held by the store.
const (
	KeyCreated        = "crt"
	KeyCreationOffset = "creationOffset"
	KeyRollover       = "rollover"
	KeyLearnAhead     = "collapseTime"
	KeyNewSpread      = "newSpread"
	KeyDayLearnFirst  = "dayLearnFirst"
	KeyCurrentDeck    = "curDeck"
	KeyLastUnburied   = "lastUnburied"
	KeySchedVersion   = "schedVer"
)

// NewSpread is how new cards are mixed into a study session.
type NewSpread int

const (
	NewCardsDistribute NewSpread = iota
	NewCardsLast
	NewCardsFirst
)

func (s NewSpread) String() string {
	switch s {
	case NewCardsDistribute:
		return "distribute"
	case NewCardsLast:
		return "last"
	case NewCardsFirst:
		return "first"
	}
	return fmt.Sprintf("NewSpread(%d)", int(s))
}

// ParseNewSpread parses "distribute", "last" or "first".
func ParseNewSpread(s string) (NewSpread, error) {
	for v := NewCardsDistribute; v <= NewCardsFirst; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown new card spread %q", s)
}

// Options are the collection-wide scheduler settings.
type Options struct {
	// CreatedAt is the collection creation time in epoch seconds.
	CreatedAt int64
	// CreationOffset is the UTC offset in minutes west, captured at creation.
	CreationOffset int
	// Rollover is the hour the next day starts at; default 4.
	Rollover int
	// LearnAheadSecs widens the learning window when nothing else is due;
	// default 1200.
	LearnAheadSecs int
	NewSpread      NewSpread
	DayLearnFirst  bool
	CurrentDeck    int64
	LastUnburied   int
	SchedVersion   int
}

// DefaultOptions returns the options of a collection created at crt.
func DefaultOptions(crt int64, offsetMinutesWest int) Options {
	return Options{
		CreatedAt:      crt,
		CreationOffset: offsetMinutesWest,
		Rollover:       4,
		LearnAheadSecs: 1200,
		NewSpread:      NewCardsDistribute,
		CurrentDeck:    DefaultDeckID,
		SchedVersion:   2,
	}
}
