package domain

import (
	"fmt"
	"strings"
)

// DefaultDeckID is the deck every collection starts with.
const DefaultDeckID int64 = 1

// DeckSeparator joins the path segments of nested deck names.
const DeckSeparator = "::"

// DayCounter is a per-deck counter that is only meaningful for Day.
type DayCounter struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

// For returns the counter value for today, treating stale counters as zero.
func (c DayCounter) For(today int) int {
	if c.Day != today {
		return 0
	}
	return c.Count
}

// Deck is a node of the deck hierarchy.
type Deck struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ConfID int64  `json:"conf_id"`

	NewToday  DayCounter `json:"new_today"`
	RevToday  DayCounter `json:"rev_today"`
	LrnToday  DayCounter `json:"lrn_today"`
	TimeToday DayCounter `json:"time_today"`

	// Filter is set for filtered decks only.
	Filter *FilterSpec `json:"filter,omitempty"`
}

// IsFiltered reports whether d is a filtered deck.
func (d *Deck) IsFiltered() bool {
	return d.Filter != nil
}

// ParentName returns the name of the deck's parent, or "" for top-level decks.
func (d *Deck) ParentName() string {
	return ParentDeckName(d.Name)
}

// Basename returns the last path segment of the deck name.
func (d *Deck) Basename() string {
	parts := strings.Split(d.Name, DeckSeparator)
	return parts[len(parts)-1]
}

// ParentDeckName returns the parent path of a deck name.
func ParentDeckName(name string) string {
	i := strings.LastIndex(name, DeckSeparator)
	if i < 0 {
		return ""
	}
	return name[:i]
}

// FilterSpec defines how a filtered deck gathers its cards.
type FilterSpec struct {
	Terms   []FilterTerm `json:"terms"`
	Resched bool         `json:"resched"`
	// PreviewDelay is the delay in minutes before a failed preview card
	// is shown again.
	PreviewDelay int `json:"preview_delay"`
}

// FilterKind restricts which cards a filter term matches.
type FilterKind int

const (
	FilterAny FilterKind = iota
	FilterDue
	FilterNew
	FilterReview
)

func (k FilterKind) String() string {
	switch k {
	case FilterAny:
		return "any"
	case FilterDue:
		return "due"
	case FilterNew:
		return "new"
	case FilterReview:
		return "review"
	}
	return fmt.Sprintf("FilterKind(%d)", int(k))
}

// ParseFilterKind parses the name of a FilterKind.
func ParseFilterKind(s string) (FilterKind, error) {
	for k := FilterAny; k <= FilterReview; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}

// FilterOrder is the order cards are gathered in.
type FilterOrder int

const (
	OrderOldestSeen FilterOrder = iota
	OrderRandom
	OrderSmallInterval
	OrderBigInterval
	OrderMostLapses
	OrderAdded
	OrderLatestAdded
	OrderDue
	OrderDuePriority
)

var filterOrderNames = []string{
	"oldest", "random", "small-interval", "big-interval", "lapses",
	"added", "latest-added", "due", "due-priority",
}

func (o FilterOrder) String() string {
	if o < 0 || int(o) >= len(filterOrderNames) {
		return fmt.Sprintf("FilterOrder(%d)", int(o))
	}
	return filterOrderNames[o]
}

// ParseFilterOrder parses the name of a FilterOrder.
func ParseFilterOrder(s string) (FilterOrder, error) {
	for i, name := range filterOrderNames {
		if name == s {
			return FilterOrder(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter order %q", s)
}

// FilterTerm selects up to Limit cards from the Deck subtree ("" for the
// whole collection).
type FilterTerm struct {
	Deck  string      `json:"deck"`
	Kind  FilterKind  `json:"kind"`
	Limit int         `json:"limit"`
	Order FilterOrder `json:"order"`
}

// BuryScope selects which buried cards to restore.
type BuryScope int

const (
	UnburyAll BuryScope = iota
	UnburyManual
	UnburySiblings
)

// ParseBuryScope parses "all", "manual" or "siblings".
func ParseBuryScope(s string) (BuryScope, error) {
	switch s {
	case "all", "":
		return UnburyAll, nil
	case "manual":
		return UnburyManual, nil
	case "siblings":
		return UnburySiblings, nil
	}
	return 0, fmt.Errorf("unknown unbury scope %q", s)
}

// Queues returns the bury queues covered by the scope.
func (s BuryScope) Queues() []Queue {
	switch s {
	case UnburyManual:
		return []Queue{QueueManuallyBuried}
	case UnburySiblings:
		return []Queue{QueueSiblingBuried}
	default:
		return []Queue{QueueManuallyBuried, QueueSiblingBuried}
	}
}
