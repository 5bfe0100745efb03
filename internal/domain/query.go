package domain

import "errors"

var (
	// ErrNotFound is returned by stores for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateReviewLog is returned when a review-log id is already taken.
	ErrDuplicateReviewLog = errors.New("duplicate review log id")
)

// DueFilter restricts CardQuery by due value.
type DueFilter int

const (
	DueAny DueFilter = iota
	DueBefore        // due < Due
	DueAtMost        // due <= Due
)

// CardOrder is the sort order of a CardQuery.
type CardOrder int

const (
	OrderByID CardOrder = iota
	OrderByDue           // due, id
	OrderByDueOrd        // due, ord, id
)

// CardQuery selects cards by scheduling fields. Zero-valued fields do not
// filter.
type CardQuery struct {
	DeckIDs       []int64
	Queues        []Queue
	NoteID        int64
	ExcludeID     int64
	ExcludeNoteID int64
	Due           int64
	DueFilter     DueFilter
	Order         CardOrder
	Limit         int
}

// CardRef is the lightweight view of a card kept in scheduler queues.
type CardRef struct {
	ID     int64 `db:"id"`
	NoteID int64 `db:"nid"`
	DeckID int64 `db:"did"`
	Due    int64 `db:"due"`
	Queue  Queue `db:"queue"`
}
