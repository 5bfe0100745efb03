package sched

import "errors"

var (
	// ErrInvalidQueue is returned when a card is in a queue or has a type
	// the answer it received cannot apply to.
	ErrInvalidQueue = errors.New("sched: invalid card queue")
	// ErrInvalidRating is returned for ratings outside 1-4.
	ErrInvalidRating = errors.New("sched: invalid rating")
	// ErrNotFiltered is returned when a filtered-deck operation is given a
	// normal deck.
	ErrNotFiltered = errors.New("sched: deck is not filtered")
	// ErrFilteredDeckEmpty is returned when a rebuild gathered no cards.
	ErrFilteredDeckEmpty = errors.New("sched: no cards matched the filter")
	// ErrDeckNotFound is returned for unknown deck ids or names.
	ErrDeckNotFound = errors.New("sched: deck not found")
	// ErrNoteNotFound is returned when a note has no cards.
	ErrNoteNotFound = errors.New("sched: note not found")
	// ErrReviewLogConflict is returned when a review-log entry could not be
	// given a unique timestamp.
	ErrReviewLogConflict = errors.New("sched: review log id conflict")
	// ErrInvalidDueSpec is returned by SetDueDate for malformed day specs.
	ErrInvalidDueSpec = errors.New("sched: invalid due date spec")
)
