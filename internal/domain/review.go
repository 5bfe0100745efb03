package domain

import (
	"encoding"
	"fmt"
	"strings"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

var (
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// IsValid reports whether r is one of the four answer buttons.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid rating %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts names as
// well as the button numbers 1-4.
func (r *Rating) UnmarshalText(text []byte) error {
	parsed, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRating parses a rating name ("again", "good", ...) or button number.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again", "1":
		return Again, nil
	case "hard", "2":
		return Hard, nil
	case "good", "3":
		return Good, nil
	case "easy", "4":
		return Easy, nil
	}
	return 0, fmt.Errorf("invalid rating %q", s)
}

// ReviewKind classifies a review-log entry.
type ReviewKind int

const (
	ReviewKindLearn ReviewKind = iota
	ReviewKindReview
	ReviewKindRelearn
	ReviewKindFiltered // early reviews and preview answers in filtered decks
	ReviewKindManual
)

func (k ReviewKind) String() string {
	switch k {
	case ReviewKindLearn:
		return "learn"
	case ReviewKindReview:
		return "review"
	case ReviewKindRelearn:
		return "relearn"
	case ReviewKindFiltered:
		return "filtered"
	case ReviewKindManual:
		return "manual"
	}
	return fmt.Sprintf("ReviewKind(%d)", int(k))
}

// ReviewLogEntry is an append-only record of one answer.
// ID is the answer time in milliseconds and must be unique.
type ReviewLogEntry struct {
	ID           int64      `db:"id" json:"id"`
	CardID       int64      `db:"cid" json:"card_id"`
	Usn          int        `db:"usn" json:"usn"`
	Ease         Rating     `db:"ease" json:"ease"`
	Interval     int        `db:"ivl" json:"interval"`
	LastInterval int        `db:"last_ivl" json:"last_interval"`
	Factor       int        `db:"factor" json:"factor"`
	TimeTaken    int        `db:"taken_ms" json:"time_taken"`
	Kind         ReviewKind `db:"kind" json:"kind"`
}

// KindStats aggregates recent review-log entries of one kind.
type KindStats struct {
	Kind        ReviewKind `db:"kind"`
	Count       int        `db:"cnt"`
	SuccessRate float64    `db:"success"`
	AvgTimeMS   float64    `db:"avg_ms"`
}
