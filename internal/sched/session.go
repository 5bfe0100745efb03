package sched

import (
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
)

// CurrentCard is the part of the card on screen that queue building needs.
type CurrentCard struct {
	ID     int64
	NoteID int64
	DeckID int64
	Queue  domain.Queue
}

// SessionState is the review session owned by the caller. NextCard records
// the card it hands out here so that counts and refills exclude it.
type SessionState struct {
	Current *CurrentCard
	// CurrentAncestors are the ids of the current card's deck and its
	// parents.
	CurrentAncestors []int64
	// ShownAt is when the current card was handed out.
	ShownAt time.Time
}

// Discard forgets the current card.
func (s *SessionState) Discard() {
	if s == nil {
		return
	}
	s.Current = nil
	s.CurrentAncestors = nil
	s.ShownAt = time.Time{}
}

func (s *SessionState) currentID() int64 {
	if s == nil || s.Current == nil {
		return 0
	}
	return s.Current.ID
}

func (s *SessionState) currentNoteID() int64 {
	if s == nil || s.Current == nil {
		return 0
	}
	return s.Current.NoteID
}

// currentIn reports whether the current card sits in queue q of deck did
// or one of its subdecks.
func (s *SessionState) currentIn(q domain.Queue, did int64) bool {
	if s == nil || s.Current == nil || s.Current.Queue != q {
		return false
	}
	for _, a := range s.CurrentAncestors {
		if a == did {
			return true
		}
	}
	return false
}

// elapsed returns how long the current card has been shown, capped at max.
func (s *SessionState) elapsed(now time.Time, max time.Duration) time.Duration {
	if s == nil || s.ShownAt.IsZero() {
		return 0
	}
	d := now.Sub(s.ShownAt)
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}
