// Package sched decides which card to show next and how an answer changes
// a card's schedule.
//
// A Scheduler owns in-memory queues and counts for one collection. It
// assumes a single caller: requests must be serialized, and any change to
// cards, decks or configuration made behind its back must be followed by
// Reset. The card currently on screen is tracked by the caller in a
// SessionState passed to NextCard and Answer.
//
// Cards move between queues as follows:
//
//	new -> learning -> review -> (lapse) relearning -> review
//
// Learning cards are due at a time of day; review and day-learning cards
// are due on a day number counted from the collection's creation, with the
// day boundary at the configured rollover hour.
package sched
