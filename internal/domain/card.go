package domain

import "fmt"

// CardType is the learning stage a card has reached.
type CardType int

const (
	TypeNew CardType = iota
	TypeLearning
	TypeReview
	TypeRelearning
)

func (t CardType) String() string {
	switch t {
	case TypeNew:
		return "new"
	case TypeLearning:
		return "learning"
	case TypeReview:
		return "review"
	case TypeRelearning:
		return "relearning"
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

// Queue is the queue a card is currently scheduled in. Negative queues are
// hidden from study.
type Queue int

const (
	QueueManuallyBuried Queue = -3
	QueueSiblingBuried  Queue = -2
	QueueSuspended      Queue = -1
	QueueNew            Queue = 0
	QueueLearning       Queue = 1 // due is epoch seconds
	QueueReview         Queue = 2 // due is a day number
	QueueDayLearning    Queue = 3 // due is a day number
	QueuePreview        Queue = 4 // due is epoch seconds
)

func (q Queue) String() string {
	switch q {
	case QueueManuallyBuried:
		return "manually-buried"
	case QueueSiblingBuried:
		return "sibling-buried"
	case QueueSuspended:
		return "suspended"
	case QueueNew:
		return "new"
	case QueueLearning:
		return "learning"
	case QueueReview:
		return "review"
	case QueueDayLearning:
		return "day-learning"
	case QueuePreview:
		return "preview"
	}
	return fmt.Sprintf("Queue(%d)", int(q))
}

// IsBuried reports whether q is one of the two bury queues.
func (q Queue) IsBuried() bool {
	return q == QueueManuallyBuried || q == QueueSiblingBuried
}

// Card holds the scheduling state of a single card.
type Card struct {
	ID     int64 `db:"id" json:"id"`
	NoteID int64 `db:"nid" json:"note_id"`
	DeckID int64 `db:"did" json:"deck_id"`
	Ord    int   `db:"ord" json:"ord"`
	Mod    int64 `db:"mtime" json:"mod"`
	Usn    int   `db:"usn" json:"usn"`

	Type  CardType `db:"type" json:"type"`
	Queue Queue    `db:"queue" json:"queue"`
	// Due is a position for new cards, epoch seconds for (re)learning cards
	// in the learning queue and a day number otherwise.
	Due      int64 `db:"due" json:"due"`
	Interval int   `db:"ivl" json:"interval"`
	Factor   int   `db:"factor" json:"factor"`
	Reps     int   `db:"reps" json:"reps"`
	Lapses   int   `db:"lapses" json:"lapses"`
	// Left packs the remaining learning steps as steps + today*1000.
	Left int `db:"left_steps" json:"left"`

	OriginalDue    int64 `db:"odue" json:"original_due"`
	OriginalDeckID int64 `db:"odid" json:"original_deck_id"`
}

// InFilteredDeck reports whether the card is currently rehomed into a
// filtered deck.
func (c *Card) InFilteredDeck() bool {
	return c.OriginalDeckID != 0
}

// HomeDeckID returns the deck the card belongs to outside of filtered decks.
func (c *Card) HomeDeckID() int64 {
	if c.OriginalDeckID != 0 {
		return c.OriginalDeckID
	}
	return c.DeckID
}

// StepsLeft returns the number of learning steps remaining.
func (c *Card) StepsLeft() int {
	return c.Left % 1000
}

// RestoredQueue returns the queue the card belongs in when it is unburied,
// unsuspended or taken out of a filtered deck.
func (c *Card) RestoredQueue() Queue {
	switch c.Type {
	case TypeLearning, TypeRelearning:
		due := c.Due
		if c.OriginalDue != 0 {
			due = c.OriginalDue
		}
		if due > 1_000_000_000 {
			return QueueLearning
		}
		return QueueDayLearning
	case TypeReview:
		return QueueReview
	default:
		return QueueNew
	}
}

// Note is the fact a group of sibling cards is generated from.
type Note struct {
	ID       int64  `db:"id" json:"id"`
	Checksum string `db:"checksum" json:"checksum"`
	Front    string `db:"front" json:"front"`
	Back     string `db:"back" json:"back"`
	Context  string `db:"context" json:"context"`
	Tags     string `db:"tags" json:"tags"`
	Mod      int64  `db:"mtime" json:"mod"`
}
