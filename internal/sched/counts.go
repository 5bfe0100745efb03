package sched

import "fmt"

// QueueKind indexes Counts.
type QueueKind int

const (
	KindNew QueueKind = iota
	KindLearn
	KindReview
)

// Counts are the cards remaining today per queue kind.
type Counts struct {
	New    int `json:"new"`
	Learn  int `json:"learn"`
	Review int `json:"review"`
}

// Get returns the count for k.
func (c Counts) Get(k QueueKind) int {
	switch k {
	case KindNew:
		return c.New
	case KindLearn:
		return c.Learn
	default:
		return c.Review
	}
}

// Change adds delta to the count for k.
func (c *Counts) Change(k QueueKind, delta int) {
	switch k {
	case KindNew:
		c.New += delta
	case KindLearn:
		c.Learn += delta
	default:
		c.Review += delta
	}
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	return c.New + c.Learn + c.Review
}

func (c Counts) String() string {
	return fmt.Sprintf("%d/%d/%d", c.New, c.Learn, c.Review)
}
