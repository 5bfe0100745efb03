package sched

import (
	"math/rand"
	"sort"

	"github.com/conorfennell/knolsched/internal/domain"
)

// CardQueue is an ordered buffer of card references without duplicates.
type CardQueue struct {
	refs []domain.CardRef
	ids  map[int64]struct{}
}

// NewCardQueue returns an empty queue.
func NewCardQueue() *CardQueue {
	return &CardQueue{ids: make(map[int64]struct{})}
}

// Len returns the number of queued cards.
func (q *CardQueue) Len() int { return len(q.refs) }

// IsEmpty reports whether the queue holds no cards.
func (q *CardQueue) IsEmpty() bool { return len(q.refs) == 0 }

// Add appends ref unless a card with the same id is already queued.
func (q *CardQueue) Add(ref domain.CardRef) bool {
	if _, ok := q.ids[ref.ID]; ok {
		return false
	}
	q.ids[ref.ID] = struct{}{}
	q.refs = append(q.refs, ref)
	return true
}

// Peek returns the head of the queue.
func (q *CardQueue) Peek() (domain.CardRef, bool) {
	if len(q.refs) == 0 {
		return domain.CardRef{}, false
	}
	return q.refs[0], true
}

// Pop removes and returns the head of the queue.
func (q *CardQueue) Pop() (domain.CardRef, bool) {
	ref, ok := q.Peek()
	if !ok {
		return ref, false
	}
	q.refs = q.refs[1:]
	delete(q.ids, ref.ID)
	return ref, true
}

// Remove drops the card with the given id and reports whether it was queued.
func (q *CardQueue) Remove(id int64) bool {
	if _, ok := q.ids[id]; !ok {
		return false
	}
	delete(q.ids, id)
	for i, ref := range q.refs {
		if ref.ID == id {
			q.refs = append(q.refs[:i], q.refs[i+1:]...)
			break
		}
	}
	return true
}

// RemoveNote drops every card of note nid and returns how many were queued.
func (q *CardQueue) RemoveNote(nid int64) int {
	kept := q.refs[:0]
	n := 0
	for _, ref := range q.refs {
		if ref.NoteID == nid {
			delete(q.ids, ref.ID)
			n++
			continue
		}
		kept = append(kept, ref)
	}
	q.refs = kept
	return n
}

// Contains reports whether the card with the given id is queued.
func (q *CardQueue) Contains(id int64) bool {
	_, ok := q.ids[id]
	return ok
}

// Clear empties the queue.
func (q *CardQueue) Clear() {
	q.refs = nil
	q.ids = make(map[int64]struct{})
}

// Shuffle permutes the queue with r.
func (q *CardQueue) Shuffle(r *rand.Rand) {
	r.Shuffle(len(q.refs), func(i, j int) {
		q.refs[i], q.refs[j] = q.refs[j], q.refs[i]
	})
}

// IDs returns the queued ids in order.
func (q *CardQueue) IDs() []int64 {
	ids := make([]int64, len(q.refs))
	for i, ref := range q.refs {
		ids[i] = ref.ID
	}
	return ids
}

// LrnQueue holds intraday learning cards sorted by due time. Insert keeps
// the order, so answered cards go back to the right position without a
// refill.
type LrnQueue struct {
	refs []domain.CardRef
	// filled is set once the queue has been loaded from storage; inserts
	// into an unloaded queue are dropped.
	filled bool
}

// Len returns the number of queued cards.
func (q *LrnQueue) Len() int { return len(q.refs) }

// IsEmpty reports whether the queue holds no cards.
func (q *LrnQueue) IsEmpty() bool { return len(q.refs) == 0 }

// IsFilled reports whether the queue was loaded since the last Clear.
func (q *LrnQueue) IsFilled() bool { return q.filled }

// Load replaces the contents with refs sorted by due.
func (q *LrnQueue) Load(refs []domain.CardRef) {
	q.refs = append(q.refs[:0], refs...)
	sort.SliceStable(q.refs, func(i, j int) bool { return q.refs[i].Due < q.refs[j].Due })
	q.filled = true
}

// Insert adds ref after every card due at or before it.
func (q *LrnQueue) Insert(ref domain.CardRef) {
	q.Remove(ref.ID)
	i := sort.Search(len(q.refs), func(i int) bool { return q.refs[i].Due > ref.Due })
	q.refs = append(q.refs, domain.CardRef{})
	copy(q.refs[i+1:], q.refs[i:])
	q.refs[i] = ref
}

// Peek returns the card due first.
func (q *LrnQueue) Peek() (domain.CardRef, bool) {
	if len(q.refs) == 0 {
		return domain.CardRef{}, false
	}
	return q.refs[0], true
}

// Pop removes and returns the card due first.
func (q *LrnQueue) Pop() (domain.CardRef, bool) {
	ref, ok := q.Peek()
	if ok {
		q.refs = q.refs[1:]
	}
	return ref, ok
}

// FirstDue returns the due time of the head, or 0 when empty.
func (q *LrnQueue) FirstDue() int64 {
	if len(q.refs) == 0 {
		return 0
	}
	return q.refs[0].Due
}

// Remove drops the card with the given id.
func (q *LrnQueue) Remove(id int64) bool {
	for i, ref := range q.refs {
		if ref.ID == id {
			q.refs = append(q.refs[:i], q.refs[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the queue and marks it unloaded.
func (q *LrnQueue) Clear() {
	q.refs = nil
	q.filled = false
}
