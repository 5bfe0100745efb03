package sched_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

func TestCardQueue(t *testing.T) {
	q := sched.NewCardQueue()
	for _, ref := range []domain.CardRef{{ID: 1, NoteID: 10}, {ID: 2, NoteID: 20}, {ID: 3, NoteID: 10}} {
		if !q.Add(ref) {
			t.Fatalf("Expected Add(%d) to be true, but got false", ref.ID)
		}
	}
	if q.Add(domain.CardRef{ID: 2}) {
		t.Error("Expected Add() to reject a duplicate id, but it was accepted")
	}
	if q.Len() != 3 {
		t.Fatalf("Expected Len() to be 3, but got %d", q.Len())
	}
	if n := q.RemoveNote(10); n != 2 {
		t.Errorf("Expected RemoveNote() to be 2, but got %d", n)
	}
	if q.Contains(1) || !q.Contains(2) {
		t.Errorf("Expected one id left after RemoveNote, but got %v", q.IDs())
	}
	ref, ok := q.Pop()
	if !ok || ref.ID != 2 {
		t.Errorf("Expected Pop() to be card 2, but got %v, %v", ref, ok)
	}
	if _, ok := q.Pop(); ok || !q.IsEmpty() {
		t.Error("Expected Pop() on an empty queue to fail, but it succeeded")
	}
	q.Add(domain.CardRef{ID: 4})
	if !q.Remove(4) || q.Remove(4) {
		t.Error("Expected Remove() to report membership once, but it did not")
	}
}

func TestCardQueueShuffleKeepsMembers(t *testing.T) {
	q := sched.NewCardQueue()
	for id := int64(1); id <= 20; id++ {
		q.Add(domain.CardRef{ID: id})
	}
	q.Shuffle(rand.New(rand.NewSource(7)))
	seen := make(map[int64]bool)
	for _, id := range q.IDs() {
		seen[id] = true
	}
	if len(seen) != 20 {
		t.Errorf("Expected 20 distinct ids after shuffling, but got %d", len(seen))
	}
}

func TestLrnQueueOrder(t *testing.T) {
	var q sched.LrnQueue
	if q.IsFilled() {
		t.Fatal("Expected a zero LrnQueue to be unfilled, but it reports filled")
	}
	q.Load([]domain.CardRef{{ID: 1, Due: 300}, {ID: 2, Due: 100}, {ID: 3, Due: 200}})
	q.Insert(domain.CardRef{ID: 4, Due: 200})
	q.Insert(domain.CardRef{ID: 1, Due: 50})

	var got []int64
	for !q.IsEmpty() {
		ref, _ := q.Pop()
		got = append(got, ref.ID)
	}
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected to pop %v, but got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected to pop %v, but got %v", want, got)
		}
	}
	if q.FirstDue() != 0 {
		t.Errorf("Expected FirstDue() on an empty queue to be 0, but got %d", q.FirstDue())
	}
	q.Clear()
	if q.IsFilled() {
		t.Error("Expected IsFilled() to be false after Clear(), but got true")
	}
}

func TestCounts(t *testing.T) {
	c := sched.Counts{New: 3, Learn: 2, Review: 1}
	c.Change(sched.KindLearn, -2)
	c.Change(sched.KindReview, 4)
	if c.Get(sched.KindNew) != 3 || c.Get(sched.KindLearn) != 0 || c.Get(sched.KindReview) != 5 {
		t.Errorf("Expected counts to be 3/0/5, but got %v", c)
	}
	if c.Total() != 8 || c.String() != "3/0/5" {
		t.Errorf("Expected Total() 8 and String() \"3/0/5\", but got %d and %q", c.Total(), c.String())
	}
}

func TestFuzzRange(t *testing.T) {
	testCases := []struct {
		ivl, lo, hi int
	}{
		{1, 1, 1},
		{2, 2, 3},
		{5, 4, 6},
		{10, 8, 12},
		{30, 26, 34},
		{100, 95, 105},
	}
	for _, tc := range testCases {
		lo, hi := sched.FuzzRange(tc.ivl)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("Expected FuzzRange(%d) to be (%d, %d), but got (%d, %d)", tc.ivl, tc.lo, tc.hi, lo, hi)
		}
	}
}

func TestIsLeech(t *testing.T) {
	testCases := []struct {
		lapses, threshold int
		want              bool
	}{
		{8, 8, true},
		{9, 8, false},
		{12, 8, true},
		{16, 8, true},
		{7, 8, false},
		{3, 0, false},
	}
	for _, tc := range testCases {
		if got := sched.IsLeech(tc.lapses, tc.threshold); got != tc.want {
			t.Errorf("Expected IsLeech(%d, %d) to be %v, but got %v", tc.lapses, tc.threshold, tc.want, got)
		}
	}
}

func TestClock(t *testing.T) {
	testCases := []struct {
		name       string
		crt        time.Time
		rollover   int
		offset     int
		now        time.Time
		wantToday  int
		wantCutoff time.Time
	}{
		{
			name:       "created after rollover",
			crt:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			rollover:   4,
			now:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			wantToday:  0,
			wantCutoff: time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "created before rollover",
			crt:        time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
			rollover:   4,
			now:        time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
			wantToday:  1,
			wantCutoff: time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name:       "offset west",
			crt:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			rollover:   4,
			offset:     300,
			now:        time.Date(2024, 1, 3, 8, 59, 0, 0, time.UTC),
			wantToday:  1,
			wantCutoff: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := sched.NewClock(func() time.Time { return tc.now }, tc.crt.Unix(), tc.rollover, tc.offset)
			if got := c.Today(); got != tc.wantToday {
				t.Errorf("Expected Today() to be %d, but got %d", tc.wantToday, got)
			}
			if got := c.DayCutoff(); got != tc.wantCutoff.Unix() {
				t.Errorf("Expected DayCutoff() to be %v, but got %v", tc.wantCutoff, time.Unix(got, 0).UTC())
			}
		})
	}
}

func TestParseDueSpec(t *testing.T) {
	testCases := []struct {
		spec    string
		lo, hi  int
		setIvl  bool
		wantErr bool
	}{
		{spec: "0", lo: 0, hi: 0},
		{spec: "3-7", lo: 3, hi: 7},
		{spec: "1-5!", lo: 1, hi: 5, setIvl: true},
		{spec: " 4! ", lo: 4, hi: 4, setIvl: true},
		{spec: "", wantErr: true},
		{spec: "a", wantErr: true},
		{spec: "5-2", wantErr: true},
		{spec: "-1", wantErr: true},
		{spec: "1-x", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.spec, func(t *testing.T) {
			lo, hi, setIvl, err := sched.ParseDueSpec(tc.spec)
			if tc.wantErr {
				if !errors.Is(err, sched.ErrInvalidDueSpec) {
					t.Fatalf("Expected ParseDueSpec() error to be ErrInvalidDueSpec, but got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDueSpec() returned an unexpected error: %v", err)
			}
			if lo != tc.lo || hi != tc.hi || setIvl != tc.setIvl {
				t.Errorf("Expected ParseDueSpec() to be %d, %d, %v, but got %d, %d, %v", tc.lo, tc.hi, tc.setIvl, lo, hi, setIvl)
			}
		})
	}
}

func TestRulesFor(t *testing.T) {
	if sched.RulesFor(1) != sched.RulesV1 {
		t.Error("Expected RulesFor(1) to be RulesV1, but it was not")
	}
	if sched.RulesFor(2) != sched.RulesV2 || sched.RulesFor(0) != sched.RulesV2 {
		t.Error("Expected RulesFor() to default to RulesV2, but it did not")
	}
}
