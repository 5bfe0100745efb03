package sched

import (
	"sort"
	"strings"

	"github.com/conorfennell/knolsched/internal/domain"
)

// deckIndex is the in-memory view of the deck tree and configurations,
// loaded on reset.
type deckIndex struct {
	byID   map[int64]*domain.Deck
	byName map[string]*domain.Deck
	sorted []*domain.Deck
	confs  map[int64]*domain.DeckConfig
	dirty  map[int64]bool
}

func newDeckIndex(decks []domain.Deck, confs []domain.DeckConfig) *deckIndex {
	x := &deckIndex{
		byID:   make(map[int64]*domain.Deck, len(decks)),
		byName: make(map[string]*domain.Deck, len(decks)),
		confs:  make(map[int64]*domain.DeckConfig, len(confs)),
		dirty:  make(map[int64]bool),
	}
	for i := range decks {
		d := &decks[i]
		x.byID[d.ID] = d
		x.byName[d.Name] = d
		x.sorted = append(x.sorted, d)
	}
	sort.Slice(x.sorted, func(i, j int) bool {
		return deckPathLess(x.sorted[i].Name, x.sorted[j].Name)
	})
	for i := range confs {
		c := confs[i]
		c.Normalize()
		x.confs[c.ID] = &c
	}
	return x
}

// deckPathLess orders deck names by path segment so that "A::B" sorts
// right after "A" and before "A B".
func deckPathLess(a, b string) bool {
	pa := strings.Split(strings.ToLower(a), domain.DeckSeparator)
	pb := strings.Split(strings.ToLower(b), domain.DeckSeparator)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return len(pa) < len(pb)
}

func (x *deckIndex) deck(did int64) *domain.Deck {
	return x.byID[did]
}

// parents returns the ancestors of did, root first.
func (x *deckIndex) parents(did int64) []*domain.Deck {
	d := x.byID[did]
	if d == nil {
		return nil
	}
	var out []*domain.Deck
	for name := d.ParentName(); name != ""; name = domain.ParentDeckName(name) {
		if p := x.byName[name]; p != nil {
			out = append(out, p)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ancestorIDs returns did and the ids of all its parents.
func (x *deckIndex) ancestorIDs(did int64) []int64 {
	ids := []int64{did}
	for _, p := range x.parents(did) {
		ids = append(ids, p.ID)
	}
	return ids
}

// children returns all descendants of did in tree order.
func (x *deckIndex) children(did int64) []*domain.Deck {
	d := x.byID[did]
	if d == nil {
		return nil
	}
	prefix := d.Name + domain.DeckSeparator
	var out []*domain.Deck
	for _, c := range x.sorted {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// subtreeIDs returns did followed by the ids of its descendants.
func (x *deckIndex) subtreeIDs(did int64) []int64 {
	ids := []int64{did}
	for _, c := range x.children(did) {
		ids = append(ids, c.ID)
	}
	return ids
}

// active returns the decks studied when did is selected.
func (x *deckIndex) active(did int64) []int64 {
	if x.byID[did] == nil {
		did = domain.DefaultDeckID
	}
	return x.subtreeIDs(did)
}

// conf returns the configuration group of a normal deck.
func (x *deckIndex) conf(did int64) *domain.DeckConfig {
	if d := x.byID[did]; d != nil {
		if c := x.confs[d.ConfID]; c != nil {
			return c
		}
	}
	if c := x.confs[domain.DefaultConfID]; c != nil {
		return c
	}
	return domain.DefaultDeckConfig()
}

func (x *deckIndex) markDirty(did int64) {
	x.dirty[did] = true
}
