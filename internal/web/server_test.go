package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
	"github.com/conorfennell/knolsched/internal/storage"
)

func newTestServer(t *testing.T, notes int) (*Server, []domain.Card) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.InitCollection(ctx, domain.DefaultOptions(now.Unix(), 0)); err != nil {
		t.Fatal(err)
	}
	var cards []domain.Card
	for i := 0; i < notes; i++ {
		front := string(rune('a' + i))
		out, err := db.AddNote(ctx, &domain.Note{Checksum: front, Front: front, Back: "back"}, domain.DefaultDeckID, 1, now.Unix())
		if err != nil {
			t.Fatal(err)
		}
		cards = append(cards, out...)
	}
	s, err := sched.New(ctx, db, sched.Config{
		Now:    func() time.Time { return now },
		Rand:   rand.New(rand.NewSource(1)),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(s, db, slog.New(slog.DiscardHandler)), cards
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStudyFlow(t *testing.T) {
	srv, cards := newTestServer(t, 1)

	rec := do(t, srv, http.MethodGet, "/api/counts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rec.Code)
	}
	var counts sched.Counts
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts != (sched.Counts{New: 1}) {
		t.Errorf("Expected counts 1/0/0, but got %v", counts)
	}

	rec = do(t, srv, http.MethodGet, "/api/next", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body)
	}
	var view struct {
		Card      domain.Card      `json:"card"`
		Note      domain.Note      `json:"note"`
		Counts    sched.Counts     `json:"counts"`
		Buttons   int              `json:"buttons"`
		Intervals map[string]int64 `json:"intervals"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Card.ID != cards[0].ID || view.Note.Front != "a" {
		t.Errorf("Expected card %d with front 'a', but got %d with '%s'", cards[0].ID, view.Card.ID, view.Note.Front)
	}
	if view.Buttons != 4 || view.Intervals["again"] != 60 || view.Intervals["good"] != 600 {
		t.Errorf("Expected 4 buttons with intervals, but got %d %v", view.Buttons, view.Intervals)
	}
	if view.Counts != (sched.Counts{New: 1}) {
		t.Errorf("Expected counts including the shown card, but got %v", view.Counts)
	}

	rec = do(t, srv, http.MethodPost, "/api/answer", `{"card_id":`+itoa(cards[0].ID)+`,"rating":"easy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body)
	}
	var answered struct {
		Card domain.Card `json:"card"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&answered); err != nil {
		t.Fatal(err)
	}
	if answered.Card.Queue != domain.QueueReview {
		t.Errorf("Expected the card in the review queue, but got %v", answered.Card.Queue)
	}

	rec = do(t, srv, http.MethodGet, "/api/next", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 once done, but got %d", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv, cards := newTestServer(t, 1)
	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad rating", http.MethodPost, "/api/answer", `{"card_id":1,"rating":"meh"}`, http.StatusBadRequest},
		{"missing rating", http.MethodPost, "/api/answer", `{"card_id":` + itoa(cards[0].ID) + `}`, http.StatusBadRequest},
		{"unknown card", http.MethodPost, "/api/answer", `{"card_id":999,"rating":"good"}`, http.StatusNotFound},
		{"not filtered", http.MethodPost, "/api/filtered/1/rebuild", "", http.StatusConflict},
		{"bad deck id", http.MethodPost, "/api/decks/abc/unbury", "", http.StatusBadRequest},
		{"unknown deck", http.MethodPost, "/api/decks/42/unbury", "", http.StatusNotFound},
		{"bad scope", http.MethodPost, "/api/decks/1/unbury?scope=some", "", http.StatusBadRequest},
		{"no ids", http.MethodPost, "/api/cards/suspend", `{"ids":[]}`, http.StatusBadRequest},
		{"bad due spec", http.MethodPost, "/api/cards/due", `{"ids":[1],"days":"5-2"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/answer", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Errorf("Expected status %d, but got %d: %s", tc.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestCardManagement(t *testing.T) {
	srv, cards := newTestServer(t, 2)
	ids := `{"ids":[` + itoa(cards[0].ID) + `]}`

	if rec := do(t, srv, http.MethodPost, "/api/cards/suspend", ids); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d: %s", rec.Code, rec.Body)
	}
	assertCounts(t, srv, sched.Counts{New: 1})

	if rec := do(t, srv, http.MethodPost, "/api/cards/unsuspend", ids); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d", rec.Code)
	}
	assertCounts(t, srv, sched.Counts{New: 2})

	bury := `{"ids":[` + itoa(cards[1].ID) + `],"manual":true}`
	if rec := do(t, srv, http.MethodPost, "/api/cards/bury", bury); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d", rec.Code)
	}
	assertCounts(t, srv, sched.Counts{New: 1})

	if rec := do(t, srv, http.MethodPost, "/api/decks/1/unbury?scope=manual", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d: %s", rec.Code, rec.Body)
	}
	assertCounts(t, srv, sched.Counts{New: 2})

	due := `{"ids":[` + itoa(cards[0].ID) + `],"days":"0"}`
	if rec := do(t, srv, http.MethodPost, "/api/cards/due", due); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, but got %d", rec.Code)
	}
	assertCounts(t, srv, sched.Counts{New: 1, Review: 1})
}

func TestTreeAndETA(t *testing.T) {
	srv, _ := newTestServer(t, 3)

	rec := do(t, srv, http.MethodGet, "/api/tree", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rec.Code)
	}
	var tree []sched.DueNode
	if err := json.NewDecoder(rec.Body).Decode(&tree); err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || tree[0].Name != "Default" || tree[0].New != 3 {
		t.Errorf("Expected the Default deck with 3 new cards, but got %+v", tree)
	}

	rec = do(t, srv, http.MethodGet, "/api/eta", "")
	var eta map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&eta); err != nil {
		t.Fatal(err)
	}
	if eta["minutes"] != 1 {
		t.Errorf("Expected an estimate of 1 minute, but got %d", eta["minutes"])
	}
}

func TestCheckDay(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	if err := srv.CheckDay(context.Background()); err != nil {
		t.Errorf("CheckDay() returned an unexpected error: %v", err)
	}
}

func assertCounts(t *testing.T, srv *Server, want sched.Counts) {
	t.Helper()
	rec := do(t, srv, http.MethodGet, "/api/counts", "")
	var got sched.Counts
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Expected counts %v, but got %v", want, got)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
