package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/parser"
	"github.com/conorfennell/knolsched/internal/storage"
)

func TestAddEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	defer db.Close()
	if _, err := db.InitCollection(ctx, domain.DefaultOptions(now.Unix(), 0)); err != nil {
		t.Fatal(err)
	}

	entries, err := parser.Parse(strings.NewReader(`Q: loose
A: card

# Geo::Capitals
Q: Capital of Peru?
A: Lima
R: yes
`))
	if err != nil {
		t.Fatal(err)
	}

	added, skipped, err := addEntries(ctx, db, entries, "Inbox", now)
	if err != nil {
		t.Fatalf("addEntries() returned an unexpected error: %v", err)
	}
	if added != 2 || skipped != 0 {
		t.Errorf("Expected 2 added and 0 skipped, but got %d and %d", added, skipped)
	}

	added, skipped, err = addEntries(ctx, db, entries, "Inbox", now)
	if err != nil {
		t.Fatalf("addEntries() returned an unexpected error: %v", err)
	}
	if added != 0 || skipped != 2 {
		t.Errorf("Expected the second run to skip both notes, but got %d added and %d skipped", added, skipped)
	}

	for _, name := range []string{"Inbox", "Geo", "Geo::Capitals"} {
		if _, err := db.DeckByName(ctx, name); err != nil {
			t.Errorf("Expected deck '%s' to exist, but got %v", name, err)
		}
	}
	geo, err := db.DeckByName(ctx, "Geo::Capitals")
	if err != nil {
		t.Fatal(err)
	}
	n, err := db.CountCards(ctx, domain.CardQuery{DeckIDs: []int64{geo.ID}, Queues: []domain.Queue{domain.QueueNew}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected a card and its reverse in Geo::Capitals, but got %d cards", n)
	}
}

func TestNoteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "sub/b.MD", "sub/skip.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("Q: q\nA: a\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "sub", "skip.txt")

	files, err := noteFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("noteFiles() returned an unexpected error: %v", err)
	}
	want := []string{filepath.Join(dir, "a.md"), filepath.Join(dir, "sub", "b.MD"), single}
	if len(files) != len(want) {
		t.Fatalf("Expected %v, but got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Expected %s at %d, but got %s", want[i], i, files[i])
		}
	}

	if _, err := noteFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected an error for a missing path")
	}
}
