package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/knol"
	"github.com/conorfennell/knolsched/internal/parser"
	"github.com/conorfennell/knolsched/internal/storage"
)

var addDeck string

var addCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Add the notes of markdown files",
	Long: `Add every Q:/A:/C: note of the given markdown files, or of the .md
files found under the given directories. A "# Deck::Name"
heading chooses the deck of the notes below it; an "R:" line adds a
reversed card. Notes already in the collection are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		paths, err := noteFiles(args)
		if err != nil {
			return err
		}
		var entries []parser.Entry
		for _, path := range paths {
			fileEntries, err := parser.ParseFile(path)
			if err != nil {
				return err
			}
			entries = append(entries, fileEntries...)
		}
		added, skipped, err := addEntries(ctx, db, entries, addDeck, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Added %s notes, skipped %d duplicates.\n", titleStyle.Render(fmt.Sprint(added)), skipped)
		return nil
	},
}

// noteFiles expands directories in paths to the markdown files below them.
func noteFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return files, nil
}

// addEntries stores new entries and reports how many were added and how
// many were already present. Entries without a deck heading go to
// defaultDeck.
func addEntries(ctx context.Context, db *storage.DB, entries []parser.Entry, defaultDeck string, now time.Time) (added, skipped int, err error) {
	decks := make(map[string]int64)
	for _, e := range entries {
		note := domain.Note{Front: e.Front, Back: e.Back, Context: e.Context}
		knol.Stamp(&note)
		existing, err := db.FindNoteByChecksum(ctx, note.Checksum)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return added, skipped, err
		}
		if err == nil && knol.SameQuestion(*existing, note) {
			skipped++
			continue
		}

		name := e.Deck
		if name == "" {
			name = defaultDeck
		}
		did, ok := decks[name]
		if !ok {
			d, err := db.CreateDeck(ctx, name)
			if err != nil {
				return added, skipped, fmt.Errorf("deck %q: %w", name, err)
			}
			did = d.ID
			decks[name] = did
		}
		if _, err := db.AddNote(ctx, &note, did, e.Cards(), now.Unix()); err != nil {
			return added, skipped, err
		}
		slog.Debug("note added", "deck", name, "line", e.Line, "cards", e.Cards())
		added++
	}
	return added, skipped, nil
}

func init() {
	addCmd.Flags().StringVar(&addDeck, "deck", "Default", "deck for notes without a deck heading")
	rootCmd.AddCommand(addCmd)
}
