package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	reversePrefix  = "R:"
	deckPrefix     = "# "
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
	afterMarker // lines after R: belong to no field
)

// Entry is one note read from a markdown file.
type Entry struct {
	// Deck is the full "Parent::Child" name from the last deck heading,
	// empty before the first one.
	Deck    string
	Front   string
	Back    string
	Context string
	// Reverse asks for a second card that shows the back first.
	Reverse bool
	// Line is where the question starts, for error messages.
	Line int
}

// Cards returns how many sibling cards the entry produces.
func (e Entry) Cards() int {
	if e.Reverse {
		return 2
	}
	return 1
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse reads from an io.Reader and extracts all entries. A "# Deck::Path"
// heading ends the current entry and sets the deck of the ones that
// follow. Entries are separated by "---" or by the next "Q:".
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var (
		entries []Entry
		current Entry
		block   []string
		deck    string
		lineNo  int
	)
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(block, "\n"), "\n")
		switch st {
		case readingQuestion:
			current.Front = content
		case readingAnswer:
			current.Back = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}
	finishEntry := func() {
		flushBlock()
		if current.Front != "" {
			entries = append(entries, current)
		}
		current = Entry{Deck: deck}
		st = seeking
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case line == separator:
			finishEntry()
		case strings.HasPrefix(line, deckPrefix):
			finishEntry()
			deck = cleanDeck(line[len(deckPrefix):])
			current.Deck = deck
		case strings.HasPrefix(line, questionPrefix):
			if st != seeking {
				finishEntry()
			}
			st = readingQuestion
			current.Line = lineNo
			block = append(block, trimPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			st = readingAnswer
			block = append(block, trimPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			st = readingContext
			block = append(block, trimPrefix(line, contextPrefix))
		case strings.HasPrefix(line, reversePrefix):
			if st == seeking {
				continue
			}
			flushBlock()
			current.Reverse = isTrue(trimPrefix(line, reversePrefix))
			st = afterMarker
		case st != seeking && st != afterMarker:
			block = append(block, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Reverse && strings.TrimSpace(e.Back) == "" {
			return nil, fmt.Errorf("line %d: reversed note needs an answer", e.Line)
		}
	}
	return entries, nil
}

func trimPrefix(line, prefix string) string {
	content := line[len(prefix):]
	return strings.TrimPrefix(content, " ")
}

// isTrue treats an empty R: line as yes.
func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yes", "y", "true", "1":
		return true
	}
	return false
}

func cleanDeck(name string) string {
	parts := strings.Split(name, "::")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "::")
}
