package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedEntries int
		expectedQ       string
		expectedA       string
		expectedC       string
		expectedDeck    string
		expectedReverse bool
	}{
		{
			name:            "Simple Q&A",
			input:           "Q: What is the capital of France?\nA: Paris",
			expectedEntries: 1,
			expectedQ:       "What is the capital of France?",
			expectedA:       "Paris",
		},
		{
			name:            "Simple Q, A, and C",
			input:           "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedEntries: 1,
			expectedQ:       "What is 1+1?",
			expectedA:       "2",
			expectedC:       "Basic arithmetic",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedEntries: 1,
			expectedQ:       "What are the primary colors?",
			expectedA:       "Red\nBlue\nYellow",
		},
		{
			name: "Two Entries",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedEntries: 2,
		},
		{
			name:            "No entries, just text",
			input:           "This is a file with no questions.",
			expectedEntries: 0,
		},
		{
			name:            "Prefixes with no space",
			input:           "Q:Question\nA:Answer",
			expectedEntries: 1,
			expectedQ:       "Question",
			expectedA:       "Answer",
		},
		{
			name: "Deck heading",
			input: `# Languages :: Go
Q: What is Go?
A: A language
`,
			expectedEntries: 1,
			expectedQ:       "What is Go?",
			expectedA:       "A language",
			expectedDeck:    "Languages::Go",
		},
		{
			name: "Reverse marker",
			input: `Q: chat
A: cat
R:
this line is ignored
`,
			expectedEntries: 1,
			expectedQ:       "chat",
			expectedA:       "cat",
			expectedReverse: true,
		},
		{
			name:            "Reverse marker set to no",
			input:           "Q: chat\nA: cat\nR: no",
			expectedEntries: 1,
			expectedQ:       "chat",
			expectedA:       "cat",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedEntries {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedEntries, len(entries))
			}

			if tc.expectedEntries == 1 {
				e := entries[0]
				if e.Front != tc.expectedQ {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedQ, e.Front)
				}
				if e.Back != tc.expectedA {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedA, e.Back)
				}
				if e.Context != tc.expectedC {
					t.Errorf("Expected Context to be '%s', but got '%s'", tc.expectedC, e.Context)
				}
				if e.Deck != tc.expectedDeck {
					t.Errorf("Expected Deck to be '%s', but got '%s'", tc.expectedDeck, e.Deck)
				}
				if e.Reverse != tc.expectedReverse {
					t.Errorf("Expected Reverse to be %v, but got %v", tc.expectedReverse, e.Reverse)
				}
			}
		})
	}
}

func TestParseDecksApplyToFollowingEntries(t *testing.T) {
	input := `Q: loose
A: no deck

# Geo
Q: Capital of Peru?
A: Lima
---
Q: Capital of Chile?
A: Santiago

# Geo::Rivers
Q: Longest river?
A: Nile
R:
`
	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		deck  string
		cards int
	}{
		{"", 1},
		{"Geo", 1},
		{"Geo", 1},
		{"Geo::Rivers", 2},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, but got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Deck != w.deck || entries[i].Cards() != w.cards {
			t.Errorf("entry %d: Expected deck '%s' with %d cards, but got '%s' with %d",
				i, w.deck, w.cards, entries[i].Deck, entries[i].Cards())
		}
	}
	if entries[1].Back != "Lima" {
		t.Errorf("Expected Back to be 'Lima', but got '%s'", entries[1].Back)
	}
	if entries[3].Line != 12 {
		t.Errorf("Expected the last question on line 12, but got %d", entries[3].Line)
	}
}

func TestParseRejectsReverseWithoutAnswer(t *testing.T) {
	_, err := Parse(strings.NewReader("Q: lonely\nR:"))
	if err == nil {
		t.Fatal("Expected an error for a reversed note without an answer")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Deck\nQ: q\nA: a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Deck != "Deck" {
		t.Errorf("Expected one entry in 'Deck', but got %+v", entries)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
