// Package knol fingerprints notes so that importing the same file twice
// does not add its notes twice.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/conorfennell/knolsched/internal/domain"
)

// fieldSep keeps "ab"+"c" and "a"+"bc" apart.
const fieldSep = "\x1f"

// Canonical folds a field to the form notes are compared in: NFKC,
// lower case, whitespace runs collapsed to a single space.
func Canonical(field string) string {
	s := strings.ToLower(norm.NFKC.String(field))
	return strings.Join(strings.Fields(s), " ")
}

// Checksum identifies a note by its question, that is its front and
// context. The back is left out so that fixing an answer in the source
// file does not add the note again.
func Checksum(note domain.Note) string {
	sum := sha256.Sum256([]byte(Canonical(note.Front) + fieldSep + Canonical(note.Context)))
	return hex.EncodeToString(sum[:])
}

// Stamp sets the note's checksum.
func Stamp(note *domain.Note) {
	note.Checksum = Checksum(*note)
}

// SameQuestion reports whether two notes ask the same thing. A checksum
// match is confirmed with it before a note is skipped.
func SameQuestion(a, b domain.Note) bool {
	return Canonical(a.Front) == Canonical(b.Front) && Canonical(a.Context) == Canonical(b.Context)
}
