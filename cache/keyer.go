package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize lowercases q, trims it and collapses whitespace runs to a
// single space.
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Tokenize splits the normalized question into its distinct word tokens.
// A word is a run of letters, digits and underscores.
func Tokenize(q string) []string {
	words := strings.FieldsFunc(Normalize(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Fields returns the set of whitespace-separated terms of the normalized
// question. Punctuation stays attached to its term.
func Fields(q string) map[string]struct{} {
	terms := strings.Fields(strings.ToLower(q))
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// Keyer maps a question to the hash it is stored under.
//
// Contract:
// - Determinism: questions equal after Normalize must produce equal keys.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a question that normalizes to "" must fail with ErrInvalidInput.
type Keyer interface {
	Key(question string) (string, error)
}

// DefaultKeyer hashes the normalized question with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns the lowercase hex SHA-256 of Normalize(question).
func (k *DefaultKeyer) Key(question string) (string, error) {
	n := Normalize(question)
	if n == "" {
		return "", ErrInvalidInput
	}
	sum := sha256.Sum256([]byte(n))
	return hex.EncodeToString(sum[:]), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
