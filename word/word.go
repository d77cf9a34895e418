// Package word implements the guessing mechanics shared by every
// room: distance scoring between a guess and the secret word, a
// cyclic word sequence that survives a room outliving its word list,
// and progressive hint reveal.
package word

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Distance is the case-insensitive Levenshtein edit distance between
// a and b.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// IsClose reports whether guess is within a single edit of word. An
// exact match counts as close too; callers that handle exact matches
// separately check for them first.
func IsClose(guess, word string) bool {
	return Distance(guess, word) <= 1
}

// IsCorrect reports an exact, case-insensitive match.
func IsCorrect(guess, word string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), word)
}

// Cycle is a restartable, lazily-advancing sequence over a fixed
// slice. It never runs out: once exhausted it wraps back to the
// first element, which is what lets a room keep using the same word
// list across an arbitrary number of rounds.
type Cycle[T any] struct {
	items []T
	pos   int
}

// NewCycle builds a Cycle over items. items is not copied; the
// caller must not mutate it afterward.
func NewCycle[T any](items []T) *Cycle[T] {
	return &Cycle[T]{items: items}
}

// Next returns the next element and advances the cursor, wrapping to
// the start once the end is reached.
func (c *Cycle[T]) Next() T {
	v := c.items[c.pos]
	c.pos = (c.pos + 1) % len(c.items)
	return v
}

// Reset restarts the cycle at its first element.
func (c *Cycle[T]) Reset() { c.pos = 0 }

// Len reports how many distinct items the cycle holds.
func (c *Cycle[T]) Len() int { return len(c.items) }

// RevealOne uniformly samples one not-yet-revealed, non-whitespace
// rune index of word and returns it along with the rune at that
// index. revealed is keyed by rune index (not byte offset) and is
// mutated: the returned index is recorded before returning. Callers
// must ensure at least one candidate remains; RevealOne panics
// otherwise, since that signals a caller bug (the hint budget should
// never exceed the number of revealable runes).
func RevealOne(word string, revealed map[int]rune, rng *rand.Rand) (int, rune) {
	runes := []rune(word)

	var candidates []int
	for i, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		if _, done := revealed[i]; done {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		panic("word: RevealOne called with no revealable characters left")
	}

	idx := candidates[rng.Intn(len(candidates))]
	revealed[idx] = runes[idx]
	return idx, runes[idx]
}

// Hint renders word with every index not present in revealed masked
// as '_', and whitespace left untouched so multi-word phrases keep
// their visible shape.
func Hint(word string, revealed map[int]rune) string {
	runes := []rune(word)
	out := make([]rune, len(runes))
	for i, r := range runes {
		if unicode.IsSpace(r) {
			out[i] = r
			continue
		}
		if _, ok := revealed[i]; ok {
			out[i] = r
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}

// MaxHints returns how many characters of word may be revealed before
// a turn ends, per a room's configured hint budget, never exceeding
// the number of non-whitespace characters in the word itself.
func MaxHints(word string, budget int) int {
	n := 0
	for _, r := range word {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	if budget < n {
		return budget
	}
	// Never reveal the whole word as a hint; leave at least one
	// character for the guesser.
	if n > 0 {
		return n - 1
	}
	return 0
}
