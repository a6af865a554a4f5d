// Package wordlist implements the wordlist pipeline: loading one or
// more (path, key) sources, applying per-key transforms and a filter
// expression to each candidate word, deduplicating, and merging
// sources under shared destination keys.
package wordlist

import (
	"sort"
)

// Wordlist is an ordered, deduplicated collection of words tagged with
// the key that marks their placeholder position in a template URL (or
// scopes filters/transforms to them in recursive mode).
type Wordlist struct {
	Key   string
	Words []string
}

// Len reports the word count.
func (w *Wordlist) Len() int { return len(w.Words) }

// IsEmpty reports whether the wordlist has no words.
func (w *Wordlist) IsEmpty() bool { return len(w.Words) == 0 }

// Dedup sorts and removes duplicate words in place.
func (w *Wordlist) Dedup() {
	sort.Strings(w.Words)
	out := w.Words[:0]
	var prev string
	first := true
	for _, word := range w.Words {
		if first || word != prev {
			out = append(out, word)
			prev = word
			first = false
		}
	}
	w.Words = out
}

// Extend appends other's words to w.
func (w *Wordlist) Extend(other *Wordlist) {
	w.Words = append(w.Words, other.Words...)
}
