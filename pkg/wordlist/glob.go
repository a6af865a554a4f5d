package wordlist

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandGlobSources expands any Source whose Path contains glob
// metacharacters (as recognized by doublestar, e.g. "lists/**/*.txt")
// into one concrete Source per matching file, all sharing the original
// Key. Sources with a plain path pass through unchanged.
func ExpandGlobSources(sources []Source) ([]Source, error) {
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		if !doublestar.ValidatePattern(src.Path) || !hasMeta(src.Path) {
			out = append(out, src)
			continue
		}
		matches, err := doublestar.FilepathGlob(src.Path)
		if err != nil {
			return nil, fmt.Errorf("expand wordlist glob %q: %w", src.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("wordlist glob %q matched no files", src.Path)
		}
		for _, m := range matches {
			out = append(out, Source{Path: m, Key: src.Key})
		}
	}
	return out, nil
}

func hasMeta(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
