package filterexpr

import (
	"fmt"
	"strings"
)

// AtomSyntax is the parsed shape of one resolved atom string:
// `[scope]?name:value`. Scope is a comma-separated, non-empty list of
// keys; an absent scope means "applies to everything" and is
// represented as a nil slice.
type AtomSyntax struct {
	Scope []string
	Name  string
	Value string
}

// ParseAtomSyntax splits a raw (already-unescaped) atom string into
// its optional bracketed scope, its registry name, and its value. The
// name is required; the value may be empty for atoms that take no
// parameter.
func ParseAtomSyntax(raw string) (AtomSyntax, error) {
	var scope []string
	rest := raw

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return AtomSyntax{}, fmt.Errorf("unterminated scope in atom %q", raw)
		}
		inner := rest[1:end]
		rest = rest[end+1:]
		for _, k := range strings.Split(inner, ",") {
			k = strings.TrimSpace(k)
			if k == "" {
				return AtomSyntax{}, fmt.Errorf("empty scope key in atom %q", raw)
			}
			scope = append(scope, k)
		}
	}

	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		if rest == "" {
			return AtomSyntax{}, fmt.Errorf("empty atom name in %q", raw)
		}
		return AtomSyntax{Scope: scope, Name: rest}, nil
	}

	name := rest[:idx]
	if name == "" {
		return AtomSyntax{}, fmt.Errorf("empty atom name in %q", raw)
	}
	return AtomSyntax{Scope: scope, Name: name, Value: rest[idx+1:]}, nil
}

// InScope reports whether key matches an atom's scope: an empty/nil
// scope matches every key, otherwise key must appear in it.
func (s AtomSyntax) InScope(key string) bool {
	if len(s.Scope) == 0 {
		return true
	}
	for _, k := range s.Scope {
		if k == key {
			return true
		}
	}
	return false
}
