// Package transform implements the per-word transforms applied during
// wordlist loading: case folding, prefix/suffix, literal removal,
// find/replace, and encoding. Each transform is a Func that mutates a
// word in place, plus a constructor registered under its canonical
// name and aliases in Registry.
package transform

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/3leaps/webhunt/pkg/registry"
)

// Func mutates a word in place and returns the new value.
type Func func(word string) (string, error)

// Registry resolves a transform's canonical name or alias to its
// constructor. Populated once at package init.
var Registry = registry.New[Func]()

func init() {
	Registry.Register("case", nil, false, constructCase)
	Registry.Register("prefix", []string{"p", "pre"}, false, constructPrefix)
	Registry.Register("suffix", []string{"s", "suf"}, false, constructSuffix)
	Registry.Register("remove", []string{"rm"}, false, constructRemove)
	Registry.Register("replace", []string{"rp", "sub"}, false, constructReplace)
	Registry.Register("encode", []string{"e", "enc"}, false, constructEncode)
}

func constructCase(arg string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "upper", "up", "u":
		return func(w string) (string, error) { return strings.ToUpper(w), nil }, nil
	case "lower", "low", "l":
		return func(w string) (string, error) { return strings.ToLower(w), nil }, nil
	case "capitalize", "cap":
		return func(w string) (string, error) { return capitalize(w), nil }, nil
	default:
		return nil, fmt.Errorf("invalid case: %q (want upper|lower|capitalize)", arg)
	}
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func constructPrefix(arg string) (Func, error) {
	if arg == "" {
		return nil, fmt.Errorf("prefix transform needs a literal argument")
	}
	return func(w string) (string, error) { return arg + w, nil }, nil
}

func constructSuffix(arg string) (Func, error) {
	if arg == "" {
		return nil, fmt.Errorf("suffix transform needs a literal argument")
	}
	return func(w string) (string, error) { return w + arg, nil }, nil
}

func constructRemove(arg string) (Func, error) {
	if arg == "" {
		return nil, fmt.Errorf("remove transform needs a literal argument")
	}
	return func(w string) (string, error) {
		return strings.ReplaceAll(w, arg, ""), nil
	}, nil
}

func constructReplace(arg string) (Func, error) {
	from, to, err := parseKeyval(arg, '=')
	if err != nil {
		return nil, fmt.Errorf("replace transform: %w", err)
	}
	return func(w string) (string, error) { return strings.ReplaceAll(w, from, to), nil }, nil
}

func constructEncode(arg string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "url", "u":
		return func(w string) (string, error) { return url.QueryEscape(w), nil }, nil
	case "base64", "b64":
		return func(w string) (string, error) { return base64.StdEncoding.EncodeToString([]byte(w)), nil }, nil
	case "hex", "h":
		return func(w string) (string, error) { return hex.EncodeToString([]byte(w)), nil }, nil
	default:
		return nil, fmt.Errorf("invalid encode format: %q (want url|base64|hex)", arg)
	}
}

// parseKeyval splits "a=b" on the first occurrence of sep.
func parseKeyval(s string, sep byte) (string, string, error) {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return "", "", fmt.Errorf("expected key%cvalue, got %q", sep, s)
	}
	return s[:idx], s[idx+1:], nil
}
