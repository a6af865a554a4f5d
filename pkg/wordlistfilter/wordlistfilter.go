// Package wordlistfilter implements the filter atoms evaluated against
// candidate words during wordlist loading: length, contains, starts,
// ends, and regex.
package wordlistfilter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/3leaps/webhunt/pkg/intrange"
	"github.com/3leaps/webhunt/pkg/registry"
)

// Predicate tests a candidate word, returning an error only for
// genuinely exceptional conditions (predicates built from the
// registry below never error after construction).
type Predicate func(word string) (bool, error)

// Registry resolves a wordlist-filter atom's canonical name or alias
// to its constructor.
var Registry = registry.New[Predicate]()

func init() {
	Registry.Register("length", []string{"l", "size"}, false, constructLength)
	Registry.Register("contains", []string{"c"}, false, constructContains)
	Registry.Register("starts", []string{"begin"}, false, constructStarts)
	Registry.Register("ends", []string{"end"}, false, constructEnds)
	Registry.Register("regex", []string{"r"}, false, constructRegex)
}

func constructLength(arg string) (Predicate, error) {
	ranges, err := intrange.ParseList[int](arg)
	if err != nil {
		return nil, fmt.Errorf("length filter: %w", err)
	}
	return func(word string) (bool, error) {
		return intrange.AnyContains(ranges, len(word)), nil
	}, nil
}

func constructContains(arg string) (Predicate, error) {
	if arg == "" {
		return nil, fmt.Errorf("contains filter needs a substring argument")
	}
	return func(word string) (bool, error) {
		return strings.Contains(word, arg), nil
	}, nil
}

func constructStarts(arg string) (Predicate, error) {
	if arg == "" {
		return nil, fmt.Errorf("starts filter needs a substring argument")
	}
	return func(word string) (bool, error) {
		return strings.HasPrefix(word, arg), nil
	}, nil
}

func constructEnds(arg string) (Predicate, error) {
	if arg == "" {
		return nil, fmt.Errorf("ends filter needs a substring argument")
	}
	return func(word string) (bool, error) {
		return strings.HasSuffix(word, arg), nil
	}, nil
}

func constructRegex(arg string) (Predicate, error) {
	re, err := regexp.Compile(arg)
	if err != nil {
		return nil, fmt.Errorf("regex filter: %w", err)
	}
	return func(word string) (bool, error) {
		return re.MatchString(word), nil
	}, nil
}
