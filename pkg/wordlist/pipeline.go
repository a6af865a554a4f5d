package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/3leaps/webhunt/pkg/filterexpr"
	"github.com/3leaps/webhunt/pkg/transform"
	"github.com/3leaps/webhunt/pkg/wordlistfilter"
)

// Source is one (path, key) pair from the command-line wordlist
// surface `path[:key]`.
type Source struct {
	Path string
	Key  string
}

// TransformSpec is one parsed `-t "[scope]name[:arg]"` entry. An empty
// Scope applies to every wordlist key.
type TransformSpec struct {
	Scope []string
	Name  string
	Arg   string
}

// MergeDirective unions the words of several source keys into a
// destination key, removing the sources afterward.
type MergeDirective struct {
	Sources []string
	Dest    string
}

// Options configures one pipeline run.
type Options struct {
	Sources         []Source
	Transforms      []TransformSpec
	FilterExpr      string
	IncludeComments bool
	Merges          []MergeDirective
	Concurrency     int // 0 = len(Sources)
}

// ErrNoWords is returned when every source wordlist is empty after
// filtering; a run with nothing to send aborts at startup.
var ErrNoWords = fmt.Errorf("wordlist pipeline produced no words")

type keyedSet struct {
	mu     sync.Mutex
	byKey  map[string]map[string]struct{}
	order  []string
	seenAt map[string]bool
}

func newKeyedSet() *keyedSet {
	return &keyedSet{byKey: make(map[string]map[string]struct{}), seenAt: make(map[string]bool)}
}

func (s *keyedSet) insert(key, word string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seenAt[key] {
		s.seenAt[key] = true
		s.order = append(s.order, key)
	}
	set, ok := s.byKey[key]
	if !ok {
		set = make(map[string]struct{})
		s.byKey[key] = set
	}
	set[word] = struct{}{}
}

// Load runs the full wordlist pipeline and returns the resulting,
// non-empty collection of Wordlists, one per surviving key.
func Load(opts Options) ([]Wordlist, error) {
	filter, err := compileWordlistFilter(opts.FilterExpr)
	if err != nil {
		return nil, fmt.Errorf("wordlist filter: %w", err)
	}

	shared := newKeyedSet()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = len(opts.Sources)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	p := pool.New().WithMaxGoroutines(concurrency).WithErrors()
	for _, src := range opts.Sources {
		src := src
		p.Go(func() error {
			transformer, err := buildTransformer(opts.Transforms, src.Key)
			if err != nil {
				return fmt.Errorf("wordlist %s: %w", src.Path, err)
			}
			return loadSource(src, transformer, filter, opts.IncludeComments, shared)
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	applyMerges(shared, opts.Merges)

	out := make([]Wordlist, 0, len(shared.order))
	for _, key := range shared.order {
		set := shared.byKey[key]
		if len(set) == 0 {
			continue
		}
		words := make([]string, 0, len(set))
		for w := range set {
			words = append(words, w)
		}
		sort.Strings(words)
		out = append(out, Wordlist{Key: key, Words: words})
	}

	if len(out) == 0 {
		return nil, ErrNoWords
	}
	return out, nil
}

func loadSource(src Source, transformer []transform.Func, filter *wordlistFilter, includeComments bool, shared *keyedSet) error {
	f, err := os.Open(src.Path)
	if err != nil {
		return fmt.Errorf("open wordlist %q: %w", src.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var word string
		if includeComments {
			word = line
		} else {
			stripped, keep := stripComments(line)
			if !keep {
				continue
			}
			word = stripped
		}

		for _, fn := range transformer {
			word, err = fn(word)
			if err != nil {
				return fmt.Errorf("transform word %q: %w", word, err)
			}
		}

		if filter != nil {
			ok, err := filter.match(src.Key, word)
			if err != nil {
				return fmt.Errorf("filter word %q: %w", word, err)
			}
			if !ok {
				continue
			}
		}

		shared.insert(src.Key, word)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read wordlist %q: %w", src.Path, err)
	}
	return nil
}

// stripComments mirrors ffuf's wordlist comment handling: a line whose
// first non-whitespace rune is '#' is dropped outright; otherwise the
// line is truncated at the first literal " #" so a '#' embedded in a
// word survives.
func stripComments(line string) (string, bool) {
	if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
		return "", false
	}
	if idx := strings.Index(line, " #"); idx >= 0 {
		return line[:idx], true
	}
	return line, true
}

func buildTransformer(specs []TransformSpec, key string) ([]transform.Func, error) {
	fns := make([]transform.Func, 0, len(specs))
	for _, spec := range specs {
		if !inScope(spec.Scope, key) {
			continue
		}
		fn, err := transform.Registry.Construct(spec.Name, spec.Arg)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func inScope(scope []string, key string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, k := range scope {
		if k == key {
			return true
		}
	}
	return false
}

func applyMerges(shared *keyedSet, merges []MergeDirective) {
	for _, m := range merges {
		shared.mu.Lock()
		dest, ok := shared.byKey[m.Dest]
		if !ok {
			dest = make(map[string]struct{})
			shared.byKey[m.Dest] = dest
			if !shared.seenAt[m.Dest] {
				shared.seenAt[m.Dest] = true
				shared.order = append(shared.order, m.Dest)
			}
		}
		for _, src := range m.Sources {
			if set, ok := shared.byKey[src]; ok {
				for w := range set {
					dest[w] = struct{}{}
				}
				delete(shared.byKey, src)
			}
		}
		shared.mu.Unlock()
	}
}

// wordlistFilter is a compiled wordlist-filter expression: atoms are
// scoped the same way transforms are ([keys]name:value); an atom whose
// scope excludes the current key is neutral (true).
type wordlistFilter struct {
	expr *filterexpr.Expr[scopedPredicate]
}

type scopedPredicate struct {
	scope []string
	pred  wordlistfilter.Predicate
}

func compileWordlistFilter(expr string) (*wordlistFilter, error) {
	if expr == "" {
		return nil, nil
	}
	raw, err := filterexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	resolved, err := filterexpr.TryMap(raw, func(atomStr string) (scopedPredicate, error) {
		syn, err := filterexpr.ParseAtomSyntax(atomStr)
		if err != nil {
			return scopedPredicate{}, err
		}
		pred, err := wordlistfilter.Registry.Construct(syn.Name, syn.Value)
		if err != nil {
			return scopedPredicate{}, err
		}
		return scopedPredicate{scope: syn.Scope, pred: pred}, nil
	})
	if err != nil {
		return nil, err
	}
	return &wordlistFilter{expr: resolved}, nil
}

func (f *wordlistFilter) match(key, word string) (bool, error) {
	return filterexpr.Evaluate(f.expr, func(sp scopedPredicate) (bool, error) {
		if !inScope(sp.scope, key) {
			return true, nil // neutral: atom doesn't apply to this key
		}
		return sp.pred(word)
	})
}
