package responsefilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/3leaps/webhunt/pkg/intrange"
	"github.com/3leaps/webhunt/pkg/registry"
)

// Predicate tests a built Response.
type Predicate func(r *Response) (bool, error)

// Registry resolves a response-filter atom's canonical name or alias
// to its constructor, and exposes whether that atom needs the
// response body buffered.
var Registry = registry.New[Predicate]()

func init() {
	Registry.Register("status", []string{"code", "s"}, false, constructStatus)
	Registry.Register("time", []string{"elapsed", "duration", "d"}, false, constructTime)
	Registry.Register("length", []string{"l", "size"}, true, constructLength)
	Registry.Register("header", []string{"h"}, false, constructHeader)
	Registry.Register("regex", []string{"r"}, true, constructRegex)
	Registry.Register("starts", []string{"begin"}, true, constructStarts)
	Registry.Register("ends", []string{"end"}, true, constructEnds)
	Registry.Register("contains", []string{"c"}, true, constructContains)
	Registry.Register("type", []string{"t"}, false, constructType)
	Registry.Register("script", []string{"sc"}, true, constructScript)
}

func constructStatus(arg string) (Predicate, error) {
	ranges, err := intrange.ParseList[int](arg)
	if err != nil {
		return nil, fmt.Errorf("status filter: %w", err)
	}
	return func(r *Response) (bool, error) {
		return intrange.AnyContains(ranges, r.Status), nil
	}, nil
}

// durationUnitMicros maps the time atom's suffix to a microsecond
// multiplier: us=1, ms=1_000, s=1_000_000, m=60_000_000.
var durationUnitMicros = map[string]int64{
	"us": 1,
	"ms": 1_000,
	"s":  1_000_000,
	"m":  60_000_000,
}

func parseDurationMicros(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	// Split into a numeric prefix and a unit suffix; default unit is us
	// when none is given.
	i := 0
	for i < len(raw) && (raw[i] == '-' || raw[i] == '+' || (raw[i] >= '0' && raw[i] <= '9')) {
		i++
	}
	numPart, unitPart := raw[:i], strings.TrimSpace(raw[i:])
	if numPart == "" {
		return 0, fmt.Errorf("missing numeric value in duration %q", raw)
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if unitPart == "" {
		unitPart = "us"
	}
	mult, ok := durationUnitMicros[unitPart]
	if !ok {
		return 0, fmt.Errorf("invalid duration unit %q in %q", unitPart, raw)
	}
	return n * mult, nil
}

func constructTime(arg string) (Predicate, error) {
	ranges, err := intrange.ParseListWithMapper(arg, parseDurationMicros)
	if err != nil {
		return nil, fmt.Errorf("time filter: %w", err)
	}
	return func(r *Response) (bool, error) {
		return intrange.AnyContains(ranges, r.Elapsed.Microseconds()), nil
	}, nil
}

func constructLength(arg string) (Predicate, error) {
	ranges, err := intrange.ParseList[int](arg)
	if err != nil {
		return nil, fmt.Errorf("length filter: %w", err)
	}
	return func(r *Response) (bool, error) {
		return intrange.AnyContains(ranges, len(r.Body)), nil
	}, nil
}

func constructHeader(arg string) (Predicate, error) {
	idx := strings.IndexByte(arg, '=')
	if idx < 0 {
		return nil, fmt.Errorf("header filter expects name=value, got %q", arg)
	}
	name, value := arg[:idx], arg[idx+1:]
	return func(r *Response) (bool, error) {
		return r.HeaderEquals(name, value), nil
	}, nil
}

func constructRegex(arg string) (Predicate, error) {
	re, err := regexp.Compile(arg)
	if err != nil {
		return nil, fmt.Errorf("regex filter: %w", err)
	}
	return func(r *Response) (bool, error) {
		return re.Match(r.Body), nil
	}, nil
}

func constructStarts(arg string) (Predicate, error) {
	return func(r *Response) (bool, error) {
		return strings.HasPrefix(string(r.Body), arg), nil
	}, nil
}

func constructEnds(arg string) (Predicate, error) {
	return func(r *Response) (bool, error) {
		return strings.HasSuffix(string(r.Body), arg), nil
	}, nil
}

func constructContains(arg string) (Predicate, error) {
	return func(r *Response) (bool, error) {
		return strings.Contains(string(r.Body), arg), nil
	}, nil
}

func constructType(arg string) (Predicate, error) {
	want, err := ParseClassification(strings.ToLower(strings.TrimSpace(arg)))
	if err != nil {
		return nil, err
	}
	return func(r *Response) (bool, error) {
		return r.Classification == want, nil
	}, nil
}

// ScriptEvaluator is implemented by an embedded-scripting evaluator;
// this package only defines the contract an atom needs: given a
// script path and the current response, return a boolean verdict.
// webhunt does not ship an evaluator; callers that need `script:` wire
// one in via SetScriptEvaluator.
type ScriptEvaluator func(scriptPath string, r *Response) (bool, error)

var scriptEvaluator ScriptEvaluator

// SetScriptEvaluator installs the scripting backend used by the
// `script` atom. Must be called before any filter expression using
// `script:` is constructed.
func SetScriptEvaluator(eval ScriptEvaluator) { scriptEvaluator = eval }

func constructScript(arg string) (Predicate, error) {
	if arg == "" {
		return nil, fmt.Errorf("script filter needs a script path argument")
	}
	path := arg
	return func(r *Response) (bool, error) {
		if scriptEvaluator == nil {
			// No evaluator wired in: script failures are treated as
			// false rather than propagated as fatal.
			return false, nil
		}
		ok, err := scriptEvaluator(path, r)
		if err != nil {
			return false, nil
		}
		return ok, nil
	}, nil
}
