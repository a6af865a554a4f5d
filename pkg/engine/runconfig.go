package engine

import (
	"fmt"
	"strconv"

	"github.com/3leaps/webhunt/pkg/intrange"
)

// Mode selects the response-handler strategy for a run.
type Mode int

const (
	ModeRecursive Mode = iota
	ModeTemplate
)

func (m Mode) String() string {
	switch m {
	case ModeRecursive:
		return "recursive"
	case ModeTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// ParseMode resolves the -m/--mode flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "recursive":
		return ModeRecursive, nil
	case "template":
		return ModeTemplate, nil
	default:
		return 0, fmt.Errorf("engine: unknown mode %q", s)
	}
}

// allDepthsScope is the reserved scope token meaning "every depth",
// distinct from the empty-scope convention used by filter/transform
// atoms: header specs are written with an explicit "all" keyword so
// that "all plus one specific depth" is expressible in one -H flag.
const allDepthsScope = "all"

// HeaderSpec is one parsed `-H "[scope]name:value"` entry. Scope
// entries are either depth numbers (as strings) or the literal "all".
// An empty Scope is equivalent to ["all"].
type HeaderSpec struct {
	Scope []string
	Name  string
	Value string
}

func (h HeaderSpec) appliesToAllDepths() bool {
	if len(h.Scope) == 0 {
		return true
	}
	for _, s := range h.Scope {
		if s == allDepthsScope {
			return true
		}
	}
	return false
}

func (h HeaderSpec) appliesToDepth(depthStr string) bool {
	for _, s := range h.Scope {
		if s == depthStr {
			return true
		}
	}
	return false
}

// ResolveHeaders computes the header map for a task at depth, per the
// "all wins as a base, specific depth adds to and overrides" rule: a
// spec that names both "all" and a specific depth contributes its
// value to every depth, but a same-named specific-depth spec
// overrides it for that depth only.
func ResolveHeaders(specs []HeaderSpec, depth int) map[string]string {
	result := make(map[string]string)
	depthStr := strconv.Itoa(depth)

	for _, h := range specs {
		if h.appliesToAllDepths() {
			result[h.Name] = h.Value
		}
	}
	for _, h := range specs {
		if h.appliesToAllDepths() {
			continue
		}
		if h.appliesToDepth(depthStr) {
			result[h.Name] = h.Value
		}
	}
	return result
}

// ComputeMaxDepth converts the user-facing --depth value into the
// recursive handler's strict bound: the configured depth minus one,
// clamped to zero rather than allowed to underflow.
func ComputeMaxDepth(configuredDepth int) int {
	if configuredDepth <= 0 {
		return 0
	}
	return configuredDepth - 1
}

// RunConfig carries every per-run setting the worker pool and response
// handlers need. It is assembled by the command-line/config layer and
// handed to the engine as an already-resolved value; the engine itself
// never reads flags or environment variables.
type RunConfig struct {
	Threads        int
	BaseURL        string
	Mode           Mode
	Method         string
	Retries        int
	RetryCodes     []intrange.Range[int]
	ForceRecursion bool
	MaxDepth       int
	Bell           bool
	Headers        []HeaderSpec
	Body           string
	HasBody        bool
	NeedsBody      bool
}
