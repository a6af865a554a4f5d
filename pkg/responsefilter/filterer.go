package responsefilter

import (
	"github.com/3leaps/webhunt/pkg/filterexpr"
)

// Filter is a compiled response-filter expression: a resolved
// filterexpr tree of Predicate leaves, ready for repeated evaluation.
type Filter struct {
	expr      *filterexpr.Expr[Predicate]
	needsBody bool
}

// Compile parses expr and resolves every atom against Registry. An
// empty expr compiles to an always-true filter (the default when a run
// specifies no -f/--filters flag).
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return &Filter{expr: filterexpr.Val[Predicate](func(*Response) (bool, error) { return true, nil })}, nil
	}

	raw, err := filterexpr.Parse(expr)
	if err != nil {
		return nil, err
	}

	needsBody := false
	resolved, err := filterexpr.TryMap(raw, func(atomStr string) (Predicate, error) {
		syn, err := filterexpr.ParseAtomSyntax(atomStr)
		if err != nil {
			return nil, err
		}
		pred, err := Registry.Construct(syn.Name, syn.Value)
		if err != nil {
			return nil, err
		}
		if nb, _ := Registry.NeedsBody(syn.Name); nb {
			needsBody = true
		}
		return pred, nil
	})
	if err != nil {
		return nil, err
	}

	return &Filter{expr: resolved, needsBody: needsBody}, nil
}

// Match evaluates the compiled filter against a built Response.
func (f *Filter) Match(r *Response) (bool, error) {
	return filterexpr.Evaluate(f.expr, func(p Predicate) (bool, error) { return p(r) })
}

// NeedsBody reports whether any atom in the compiled expression
// requires the response body to have been read.
func (f *Filter) NeedsBody() bool { return f.needsBody }

// String pretty-prints the compiled filter back to source syntax.
func (f *Filter) String() string { return f.expr.String() }
