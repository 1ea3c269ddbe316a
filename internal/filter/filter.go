// Package filter restricts annotated events with a user-supplied boolean
// expression, e.g. `kind == "read" && path startsWith "/etc"`.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/devgoel186/tracemon/internal/model"
)

// Filter is a compiled event filter. A nil *Filter accepts every event.
type Filter struct {
	source  string
	program *vm.Program
}

// env is the expression environment. Field names are the identifiers
// available to filter expressions.
type env struct {
	Kind   string `expr:"kind"`
	Path   string `expr:"path"`
	Target string `expr:"target"`
	Flags  string `expr:"flags"`
	Source string `expr:"source"`
	Line   int    `expr:"line"`
}

// Compile builds a Filter. An empty expression yields a nil Filter.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expression, err)
	}
	return &Filter{source: expression, program: program}, nil
}

// String returns the expression the filter was compiled from.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match reports whether ev passes the filter.
func (f *Filter) Match(ev model.Event) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, env{
		Kind:   string(ev.Kind),
		Path:   ev.Path,
		Target: ev.Target,
		Flags:  ev.Flags,
		Source: ev.Source,
		Line:   ev.Line,
	})
	if err != nil {
		return true, fmt.Errorf("evaluate filter %q: %w", f.source, err)
	}
	return out.(bool), nil
}
