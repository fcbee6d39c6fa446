package profile

import (
	"fmt"
	"strconv"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"
)

// Expr is a numeric profile field. It is either a plain number or an
// expression over the profile's vars, such as `-167.9 + pad_thickness`.
type Expr string

func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number or expression", node.Line)
	}
	*e = Expr(node.Value)
	return nil
}

// Eval returns the value of e. An empty expression is zero.
func (e Expr) Eval(vars map[string]interface{}) (float64, error) {
	if e == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(string(e), 64); err == nil {
		return f, nil
	}
	program, err := expr.Compile(string(e), expr.Env(vars), expr.AsFloat64())
	if err != nil {
		return 0, fmt.Errorf("compile %q: %w", string(e), err)
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", string(e), err)
	}
	return out.(float64), nil
}

// evaluator collects the first error across many evaluations.
type evaluator struct {
	vars map[string]interface{}
	err  error
}

func (ev *evaluator) eval(field string, e Expr) float64 {
	if ev.err != nil {
		return 0
	}
	v, err := e.Eval(ev.vars)
	if err != nil {
		ev.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}
