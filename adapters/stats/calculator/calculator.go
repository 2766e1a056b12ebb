// Package calculator evaluates calculated vector expressions row by row over
// a vector table.
package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"enstats/domain/calc"
	"enstats/domain/core"
	"enstats/domain/vector"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Validate parses the expression against its declared variables and
// returns a copy with IsValid set accordingly. The returned error explains
// why an expression is invalid.
func Validate(e calc.Expression) (calc.Expression, error) {
	e.IsValid = false
	if strings.TrimSpace(e.Name) == "" {
		return e, core.NewExpressionError(e.Expression, fmt.Errorf("missing output name"))
	}
	if len(e.VariableVectorMap) == 0 {
		return e, core.NewExpressionError(e.Name, fmt.Errorf("no variables"))
	}
	for variable, vec := range e.VariableVectorMap {
		if strings.TrimSpace(variable) == "" || strings.TrimSpace(vec) == "" {
			return e, core.NewExpressionError(e.Name, fmt.Errorf("empty variable binding %q -> %q", variable, vec))
		}
	}
	if _, err := compile(e); err != nil {
		return e, core.NewExpressionError(e.Name, err)
	}
	e.IsValid = true
	return e, nil
}

// Evaluate computes the expression for every row of table. The expression
// must be marked valid and every referenced vector must be a column of the
// table. Results that are not finite become NaN.
func Evaluate(e calc.Expression, table *vector.Table) ([]float64, error) {
	if !e.IsValid {
		return nil, core.NewExpressionError(e.Name, nil)
	}

	variables := sortedVariables(e)
	columns := make([][]float64, len(variables))
	for i, variable := range variables {
		vec := e.VariableVectorMap[variable]
		if !table.HasVector(vec) {
			return nil, core.NewUnresolvedVariableError(e.Name, variable, vec)
		}
		columns[i] = table.Column(vec)
	}

	program, err := compile(e)
	if err != nil {
		return nil, core.NewExpressionError(e.Name, err)
	}

	env := make(map[string]interface{}, len(variables))
	out := make([]float64, table.Len())
	var machine vm.VM
	for row := range out {
		for i, variable := range variables {
			env[variable] = columns[i][row]
		}
		result, err := machine.Run(program, env)
		if err != nil {
			return nil, core.NewExpressionError(e.Name, err)
		}
		out[row] = toFloat(result)
	}
	return out, nil
}

// Failure records one calculated vector that could not be produced.
type Failure struct {
	Vector string
	Err    error
}

// Errors collects per-vector failures of a batch evaluation.
type Errors []Failure

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, f := range e {
		parts[i] = fmt.Sprintf("%s: %v", f.Vector, f.Err)
	}
	return "calculated vectors failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, f := range e {
		errs[i] = f.Err
	}
	return errs
}

// Apply evaluates every expression over table and returns a table with the
// same DATE/REAL rows holding one column per expression that succeeded.
// Failed expressions are reported in Errors and do not stop the others; the
// returned error is nil when every expression succeeded.
func Apply(exprs []calc.Expression, table *vector.Table) (*vector.Table, error) {
	out, err := table.Select(nil)
	if err != nil {
		return nil, err
	}
	var failures Errors
	for _, e := range exprs {
		values, err := Evaluate(e, table)
		if err != nil {
			failures = append(failures, Failure{Vector: e.Name, Err: err})
			continue
		}
		if out, err = out.WithColumn(e.Name, values); err != nil {
			return nil, err
		}
	}
	if len(failures) > 0 {
		return out, failures
	}
	return out, nil
}

func compile(e calc.Expression) (*vm.Program, error) {
	env := make(map[string]interface{}, len(e.VariableVectorMap))
	for variable := range e.VariableVectorMap {
		env[variable] = float64(0)
	}
	return expr.Compile(e.Expression, expr.Env(env), expr.AsFloat64())
}

func sortedVariables(e calc.Expression) []string {
	variables := make([]string, 0, len(e.VariableVectorMap))
	for variable := range e.VariableVectorMap {
		variables = append(variables, variable)
	}
	sort.Strings(variables)
	return variables
}

func toFloat(v interface{}) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	default:
		return math.NaN()
	}
	if math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
