// Package calc describes user defined calculated vectors.
package calc

import (
	"sort"

	"enstats/domain/core"
)

// Expression is a calculated vector definition. Name is the output vector,
// Expression the arithmetic over variables, and VariableVectorMap binds each
// variable to an existing vector. IsValid is decided by the expression
// parser upstream; the engine never evaluates an expression not marked valid.
// IsDynamic marks expressions created during a session rather than
// predefined in configuration.
type Expression struct {
	ID                core.ExpressionID `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	Expression        string            `json:"expression" yaml:"expression"`
	VariableVectorMap map[string]string `json:"variable_vector_map" yaml:"variables"`
	Description       string            `json:"description,omitempty" yaml:"description,omitempty"`
	IsValid           bool              `json:"is_valid" yaml:"-"`
	IsDynamic         bool              `json:"is_dynamic" yaml:"-"`
}

// New returns an unvalidated expression with a fresh ID.
func New(name, expression string, variables map[string]string) Expression {
	return Expression{
		ID:                core.NewExpressionID(),
		Name:              name,
		Expression:        expression,
		VariableVectorMap: variables,
	}
}

// Vectors returns the distinct vectors the expression references, sorted.
func (e Expression) Vectors() []string {
	seen := make(map[string]struct{}, len(e.VariableVectorMap))
	out := make([]string, 0, len(e.VariableVectorMap))
	for _, vec := range e.VariableVectorMap {
		if _, ok := seen[vec]; ok {
			continue
		}
		seen[vec] = struct{}{}
		out = append(out, vec)
	}
	sort.Strings(out)
	return out
}

// Names returns the set of output names of exprs.
func Names(exprs []Expression) map[string]bool {
	names := make(map[string]bool, len(exprs))
	for _, e := range exprs {
		names[e.Name] = true
	}
	return names
}

// ByName returns the expression producing name.
func ByName(exprs []Expression, name string) (Expression, bool) {
	for _, e := range exprs {
		if e.Name == name {
			return e, true
		}
	}
	return Expression{}, false
}
