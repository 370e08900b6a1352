package xlbind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the environment an expression resolver compiles against.
// header is the header text, value the raw header value and index the
// 0-based column index. Transform expressions also see cell, the decoded
// cell value.
func exprEnv() map[string]any {
	return map[string]any{
		"header": "",
		"value":  nil,
		"index":  0,
		"cell":   nil,
	}
}

func compileExpr(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	return program, nil
}

// ExprResolver claims columns whose header satisfies an expression.
//
// The match expression evaluates to a bool (claim or not) or a string
// (claim and use the string as the effective header; "" declines). The
// optional transform expression maps the decoded cell value before it is
// assigned to the bound field; an evaluation error rejects the row.
type ExprResolver struct {
	match     *vm.Program
	transform *vm.Program
}

// NewExprResolver compiles the expressions once and returns a factory.
//
//	NewExprResolver(`header startsWith "Qty"`, `cell * 1000`)
//	NewExprResolver(`lower(header) == "e-mail" ? "Email" : ""`, "")
func NewExprResolver(match, transform string) (ResolverFactory, error) {
	if strings.TrimSpace(match) == "" {
		return nil, fmt.Errorf("expression resolver: empty match expression")
	}
	m, err := compileExpr(match)
	if err != nil {
		return nil, err
	}
	var tr *vm.Program
	if strings.TrimSpace(transform) != "" {
		if tr, err = compileExpr(transform); err != nil {
			return nil, err
		}
	}
	return func() Resolver { return &ExprResolver{match: m, transform: tr} }, nil
}

// MapColumn evaluates the match expression for a header.
func (r *ExprResolver) MapColumn(header any, index int) (any, bool) {
	env := exprEnv()
	env["header"], env["value"], env["index"] = headerText(header), header, index
	out, err := expr.Run(r.match, env)
	if err != nil {
		return nil, false
	}
	switch v := out.(type) {
	case bool:
		return header, v
	case string:
		if v == "" {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// Take applies the transform expression, if any, and assigns the result.
func (r *ExprResolver) Take(col *Column, value any, record reflect.Value) bool {
	if r.transform != nil {
		env := exprEnv()
		env["header"], env["value"], env["index"], env["cell"] = col.HeaderText(), col.Header, col.Index, value
		out, err := expr.Run(r.transform, env)
		if err != nil {
			return false
		}
		value = normalizeNumber(out)
	}
	return col.Assign(record, value) == nil
}

// Put writes the bound field unchanged.
func (r *ExprResolver) Put(col *Column, record reflect.Value) (any, bool) {
	v, err := col.Value(record)
	return v, err == nil
}

// normalizeNumber widens expression results to the representation the
// coercion layer expects.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
