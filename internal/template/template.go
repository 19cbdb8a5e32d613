// Package template renders HCL template strings and evaluates HCL
// expressions against a flat variable scope. It is the single place in the
// codebase that talks to the hclsyntax parser, so every caller gets the same
// diagnostics for malformed templates and undefined references.
package template

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// markers are the character sequences that open an embedded expression or
// directive inside an otherwise literal string.
var markers = []string{"${", "%{"}

// HasMarkers reports whether s contains at least one template marker. A
// string without markers never needs a scope to render.
func HasMarkers(s string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Render parses text as an HCL template and evaluates it against scope,
// returning the rendered string. Parse failures yield a *SyntaxError;
// references to names absent from scope yield an *UndefinedError.
func Render(text string, scope map[string]cty.Value) (string, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(text), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return "", &SyntaxError{Source: text, Diags: diags}
	}
	val, err := evaluate(expr, text, scope)
	if err != nil {
		return "", err
	}
	strVal, convErr := convert.Convert(val, cty.String)
	if convErr != nil {
		return "", &EvalError{Source: text, Reason: convErr.Error()}
	}
	if strVal.IsNull() {
		return "", &EvalError{Source: text, Reason: "template produced a null value"}
	}
	return strVal.AsString(), nil
}

// EvalExpression parses text as a bare HCL expression and evaluates it
// against scope. Used for blueprint "if" conditions, where the result must
// be further coerced by the caller.
func EvalExpression(text string, scope map[string]cty.Value) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(text), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, &SyntaxError{Source: text, Diags: diags}
	}
	return evaluate(expr, text, scope)
}

// evaluate checks every variable reference in expr against scope before
// evaluating, so undefined names surface as a typed error instead of a
// generic diagnostic.
func evaluate(expr hcl.Expression, source string, scope map[string]cty.Value) (cty.Value, error) {
	var missing []string
	seen := map[string]bool{}
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if _, ok := scope[name]; !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return cty.NilVal, &UndefinedError{Source: source, Names: missing}
	}

	val, diags := expr.Value(&hcl.EvalContext{Variables: scope})
	if diags.HasErrors() {
		return cty.NilVal, &EvalError{Source: source, Reason: diags.Error()}
	}
	return val, nil
}
