package blueprint

import (
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/fleetflow/fleetflow/internal/template"
	"github.com/fleetflow/fleetflow/internal/vars"
)

// truthyTokens and falsyTokens are the canonical literal condition values,
// matched case-insensitively before any template evaluation happens.
var (
	truthyTokens = map[string]bool{"true": true, "yes": true, "1": true, "on": true}
	falsyTokens  = map[string]bool{"false": true, "no": true, "0": true, "off": true}
)

// AssemblyScope builds the assembly-time render scope: the five static
// layers merged lowest to highest precedence (environment, root default,
// domain default, workflow inline, CLI). No runtime or per-device layer
// exists at this stage, since expansion precedes any device contact.
func AssemblyScope(opts vars.Options) (map[string]cty.Value, error) {
	shared, err := vars.NewSharedState(opts)
	if err != nil {
		return nil, err
	}
	flat := shared.FlattenedStatic()
	scope := make(map[string]cty.Value, len(flat))
	for k, v := range flat {
		converted, err := template.FromGo(v)
		if err != nil {
			return nil, err
		}
		scope[k] = converted
	}
	return scope, nil
}

// ResolveTemplate renders a blueprint-reference name template against the
// assembly scope. Syntax errors and undefined references fail expansion.
func ResolveTemplate(text string, scope map[string]cty.Value) (string, error) {
	return template.Render(text, scope)
}

// EvaluateCondition decides whether a blueprint reference is included. A
// literal boolean passes through; a plain token string converts directly;
// any other string is evaluated as an expression that must produce a
// boolean.
func EvaluateCondition(value any, scope map[string]cty.Value) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		token := strings.ToLower(strings.TrimSpace(v))
		if truthyTokens[token] {
			return true, nil
		}
		if falsyTokens[token] {
			return false, nil
		}
		result, err := template.EvalExpression(v, scope)
		if err != nil {
			return false, err
		}
		if result.IsNull() || result.Type() != cty.Bool {
			return false, &ConditionTypeError{Value: v}
		}
		return result.True(), nil
	default:
		return false, &ConditionTypeError{Value: value}
	}
}
