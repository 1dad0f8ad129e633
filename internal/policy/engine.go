// Package policy gates launches with CEL rules evaluated over the
// launch request. Rules run in order; the first match wins; an
// unmatched request falls through to the configured default effect.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/VikingOwl91/procjail/internal/config"
)

// Effect is the outcome of a policy decision.
type Effect int

const (
	Deny Effect = iota
	Allow
)

// Request describes a launch about to happen.
type Request struct {
	Command string
	Args    []string
	Dir     string
}

type compiledRule struct {
	name    string
	effect  Effect
	program cel.Program
}

// Engine evaluates launch requests against compiled rules.
type Engine struct {
	defaultEffect Effect
	rules         []compiledRule
}

// New compiles the configured rules. Expressions see the variables
// command (string), args (list of string) and dir (string) and must
// evaluate to bool.
func New(cfg config.PolicyConfig) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("command", cel.StringType),
		cel.Variable("args", cel.ListType(cel.StringType)),
		cel.Variable("dir", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	e := &Engine{}
	if cfg.Default == "allow" {
		e.defaultEffect = Allow
	}

	for _, rule := range cfg.Rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q: expression must evaluate to bool, got %s", rule.Name, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}

		effect := Deny
		if rule.Effect == "allow" {
			effect = Allow
		}
		e.rules = append(e.rules, compiledRule{
			name:    rule.Name,
			effect:  effect,
			program: program,
		})
	}

	return e, nil
}

// Evaluate returns the effect for req and the name of the deciding
// rule, or "default:allow" / "default:deny" when no rule matched. A
// rule that errors at runtime is skipped, so the decision falls through
// to later rules and ultimately the default.
func (e *Engine) Evaluate(req Request) (Effect, string) {
	input := map[string]any{
		"command": req.Command,
		"args":    req.Args,
		"dir":     req.Dir,
	}

	for _, rule := range e.rules {
		out, _, err := rule.program.Eval(input)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return rule.effect, rule.name
		}
	}

	if e.defaultEffect == Allow {
		return Allow, "default:allow"
	}
	return Deny, "default:deny"
}
