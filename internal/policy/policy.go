// Package policy evaluates rule expressions over finished connector calls.
// The connector layer itself never retries; this enforcer lets the caller
// that owns retry policy decide what to do with a failed call. Rules are
// govaluate expressions compiled once at construction.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// RuleAction is what a matched rule asks for.
type RuleAction string

const (
	// ActionRetry marks the failed call as retryable by the caller.
	ActionRetry RuleAction = "retry"
	// ActionEscalate marks the call for manual review.
	ActionEscalate RuleAction = "escalate"
)

// RuleConfig is one declarative policy rule. The expression may reference
// attempt_number, success, http_status, status, and flow.
type RuleConfig struct {
	Name       string
	Expression string
	Action     RuleAction
}

// Outcome describes a finished connector call for rule evaluation.
type Outcome struct {
	Flow          string
	AttemptNumber int
	Success       bool
	HTTPStatus    int
	Status        string
}

// Decision is the combined verdict of all matched rules.
type Decision struct {
	AllowRetry     bool     `json:"allow_retry"`
	EscalateManual bool     `json:"escalate_manual"`
	MatchedRules   []string `json:"matched_rules,omitempty"`
}

type compiledRule struct {
	name   string
	action RuleAction
	expr   *govaluate.EvaluableExpression
}

// Enforcer evaluates compiled policy rules.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles the rule expressions. A rule that fails to compile
// is a configuration error, not something to skip silently.
func NewEnforcer(rules []RuleConfig) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("policy: rule with expression %q has no name", rule.Expression)
		}
		switch rule.Action {
		case ActionRetry, ActionEscalate:
		default:
			return nil, fmt.Errorf("policy: rule %q has unknown action %q", rule.Name, rule.Action)
		}
		expr, err := govaluate.NewEvaluableExpression(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: compile rule %q: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rule.Name, action: rule.Action, expr: expr})
	}
	return &Enforcer{rules: compiled}, nil
}

// Evaluate runs every rule against the outcome and folds the matches into
// one decision.
func (e *Enforcer) Evaluate(outcome Outcome) (Decision, error) {
	params := map[string]interface{}{
		"flow":           outcome.Flow,
		"attempt_number": outcome.AttemptNumber,
		"success":        outcome.Success,
		"http_status":    outcome.HTTPStatus,
		"status":         outcome.Status,
	}

	var decision Decision
	for _, rule := range e.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: evaluate rule %q: %w", rule.name, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("policy: rule %q did not evaluate to a boolean", rule.name)
		}
		if !matched {
			continue
		}
		decision.MatchedRules = append(decision.MatchedRules, rule.name)
		switch rule.action {
		case ActionRetry:
			decision.AllowRetry = true
		case ActionEscalate:
			decision.EscalateManual = true
		}
	}
	return decision, nil
}

// DefaultRules is the rule set the serving harness starts with: one retry
// on any failed first attempt, escalation on repeated server errors.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			Name:       "RetryFirstFailure",
			Expression: "!success && attempt_number < 2",
			Action:     ActionRetry,
		},
		{
			Name:       "EscalateRepeatedServerError",
			Expression: "!success && attempt_number >= 2 && http_status >= 500",
			Action:     ActionEscalate,
		},
	}
}
