package engine

import (
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"oblige-hq/warden/pkg/model"
)

// RuleSource resolves the rules matching an (event type, subject) pair.
// *store.Store satisfies it.
type RuleSource interface {
	RulesFor(eventType, subject string) ([]model.PolicyRule, error)
}

// Engine evaluates fact events against the persisted rule set. Evaluation
// is a pure computation aside from the rule-source read: violations are
// returned, never persisted here.
type Engine struct {
	rules  RuleSource
	logger *slog.Logger
	now    func() time.Time
}

// New creates a validation engine over the given rule source.
func New(rules RuleSource) *Engine {
	return &Engine{
		rules:  rules,
		logger: slog.Default().With("component", "engine"),
		now:    time.Now,
	}
}

// Validate evaluates one fact event against every matching rule and returns
// the violations it produces, possibly none.
//
// A malformed event fails the whole call with a ValidationInputError. A
// single rule whose operand cannot be resolved or compared does not abort
// the rest: the operand resolves to nil and the comparator's conservative
// null handling applies.
func (e *Engine) Validate(event model.FactEvent) ([]model.Violation, error) {
	if event.Type == "" {
		return nil, model.NewValidationInputError("missing event type")
	}
	if event.Payload == nil {
		return nil, model.NewValidationInputError("missing payload")
	}

	subject := ResolveSubject(event.Payload)

	rules, err := e.rules.RulesFor(event.Type, subject)
	if err != nil {
		return nil, err
	}

	var violations []model.Violation
	for _, rule := range rules {
		if e.satisfied(rule, event) {
			continue
		}
		violations = append(violations, e.newViolation(rule, event, subject))
	}

	e.logger.Debug("event validated",
		"event_type", event.Type,
		"subject", subject,
		"candidate_rules", len(rules),
		"violations", len(violations),
	)

	return violations, nil
}

// satisfied evaluates one rule's check against the event payload.
func (e *Engine) satisfied(rule model.PolicyRule, event model.FactEvent) bool {
	lhsPath := rule.Check.LHS
	if lhsPath == "" {
		lhsPath = "$.value"
	}

	lhs := ResolvePath(event.Payload, lhsPath)
	rhs := rule.Check.RHS
	unit := rule.Check.Unit

	// Unit-aware numeric normalization; comparison falls back to the raw
	// operands when either side fails to normalize.
	var ok bool
	var err error
	lnum, lok := NormalizeNumber(lhs, unit)
	rnum, rok := NormalizeNumber(rhs, unit)
	if lok && rok {
		ok, err = Compare(rule.Check.Op, lnum, rnum)
	} else {
		ok, err = Compare(rule.Check.Op, lhs, rhs)
	}

	if err != nil {
		// An uncomparable operand pair is treated like missing data:
		// the check is not satisfied.
		e.logger.Debug("comparison failed, treating as not satisfied",
			"rule_id", rule.ID,
			"op", rule.Check.Op,
			"error", err,
		)
		return false
	}

	return ok
}

// newViolation materializes the violation record for a failed rule check.
func (e *Engine) newViolation(rule model.PolicyRule, event model.FactEvent, subject string) model.Violation {
	return model.Violation{
		ID:        newViolationID(),
		RuleID:    rule.ID,
		EventType: event.Type,
		Subject:   subject,
		Expected: model.Expected{
			Op:   rule.Check.Op,
			LHS:  rule.Check.LHS,
			RHS:  rule.Check.RHS,
			Unit: rule.Check.Unit,
		},
		Actual:     event.Payload,
		Severity:   rule.Severity,
		Evidence:   rule.Evidence,
		DetectedAt: model.Timestamp(e.now()),
	}
}

// newViolationID returns a fresh "V-" id with 8 hex characters of entropy.
func newViolationID() string {
	id := uuid.New()
	return "V-" + hex.EncodeToString(id[:4])
}
