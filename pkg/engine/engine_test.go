package engine

import (
	"errors"
	"strings"
	"testing"

	"oblige-hq/warden/pkg/model"
)

// ruleSourceFunc adapts a function to the RuleSource interface.
type ruleSourceFunc func(eventType, subject string) ([]model.PolicyRule, error)

func (f ruleSourceFunc) RulesFor(eventType, subject string) ([]model.PolicyRule, error) {
	return f(eventType, subject)
}

func fixedRules(rules ...model.PolicyRule) RuleSource {
	return ruleSourceFunc(func(eventType, subject string) ([]model.PolicyRule, error) {
		var out []model.PolicyRule
		for _, r := range rules {
			if r.SelectorSubject() != subject {
				continue
			}
			for _, ev := range r.OnEvents {
				if ev == eventType {
					out = append(out, r)
					break
				}
			}
		}
		return out, nil
	})
}

func feeCapRule() model.PolicyRule {
	return model.PolicyRule{
		ID:       "R-c1",
		Selector: map[string]any{model.SubjectKey: "Manager"},
		Check: model.Check{
			Op:   "lte",
			LHS:  "$.fee_rate",
			RHS:  "1.75%",
			Unit: "%",
		},
		OnEvents: []string{"fee_post"},
		Severity: model.SeverityHigh,
		Evidence: model.Evidence{Doc: "lpa.pdf", TextSnippet: "fee shall not exceed 1.75%"},
	}
}

func sectorBanRule() model.PolicyRule {
	return model.PolicyRule{
		ID:       "R-c2",
		Selector: map[string]any{model.SubjectKey: "Fund"},
		Check: model.Check{
			Op:  "not_in",
			LHS: "$.sector",
			RHS: []any{"SIC:7372"},
		},
		OnEvents: []string{"trade_allocated"},
		Severity: model.SeverityHigh,
		Evidence: model.Evidence{Doc: "sideletter.pdf"},
	}
}

func TestValidateFeeCapViolated(t *testing.T) {
	e := New(fixedRules(feeCapRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager", "fee_rate": 0.02},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}

	v := violations[0]
	if !strings.HasPrefix(v.ID, "V-") || len(v.ID) != len("V-")+8 {
		t.Errorf("violation id %q does not match V-<8 hex>", v.ID)
	}
	if v.RuleID != "R-c1" {
		t.Errorf("rule id = %q, want R-c1", v.RuleID)
	}
	if v.EventType != "fee_post" {
		t.Errorf("event type = %q, want fee_post", v.EventType)
	}
	if v.Subject != "Manager" {
		t.Errorf("subject = %q, want Manager", v.Subject)
	}
	if v.Expected.Op != "lte" || v.Expected.RHS != "1.75%" || v.Expected.Unit != "%" {
		t.Errorf("expected check not carried over: %+v", v.Expected)
	}
	if v.Actual["fee_rate"] != 0.02 {
		t.Errorf("actual payload not carried over: %+v", v.Actual)
	}
	if v.Severity != model.SeverityHigh {
		t.Errorf("severity = %q, want HIGH", v.Severity)
	}
	if v.Evidence.Doc != "lpa.pdf" {
		t.Errorf("evidence not carried over: %+v", v.Evidence)
	}
	if v.DetectedAt == "" {
		t.Error("detected_at is empty")
	}
}

func TestValidateFeeCapSatisfied(t *testing.T) {
	e := New(fixedRules(feeCapRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager", "fee_rate": 0.015},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(violations))
	}
}

func TestValidatePercentStringActual(t *testing.T) {
	// A percent string on the fact side normalizes the same way as the
	// rule threshold.
	e := New(fixedRules(feeCapRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager", "fee_rate": "2.00%"},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation for 2.00%% against 1.75%% cap, got %d", len(violations))
	}
}

func TestValidateSectorBan(t *testing.T) {
	e := New(fixedRules(sectorBanRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "trade_allocated",
		Payload: map[string]any{"subject": "Fund", "sector": "SIC:7372"},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation for banned sector, got %d", len(violations))
	}

	violations, err = e.Validate(model.FactEvent{
		Type:    "trade_allocated",
		Payload: map[string]any{"subject": "Fund", "sector": "SIC:7371"},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations for allowed sector, got %d", len(violations))
	}
}

func TestValidateMalformedEvent(t *testing.T) {
	e := New(fixedRules(feeCapRule()))

	var inputErr *model.ValidationInputError

	_, err := e.Validate(model.FactEvent{Payload: map[string]any{"x": 1}})
	if !errors.As(err, &inputErr) {
		t.Errorf("missing type: expected ValidationInputError, got %v", err)
	}

	_, err = e.Validate(model.FactEvent{Type: "fee_post"})
	if !errors.As(err, &inputErr) {
		t.Errorf("missing payload: expected ValidationInputError, got %v", err)
	}
}

func TestValidateSubjectSynonym(t *testing.T) {
	e := New(fixedRules(feeCapRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"party": "Manager", "fee_rate": 0.02},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation via subject synonym, got %d", len(violations))
	}
}

func TestValidateNoMatchingRules(t *testing.T) {
	e := New(fixedRules(feeCapRule()))

	// Wrong subject and wrong event type both mean zero candidates.
	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Other", "fee_rate": 0.99},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations for non-matching subject, got %d", len(violations))
	}
}

func TestValidateMissingOperandNotSatisfied(t *testing.T) {
	// A payload without the rule's lhs field fails the non-equality check
	// and produces a violation.
	e := New(fixedRules(feeCapRule()))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager"},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation for missing operand, got %d", len(violations))
	}
}

func TestValidateMultipleRules(t *testing.T) {
	strict := feeCapRule()
	strict.ID = "R-c3"
	strict.Check.RHS = "1.00%"

	e := New(fixedRules(feeCapRule(), strict))

	violations, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager", "fee_rate": 0.015},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	// 1.5% passes the 1.75% cap but violates the 1.00% cap.
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}
	if violations[0].RuleID != "R-c3" {
		t.Errorf("violated rule = %q, want R-c3", violations[0].RuleID)
	}
}

func TestValidateRuleSourceError(t *testing.T) {
	wantErr := errors.New("bundle unreadable")
	e := New(ruleSourceFunc(func(string, string) ([]model.PolicyRule, error) {
		return nil, wantErr
	}))

	_, err := e.Validate(model.FactEvent{
		Type:    "fee_post",
		Payload: map[string]any{"subject": "Manager"},
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected rule source error to propagate, got %v", err)
	}
}

func TestViolationIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newViolationID()
		if seen[id] {
			t.Fatalf("duplicate violation id %q", id)
		}
		seen[id] = true
	}
}
