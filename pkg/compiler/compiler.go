package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"oblige-hq/warden/pkg/model"
)

// DefaultCheckOp is used when the clause carried no comparator. The engine
// treats it as equality.
const DefaultCheckOp = "expr"

// Compiler turns clause frames into executable policy rules. Compilation is
// deterministic and pure: the rule id is a direct function of the clause id
// and everything else follows the keyword tables.
type Compiler struct {
	pathRules  []pathRule
	eventRules []eventRule
	classifier SeverityClassifier
	logger     *slog.Logger
}

// NewCompiler creates a compiler with the default keyword tables and the
// given severity classifier. A nil classifier uses the keyword default.
func NewCompiler(classifier SeverityClassifier) *Compiler {
	if classifier == nil {
		classifier = NewKeywordClassifier(nil)
	}
	return &Compiler{
		pathRules:  defaultPathRules,
		eventRules: defaultEventRules,
		classifier: classifier,
		logger:     slog.Default().With("component", "compiler"),
	}
}

// Compile maps one clause frame to one policy rule.
//
// The lhs path is inferred from the attribute (falling back to the
// obligation, then the literal "value"); the comparator carries over lowered
// (defaulting to "expr"); triggers come from the event table; severity from
// the classifier. A clause without an id or subject fails compilation.
func (c *Compiler) Compile(frame model.ClauseFrame) (model.PolicyRule, error) {
	if frame.ID == "" {
		return model.PolicyRule{}, model.NewCompilationError("", "clause is missing an id")
	}
	if frame.Subject == "" {
		return model.PolicyRule{}, model.NewCompilationError(frame.ID, "clause is missing a subject")
	}

	attr := strings.ToLower(frame.Attribute)
	if attr == "" {
		attr = strings.ToLower(frame.Obligation)
	}
	if attr == "" {
		attr = "value"
	}

	op := strings.ToLower(frame.Comparator)
	if op == "" {
		op = DefaultCheckOp
	}

	obligation := strings.ToLower(frame.Obligation)
	attribute := strings.ToLower(frame.Attribute)

	rule := model.PolicyRule{
		ID:       "R-" + frame.ID,
		Selector: map[string]any{model.SubjectKey: frame.Subject},
		Check: model.Check{
			Op:   op,
			LHS:  resolvePath(c.pathRules, attr),
			RHS:  frame.Value,
			Unit: frame.Unit,
		},
		OnEvents: resolveEvents(c.eventRules, obligation, attribute),
		Severity: c.classifier.Classify(frame),
		Evidence: frame.Evidence,
		Comments: deriveComment(frame),
	}

	return rule, nil
}

// SkippedClause reports one clause that failed compilation within a batch.
type SkippedClause struct {
	ClauseID string
	Err      error
}

// BatchResult is the outcome of compiling a batch of clause frames.
type BatchResult struct {
	Rules   []model.PolicyRule
	Skipped []SkippedClause
}

// SkippedCount returns how many clauses failed to compile.
func (r BatchResult) SkippedCount() int {
	return len(r.Skipped)
}

// CompileBatch compiles every frame, skipping malformed clauses without
// aborting the batch. Each skip is reported as a structured outcome.
func (c *Compiler) CompileBatch(frames []model.ClauseFrame) BatchResult {
	result := BatchResult{Rules: make([]model.PolicyRule, 0, len(frames))}

	for _, frame := range frames {
		rule, err := c.Compile(frame)
		if err != nil {
			c.logger.Warn("skipping clause",
				"clause_id", frame.ID,
				"error", err,
			)
			result.Skipped = append(result.Skipped, SkippedClause{
				ClauseID: frame.ID,
				Err:      err,
			})
			continue
		}
		result.Rules = append(result.Rules, rule)
	}

	if len(result.Skipped) > 0 {
		c.logger.Warn("batch compiled with skipped clauses",
			"compiled", len(result.Rules),
			"skipped", len(result.Skipped),
		)
	} else {
		c.logger.Info("batch compiled",
			"compiled", len(result.Rules),
		)
	}

	return result
}

// deriveComment builds the human-readable derivation note carried on the
// rule for display surfaces.
func deriveComment(frame model.ClauseFrame) string {
	parts := []string{frame.Obligation, frame.Attribute, frame.Comparator}
	if frame.Value != nil {
		parts = append(parts, fmt.Sprint(frame.Value))
	}
	if frame.Unit != "" {
		parts = append(parts, frame.Unit)
	}

	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}
	return strings.TrimSpace("Derived from clause: " + strings.Join(joined, " "))
}
