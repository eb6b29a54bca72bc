package model

import "time"

// Severity classifies how serious a violation of a rule is.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Status is the lifecycle state of a recorded violation. It lives in the
// status overlay, never inside the ledger record itself.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusAck      Status = "ACK"
	StatusResolved Status = "RESOLVED"
)

// ValidStatus reports whether s is one of the three overlay states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusAck, StatusResolved:
		return true
	}
	return false
}

// Evidence is the provenance trail for a clause: where in which document the
// obligation was found. Immutable once created; copied verbatim from clause
// to rule to violation.
type Evidence struct {
	// Doc is the source document identifier (filename). Always set.
	Doc string `json:"doc" yaml:"doc"`

	// Page is the 1-based page number, if known.
	Page *int `json:"page,omitempty" yaml:"page,omitempty"`

	// BBox is the bounding box [x1, y1, x2, y2], if available.
	BBox []float64 `json:"bbox,omitempty" yaml:"bbox,omitempty"`

	// TextSnippet is the clause text excerpt backing the obligation.
	TextSnippet string `json:"text_snippet,omitempty" yaml:"text_snippet,omitempty"`

	// Hash is a content hash of the source document, used as a stable
	// fingerprint across re-ingestions.
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// ClauseFrame is a schema-agnostic representation of one contractual
// obligation. It works for fees, deadlines, prohibitions, notices and
// covenants alike; the compiler turns it into an executable PolicyRule.
type ClauseFrame struct {
	// ID is unique within a compiled batch.
	ID string `json:"id" yaml:"id"`

	// Subject is the party bound by the obligation, e.g. "Borrower".
	Subject string `json:"subject" yaml:"subject"`

	// Obligation is the verb, e.g. "pay", "report", "prohibit", "notify".
	Obligation string `json:"obligation" yaml:"obligation"`

	// Attribute is the measured quantity, e.g. "management_fee", "sector".
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`

	// Comparator is one of eq, lte, gte, lt, gt, in, not_in, contains,
	// absent, neq, between. Empty means unspecified.
	Comparator string `json:"comparator,omitempty" yaml:"comparator,omitempty"`

	// Value is the obligation threshold or set; any JSON-compatible type.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Unit qualifies Value: "%", "days", "bps", "USD", "SIC", ...
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`

	// Conditions are free-text qualifiers, e.g. ["quarter_end"].
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// EffectiveStart and EffectiveEnd are ISO-8601 dates bounding the
	// obligation's validity window.
	EffectiveStart string `json:"effective_start,omitempty" yaml:"effective_start,omitempty"`
	EffectiveEnd   string `json:"effective_end,omitempty" yaml:"effective_end,omitempty"`

	// Confidence is the extraction confidence in [0, 1], if reported.
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	Evidence Evidence `json:"evidence" yaml:"evidence"`

	// Raw carries the upstream extraction payload for traceability.
	Raw map[string]any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// EnsureEvidenceDoc defaults the evidence document identifier to the source
// document name when the extractor left it empty.
func (f *ClauseFrame) EnsureEvidenceDoc(doc string) {
	if f.Evidence.Doc == "" {
		f.Evidence.Doc = doc
	}
}

// Check is the normalized assertion a compiled rule evaluates:
//
//	op  := eq | neq | lte | gte | lt | gt | in | not_in | contains |
//	       prohibits | requires | expr
//	lhs := "$.<key>" path into the fact payload
//	rhs := literal right-hand value
type Check struct {
	Op   string `json:"op" yaml:"op"`
	LHS  string `json:"lhs" yaml:"lhs"`
	RHS  any    `json:"rhs" yaml:"rhs"`
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// PolicyRule is the compiled, executable form of a ClauseFrame.
type PolicyRule struct {
	// ID is "R-" + the clause id, so recompilation is idempotent.
	ID string `json:"id" yaml:"id"`

	// Selector restricts which subjects the rule applies to; minimally
	// {"subject.eq": "<subject>"}.
	Selector map[string]any `json:"selector" yaml:"selector"`

	Check Check `json:"check" yaml:"check"`

	// OnEvents is the non-empty ordered list of event types that trigger
	// evaluation of this rule.
	OnEvents []string `json:"on_events" yaml:"on_events"`

	Severity Severity `json:"severity" yaml:"severity"`

	Evidence Evidence `json:"evidence" yaml:"evidence"`

	// Comments is a human-readable derivation note.
	Comments string `json:"comments,omitempty" yaml:"comments,omitempty"`
}

// SubjectKey is the selector key for exact subject matching.
const SubjectKey = "subject.eq"

// SelectorSubject returns the exact-match subject from the rule selector,
// or "" when the selector carries none.
func (r *PolicyRule) SelectorSubject() string {
	if s, ok := r.Selector[SubjectKey].(string); ok {
		return s
	}
	return ""
}

// FactEvent is an observed real-world occurrence checked against rules.
// Subject identity lives inside the payload under "subject" or a synonym.
type FactEvent struct {
	Type    string         `json:"type" yaml:"type"`
	Payload map[string]any `json:"payload" yaml:"payload"`
}

// Expected describes the check a violated rule performed.
type Expected struct {
	Op   string `json:"op" yaml:"op"`
	LHS  string `json:"lhs" yaml:"lhs"`
	RHS  any    `json:"rhs" yaml:"rhs"`
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Violation records one failed rule check for one fact event. Immutable once
// appended to the ledger; only the external status overlay changes over time.
type Violation struct {
	ID        string         `json:"id" yaml:"id"`
	RuleID    string         `json:"rule_id" yaml:"rule_id"`
	EventType string         `json:"event_type" yaml:"event_type"`
	Subject   string         `json:"subject" yaml:"subject"`
	Expected  Expected       `json:"expected" yaml:"expected"`
	Actual    map[string]any `json:"actual" yaml:"actual"`
	Severity  Severity       `json:"severity" yaml:"severity"`
	Evidence  Evidence       `json:"evidence" yaml:"evidence"`

	// DetectedAt is the detection timestamp, ISO-8601 UTC.
	DetectedAt string `json:"detected_at" yaml:"detected_at"`

	// Summary is optionally attached by the explanation collaborator
	// before ledger persistence. The engine never sets or requires it.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Timestamp formats t the way ledger records carry timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
