package compiler

import (
	"strings"

	"oblige-hq/warden/pkg/model"
)

// SeverityClassifier decides how serious a violation of the compiled rule
// would be. The compiler takes it as an interface so stricter schemes can be
// substituted without touching compilation logic.
type SeverityClassifier interface {
	Classify(frame model.ClauseFrame) model.Severity
}

// KeywordClassifier assigns HIGH when the clause attribute contains any of a
// fixed priority-term set, MEDIUM otherwise.
type KeywordClassifier struct {
	terms []string
}

// defaultPriorityTerms is the attribute vocabulary that marks a clause as
// high-severity.
var defaultPriorityTerms = []string{
	"fee", "rate", "report", "deadline", "sector",
	"prohibit", "ltv", "collateral", "notice",
}

// NewKeywordClassifier creates a classifier over the given priority terms.
// Passing nil uses the default vocabulary.
func NewKeywordClassifier(terms []string) *KeywordClassifier {
	if terms == nil {
		terms = defaultPriorityTerms
	}
	return &KeywordClassifier{terms: terms}
}

// Classify implements SeverityClassifier.
func (c *KeywordClassifier) Classify(frame model.ClauseFrame) model.Severity {
	attr := strings.ToLower(frame.Attribute)
	for _, term := range c.terms {
		if strings.Contains(attr, term) {
			return model.SeverityHigh
		}
	}
	return model.SeverityMedium
}
