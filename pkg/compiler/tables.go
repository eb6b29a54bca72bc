package compiler

import "strings"

// pathRule maps attribute keywords to the fact-payload field a compiled rule
// should inspect. Rules are evaluated in order; the first match wins.
type pathRule struct {
	keywords []string // any-of substring match on the lowered attribute
	path     string   // resulting lhs path
}

// defaultPathRules is the attribute -> payload path table. The fallback for
// an unmatched attribute is a synthesized "$.<attribute>" path with spaces
// replaced by underscores.
var defaultPathRules = []pathRule{
	{keywords: []string{"fee"}, path: "$.fee_rate"},
	{keywords: []string{"report", "deadline"}, path: "$.report_delay_days"},
	{keywords: []string{"sector", "allocation"}, path: "$.sector"},
	{keywords: []string{"ltv"}, path: "$.ltv_ratio"},
	{keywords: []string{"notice"}, path: "$.notice_sent"},
}

// eventRule maps obligation/attribute keywords to the event types that
// should trigger a rule. Rules are evaluated in order; the first match wins.
type eventRule struct {
	obligationKeywords []string
	attributeKeywords  []string
	events             []string
}

// defaultEventRules is the trigger-inference table. Unmatched clauses fall
// back to the generic catch-all event type.
var defaultEventRules = []eventRule{
	{
		obligationKeywords: []string{"fee"},
		attributeKeywords:  []string{"fee"},
		events:             []string{"fee_post"},
	},
	{
		obligationKeywords: []string{"report"},
		attributeKeywords:  []string{"deadline"},
		events:             []string{"report_delivered"},
	},
	{
		obligationKeywords: []string{"prohibit"},
		attributeKeywords:  []string{"sector", "allocation"},
		events:             []string{"trade_allocated"},
	},
	{
		obligationKeywords: []string{"notify"},
		attributeKeywords:  []string{"notice"},
		events:             []string{"sideletter_ingested", "amendment_ingested"},
	},
}

// CatchAllEvent is the generic trigger used when no keyword rule matches.
const CatchAllEvent = "data_event"

func (r pathRule) matches(attr string) bool {
	return containsAny(attr, r.keywords)
}

func (r eventRule) matches(obligation, attribute string) bool {
	return containsAny(obligation, r.obligationKeywords) ||
		containsAny(attribute, r.attributeKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// resolvePath returns the payload path for a lowered attribute string.
func resolvePath(rules []pathRule, attr string) string {
	for _, r := range rules {
		if r.matches(attr) {
			return r.path
		}
	}
	return "$." + strings.ReplaceAll(attr, " ", "_")
}

// resolveEvents returns the trigger event types for a clause's lowered
// obligation and attribute strings. Never returns an empty list.
func resolveEvents(rules []eventRule, obligation, attribute string) []string {
	for _, r := range rules {
		if r.matches(obligation, attribute) {
			events := make([]string, len(r.events))
			copy(events, r.events)
			return events
		}
	}
	return []string{CatchAllEvent}
}
