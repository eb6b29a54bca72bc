package store

import "oblige-hq/warden/pkg/model"

// Index is the derived lookup structure: event type -> subject -> rules, in
// compilation order. Order is preserved so the first-defined rule wins ties
// in reporting order even though every matching rule is still evaluated.
type Index map[string]map[string][]model.PolicyRule

// BuildIndex builds the lookup index for a rule set.
func BuildIndex(rules []model.PolicyRule) Index {
	idx := make(Index)
	for _, r := range rules {
		subject := r.SelectorSubject()
		for _, ev := range r.OnEvents {
			bySubject, ok := idx[ev]
			if !ok {
				bySubject = make(map[string][]model.PolicyRule)
				idx[ev] = bySubject
			}
			bySubject[subject] = append(bySubject[subject], r)
		}
	}
	return idx
}

// Lookup returns the indexed rules for an (event type, subject) pair. A pair
// matching no rule returns an empty slice.
func (idx Index) Lookup(eventType, subject string) []model.PolicyRule {
	bySubject, ok := idx[eventType]
	if !ok {
		return nil
	}
	return bySubject[subject]
}
