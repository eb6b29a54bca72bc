package engine

import "strings"

// UnknownSubject stands in when the payload carries no subject identity.
const UnknownSubject = "UNKNOWN"

// subjectKeys are the payload fields consulted for the subject identity, in
// order.
var subjectKeys = []string{"subject", "investor", "party", "entity"}

// ResolveSubject extracts the subject identity from a fact payload.
func ResolveSubject(payload map[string]any) string {
	for _, key := range subjectKeys {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return UnknownSubject
}

// ResolvePath resolves a left-hand operand path against a fact payload.
// Only the single-field form "$.<key>" is supported — this is a top-level
// field lookup, not a general path query. Anything else resolves to nil,
// which the comparator's null override then treats as not satisfied.
func ResolvePath(payload map[string]any, path string) any {
	if !strings.HasPrefix(path, "$.") {
		return nil
	}
	return payload[path[2:]]
}
