// Package engine evaluates fact events against compiled policy rules.
//
// For each event it resolves the subject from the payload, fetches the
// candidate rules for the (event type, subject) pair, resolves each rule's
// left-hand operand with a minimal $.<key> lookup, normalizes operands
// numerically (including percent strings), applies the comparison DSL and
// materializes a Violation for every rule whose check is not satisfied.
// Persisting the violations is the caller's concern.
package engine
