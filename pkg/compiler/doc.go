// Package compiler maps normalized clause frames to executable policy
// rules. The mapping is a fixed heuristic expressed as ordered keyword
// tables (attribute to payload path, obligation/attribute to trigger
// events) plus a pluggable severity classifier; no model inference is
// involved, so compiling the same frame twice always yields the same rule.
package compiler
