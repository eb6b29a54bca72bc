// Package model defines the entities shared across the warden pipeline:
// clause frames extracted from contracts, the policy rules compiled from
// them, the fact events checked against those rules, and the violations
// produced when a check fails. It also carries the error taxonomy used by
// every component.
//
// All entities are plain structs with JSON tags matching the wire shapes
// exchanged with the extraction, ingestion and explanation collaborators.
package model
