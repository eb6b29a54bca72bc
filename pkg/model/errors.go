package model

import "fmt"

// CompilationError reports that one clause could not become a rule. The
// batch continues past it; callers decide whether to skip or halt.
type CompilationError struct {
	ClauseID string // May be empty when the clause had no id
	Reason   string
	Cause    error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	if e.ClauseID != "" {
		return fmt.Sprintf("compilation error [clause=%s]: %s", e.ClauseID, e.Reason)
	}
	return fmt.Sprintf("compilation error: %s", e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// NewCompilationError creates a new CompilationError.
func NewCompilationError(clauseID, reason string) *CompilationError {
	return &CompilationError{ClauseID: clauseID, Reason: reason}
}

// ValidationInputError reports that a fact event does not conform to the
// required shape. The whole validation call is rejected; no partial
// evaluation takes place.
type ValidationInputError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationInputError) Error() string {
	return fmt.Sprintf("invalid fact event: %s", e.Reason)
}

// NewValidationInputError creates a new ValidationInputError.
func NewValidationInputError(reason string) *ValidationInputError {
	return &ValidationInputError{Reason: reason}
}

// StoreError reports that the rule bundle or its index could not be read or
// written. It is fatal for the operation and must never corrupt the previous
// generation on disk.
type StoreError struct {
	Artifact  string // "bundle" or "index"
	Operation string // "read", "write", "rename", ...
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [artifact=%s, operation=%s]: %v", e.Artifact, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError.
func NewStoreError(artifact, operation string, cause error) *StoreError {
	return &StoreError{Artifact: artifact, Operation: operation, Cause: cause}
}

// LedgerError reports a failure against the violation ledger or its status
// overlay.
type LedgerError struct {
	Operation string // "append", "snapshot", "status", ...
	Cause     error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(operation string, cause error) *LedgerError {
	return &LedgerError{Operation: operation, Cause: cause}
}

// ArchiveError reports a failure in the queryable violation archive.
type ArchiveError struct {
	Backend   string // "sqlite", "memory"
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(backend, operation string, cause error) *ArchiveError {
	return &ArchiveError{Backend: backend, Operation: operation, Cause: cause}
}
