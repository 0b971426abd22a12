package reconcile

import "fmt"

// Per-row reasons reported by Apply when the conditional write affects no row.
const (
	ReasonNotFound      = "not found"
	ReasonAlreadyLinked = "already has client_company_id set, use force=true to overwrite"
)

// ValidationError rejects a malformed request before any work is done.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// AuthorizationError rejects a request because the caller lacks access to
// CompanyID. Apply returns it before any row is written.
type AuthorizationError struct {
	CompanyID string
}

func (e *AuthorizationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("not authorized for company %s", e.CompanyID)
}

// DatastoreError wraps a read or authorization lookup failure.
type DatastoreError struct {
	Op  string
	Err error
}

func (e *DatastoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DatastoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func validationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
