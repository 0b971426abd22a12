package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"fundops/api/internal/auth"
	"fundops/api/internal/export"
	"fundops/api/internal/reconcile"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var (
		domainErr     *DomainError
		validationErr *reconcile.ValidationError
		authzErr      *reconcile.AuthorizationError
		datastoreErr  *reconcile.DatastoreError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, nil
	case errors.As(err, &authzErr):
		return http.StatusForbidden, "FORBIDDEN", authzErr.Error(), map[string]any{"company_id": authzErr.CompanyID}
	case errors.As(err, &datastoreErr):
		return http.StatusInternalServerError, "DATASTORE_ERROR", datastoreErr.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "VALIDATION_ERROR", "format must be one of html, csv, pdf", nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil
	case errors.Is(err, export.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Report archive is not configured", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	default:
		return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
	}
}
