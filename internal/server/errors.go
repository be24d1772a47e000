package server

import (
	"errors"
	"net/http"

	"github.com/cbout22/policygate/internal/policy"
	"github.com/cbout22/policygate/internal/repository"
)

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	var (
		syncErr *repository.SyncError
		refErr  *policy.ReferenceError
		valErr  *policy.ValidationError
	)
	switch {
	case errors.Is(err, repository.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrPathTraversal):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound), errors.As(err, &refErr):
		return http.StatusNotFound
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorKind names the error for API clients.
func errorKind(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid_path"
	case http.StatusForbidden:
		return "path_traversal"
	case http.StatusNotFound:
		var refErr *policy.ReferenceError
		if errors.As(err, &refErr) {
			return "unknown_alias"
		}
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "router_validation"
	case http.StatusBadGateway:
		return "sync_failed"
	default:
		return "internal"
	}
}
