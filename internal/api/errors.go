package api

import (
	"context"
	"errors"
	"net/http"

	"roombook/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	internalErrorMessage    = "internal error"
	unavailableErrorMessage = "service temporarily unavailable, retry"
)

// httpStatus maps a service error to its HTTP status code.
func httpStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict, domain.KindAlreadyInState, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode maps a service error to its gRPC status code.
func grpcCode(err error) codes.Code {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return codes.InvalidArgument
	case domain.KindConflict:
		return codes.AlreadyExists
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindAlreadyInState, domain.KindInvalidTransition:
		return codes.FailedPrecondition
	case domain.KindTransient:
		return codes.Unavailable
	case domain.KindRateLimited:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// errorMessage hides store and internal failures from clients.
func errorMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindInternal:
		return internalErrorMessage
	case domain.KindTransient:
		return unavailableErrorMessage
	default:
		return err.Error()
	}
}

// serverFault reports errors that are logged rather than shown.
func serverFault(err error) bool {
	kind := domain.KindOf(err)
	return kind == domain.KindInternal || kind == domain.KindTransient
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(grpcCode(err), errorMessage(err))
}

// fieldErrors extracts per-field problems from a validation error.
func fieldErrors(err error) map[string]string {
	var v *domain.ValidationError
	if errors.As(err, &v) && v.HasErrors() {
		return v.FieldErrors
	}
	return nil
}
