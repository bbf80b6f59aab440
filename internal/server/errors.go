package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/pointagehq/pointage/internal/account/domain"
	"github.com/pointagehq/pointage/internal/authorization"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	pointagedomain "github.com/pointagehq/pointage/internal/pointage/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// ValidationError reports a single bad request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Code }

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "malformed request body")
}

// AbortWithError maps domain errors onto HTTP statuses and writes a uniform
// error body.
func AbortWithError(c *gin.Context, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   validation.Code,
			"field":   validation.Field,
			"message": validation.Message,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, organizationdomain.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, pointagedomain.ErrAccessDenied),
		errors.Is(err, pointagedomain.ErrZoneAccessDenied),
		errors.Is(err, pointagedomain.ErrAccountDeactivated),
		errors.Is(err, organizationdomain.ErrDeactivated),
		errors.Is(err, topodomain.ErrReaderBlocked),
		errors.Is(err, badgedomain.ErrNoActiveBadge):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound),
		errors.Is(err, badgedomain.ErrBadgeNotFound),
		errors.Is(err, badgedomain.ErrUserNotFound),
		errors.Is(err, badgedomain.ErrAssignmentNotFound),
		errors.Is(err, topodomain.ErrReaderNotFound),
		errors.Is(err, topodomain.ErrZoneNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrUserNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pointagedomain.ErrCooldownActive),
		errors.Is(err, badgedomain.ErrAlreadyAssigned),
		errors.Is(err, organizationdomain.ErrEmailTaken),
		errors.Is(err, accountdomain.ErrAlreadyDeactivated),
		errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		status = http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, badgedomain.ErrInvalidSerial),
		errors.Is(err, badgedomain.ErrInvalidUser),
		errors.Is(err, badgedomain.ErrInvalidWindow),
		errors.Is(err, topodomain.ErrInvalidName),
		errors.Is(err, topodomain.ErrInvalidRef),
		errors.Is(err, topodomain.ErrNoZones),
		errors.Is(err, topodomain.ErrNoPrincipalZone),
		errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidEmail),
		errors.Is(err, organizationdomain.ErrInvalidTimezone),
		errors.Is(err, organizationdomain.ErrInvalidRole),
		errors.Is(err, accountdomain.ErrInvalidDisplayName),
		errors.Is(err, accountdomain.ErrInvalidPassword),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidCurrency),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, pointagedomain.ErrInvalidReader),
		errors.Is(err, worktimedomain.ErrInvalidRange),
		errors.Is(err, worktimedomain.ErrInvalidUser):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": "internal_error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
