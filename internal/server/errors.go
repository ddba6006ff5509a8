package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	quotadomain "github.com/ondasul/airtrack/internal/quota/domain"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"gorm.io/gorm"
)

var errInvalidRequest = errors.New("invalid_request")

// ValidationError carries a field-level message back to the caller.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates every field violation in one response.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Error()
}

func newValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

func invalidRequestError() error {
	return errInvalidRequest
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// AbortWithError records the error on the gin context and stops the chain.
// The response body is rendered by ErrorHandlingMiddleware.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		lastErr := c.Errors.Last()
		if lastErr == nil || c.Writer.Written() {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.JSON(status, errorResponse{Error: payload})
	}
}

func mapError(err error) (int, errorPayload) {
	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "request validation failed",
			Errors:  validationErrs,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, reconciledomain.ErrLockContention):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "unavailable",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, errInvalidRequest) ||
		errors.Is(err, clientdomain.ErrInvalidName) ||
		errors.Is(err, catalogdomain.ErrInvalidFileName) ||
		errors.Is(err, contractdomain.ErrInvalidPeriod) ||
		errors.Is(err, contractdomain.ErrInvalidFrequency) ||
		errors.Is(err, contractdomain.ErrInvalidDynamic) ||
		errors.Is(err, contractdomain.ErrInvalidStatus) ||
		errors.Is(err, contractdomain.ErrInvalidQuotaLine) ||
		errors.Is(err, contractdomain.ErrInvalidGoal) ||
		errors.Is(err, contractdomain.ErrFileNotOwned) ||
		errors.Is(err, playbackdomain.ErrInvalidFileName) ||
		errors.Is(err, playbackdomain.ErrInvalidAiredAt) ||
		errors.Is(err, playbackdomain.ErrInvalidBatch) ||
		errors.Is(err, quotadomain.ErrInvalidQuantity) ||
		errors.Is(err, reconciledomain.ErrInvalidWindow) ||
		errors.Is(err, invoicingdomain.ErrInvalidCompetency) ||
		errors.Is(err, invoicingdomain.ErrCompetencyRequired) ||
		errors.Is(err, invoicingdomain.ErrCompetencyNotAllowed) ||
		errors.Is(err, invoicingdomain.ErrCompetencyOutsidePeriod)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, clientdomain.ErrClientNotFound) ||
		errors.Is(err, catalogdomain.ErrFileNotFound) ||
		errors.Is(err, catalogdomain.ErrFileNotRegistered) ||
		errors.Is(err, contractdomain.ErrContractNotFound) ||
		errors.Is(err, contractdomain.ErrItemNotFound) ||
		errors.Is(err, contractdomain.ErrGoalNotFound) ||
		errors.Is(err, playbackdomain.ErrEventNotFound) ||
		errors.Is(err, invoicingdomain.ErrInvoiceNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, clientdomain.ErrDuplicateTaxID) ||
		errors.Is(err, catalogdomain.ErrDuplicateFileName) ||
		errors.Is(err, contractdomain.ErrDuplicateGoal) ||
		errors.Is(err, invoicingdomain.ErrDuplicateCompetency) ||
		errors.Is(err, invoicingdomain.ErrInvalidTransition)
}

// classifyErrorForLog buckets errors for the request logger.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}

	_, payload := mapError(err)
	return payload.Type, err.Error()
}
