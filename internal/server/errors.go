package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appointmentdomain "github.com/helprs/fieldpay/internal/appointment/domain"
	auditdomain "github.com/helprs/fieldpay/internal/audit/domain"
	customerdomain "github.com/helprs/fieldpay/internal/customer/domain"
	"github.com/helprs/fieldpay/internal/fees"
	ledgerdomain "github.com/helprs/fieldpay/internal/ledger/domain"
	payoutdomain "github.com/helprs/fieldpay/internal/payout/domain"
	"github.com/helprs/fieldpay/internal/processor"
	settingsdomain "github.com/helprs/fieldpay/internal/settings/domain"
	timesheetdomain "github.com/helprs/fieldpay/internal/timesheet/domain"
	workerdomain "github.com/helprs/fieldpay/internal/worker/domain"
	workflowdomain "github.com/helprs/fieldpay/internal/workflow/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isStateConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, processor.ErrProcessorFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "processor_failure",
			Message: "payment processor unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, customerdomain.ErrInvalidCompany),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	case errors.Is(err, workerdomain.ErrInvalidCompany),
		errors.Is(err, workerdomain.ErrInvalidName),
		errors.Is(err, workerdomain.ErrInvalidEmail),
		errors.Is(err, workerdomain.ErrInvalidRate),
		errors.Is(err, workerdomain.ErrInvalidPreference),
		errors.Is(err, workerdomain.ErrInvalidID):
		return true
	case errors.Is(err, appointmentdomain.ErrInvalidCompany),
		errors.Is(err, appointmentdomain.ErrInvalidCustomer),
		errors.Is(err, appointmentdomain.ErrInvalidID),
		errors.Is(err, appointmentdomain.ErrInvalidSchedule),
		errors.Is(err, appointmentdomain.ErrInvalidEstimate),
		errors.Is(err, appointmentdomain.ErrInvalidStatus):
		return true
	case errors.Is(err, timesheetdomain.ErrInvalidCompany),
		errors.Is(err, timesheetdomain.ErrInvalidID),
		errors.Is(err, timesheetdomain.ErrInvalidTimeRange),
		errors.Is(err, timesheetdomain.ErrWorkerNotAssigned):
		return true
	case errors.Is(err, ledgerdomain.ErrInvalidCompany),
		errors.Is(err, ledgerdomain.ErrInvalidID),
		errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidFlags),
		errors.Is(err, ledgerdomain.ErrMissingReference),
		errors.Is(err, ledgerdomain.ErrNegativeNet):
		return true
	case errors.Is(err, workflowdomain.ErrInvalidCompany),
		errors.Is(err, workflowdomain.ErrInvalidID),
		errors.Is(err, workflowdomain.ErrInvalidAmount),
		errors.Is(err, workflowdomain.ErrInvalidPaymentMethod),
		errors.Is(err, workflowdomain.ErrNothingToBill):
		return true
	case errors.Is(err, settingsdomain.ErrInvalidCompany),
		errors.Is(err, settingsdomain.ErrInvalidFeeBPS),
		errors.Is(err, settingsdomain.ErrInvalidSchedule):
		return true
	case errors.Is(err, payoutdomain.ErrInvalidCompany),
		errors.Is(err, payoutdomain.ErrInvalidID),
		errors.Is(err, payoutdomain.ErrInvalidTimeRange),
		errors.Is(err, payoutdomain.ErrNoPayableEntries),
		errors.Is(err, payoutdomain.ErrMissingPayoutAccount):
		return true
	case errors.Is(err, auditdomain.ErrInvalidCompany),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	case errors.Is(err, fees.ErrInvalidAmount),
		errors.Is(err, fees.ErrInvalidFeePercentage):
		return true
	default:
		return false
	}
}

// isStateConflictError covers guards where the request is well formed but
// the entity is in the wrong state for the transition.
func isStateConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict):
		return true
	case errors.Is(err, appointmentdomain.ErrInvalidTransition),
		errors.Is(err, appointmentdomain.ErrAlreadySettled):
		return true
	case errors.Is(err, timesheetdomain.ErrAlreadyClockedIn),
		errors.Is(err, timesheetdomain.ErrNotClockedIn),
		errors.Is(err, timesheetdomain.ErrEntryNotEditable):
		return true
	case errors.Is(err, ledgerdomain.ErrInvalidTransition),
		errors.Is(err, ledgerdomain.ErrNotRefundable):
		return true
	case errors.Is(err, workflowdomain.ErrDepositAlreadyPaid),
		errors.Is(err, workflowdomain.ErrAppointmentCancelled),
		errors.Is(err, workflowdomain.ErrNotCompleted),
		errors.Is(err, workflowdomain.ErrNotAwaitingApproval),
		errors.Is(err, workflowdomain.ErrNotApproved),
		errors.Is(err, workflowdomain.ErrCostChanged),
		errors.Is(err, workflowdomain.ErrAlreadySettled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, workerdomain.ErrNotFound),
		errors.Is(err, appointmentdomain.ErrNotFound),
		errors.Is(err, timesheetdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, workflowdomain.ErrNotFound),
		errors.Is(err, payoutdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation", validationErrorCode(err)
	case isStateConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, processor.ErrProcessorFailure):
		return "processor", "processor_failure"
	default:
		return "internal", "internal_error"
	}
}
