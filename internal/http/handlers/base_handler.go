// README: Base handler utilities (JSON helpers, binding, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"masar/internal/modules/assistant"
	"masar/internal/modules/parcel"
	"masar/internal/modules/payment"
	"masar/internal/modules/pricing"
	"masar/internal/modules/profile"
	"masar/internal/modules/tariff"
	"masar/internal/types"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var registerOnce sync.Once

// RegisterValidation makes binding errors report JSON field names.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeFieldErrors(c *gin.Context, fields types.FieldErrors) {
	writeJSON(c, http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fields})
}

// bindJSON decodes the body into v and answers 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := types.FieldErrors{}
		for _, fe := range verrs {
			fields.Add(fe.Field(), describe(fe))
		}
		writeFieldErrors(c, fields)
		return false
	}
	writeError(c, http.StatusBadRequest, "invalid json")
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "is too long"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "is not a valid address"
	default:
		return "is invalid"
	}
}

// writeServiceError maps module errors onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	var fields types.FieldErrors
	switch {
	case errors.As(err, &fields):
		writeFieldErrors(c, fields)
	case errors.Is(err, tariff.ErrNoPricingRuleFound):
		writeError(c, http.StatusUnprocessableEntity, "cannot price this route")
	case errors.Is(err, tariff.ErrInvalidRule),
		errors.Is(err, tariff.ErrOverlappingRules),
		errors.Is(err, pricing.ErrInvalidWeight),
		errors.Is(err, pricing.ErrBadRequest),
		errors.Is(err, assistant.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, parcel.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, payment.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, parcel.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, payment.ErrInvalidSignature):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, parcel.ErrPaymentRequired):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, parcel.ErrInvalidState),
		errors.Is(err, parcel.ErrNotAvailable),
		errors.Is(err, parcel.ErrAlreadyRated),
		errors.Is(err, parcel.ErrNotAccepting),
		errors.Is(err, parcel.ErrConflict),
		errors.Is(err, payment.ErrPaymentsDisabled),
		errors.Is(err, payment.ErrAmountMismatch):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, assistant.ErrInsufficientTokens):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeError(c, http.StatusBadGateway, "payment gateway unavailable")
	case errors.Is(err, assistant.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "assistant unavailable")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
