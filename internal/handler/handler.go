package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"hardware-checkout/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies read by handlers.
const maxBodyBytes = 1 << 20

// newValidator reports field errors using JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response carrying a stable code and the request id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields []string, logger zerolog.Logger) {
	requestID := middleware.GetReqID(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Str("request_id", requestID).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:     code,
		Message:   message,
		Fields:    fields,
		RequestID: requestID,
	})
}

// statusFor maps a domain error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeValidation, model.ErrCodeInvalidJSON, model.ErrCodeEmptyCart,
		model.ErrCodeInvalidAddress, model.ErrCodeInvalidCouponFormat, model.ErrCodeProductNotFound,
		model.ErrCodeInvalidQuantity, model.ErrCodeInvalidWebhook:
		return http.StatusBadRequest
	case model.ErrCodeCustomerNotFound, model.ErrCodeAddressNotFound,
		model.ErrCodePaymentNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodePaymentInitFailed:
		return http.StatusPaymentRequired
	case model.ErrCodeGatewayUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeServiceError translates a service error into a response. Errors that
// are not domain errors are reported as internal without leaking details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if errors.As(err, &de) {
		writeError(w, r, statusFor(de.Code), de.Code, de.Message, de.Fields, logger)
		return
	}
	logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", nil, logger)
}

// writeValidationError reports struct validation failures with their fields.
func writeValidationError(w http.ResponseWriter, r *http.Request, code string, err error, logger zerolog.Logger) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, r, http.StatusBadRequest, code, err.Error(), nil, logger)
		return
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldPath(fe.Namespace()))
	}
	writeError(w, r, http.StatusBadRequest, code, "request validation failed", fields, logger)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
