package handler

import (
	"encoding/json"
	"net/http"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout and synchronous payment confirmation.
type CheckoutHandler struct {
	checkout   service.CheckoutService
	reconciler service.PaymentReconciler
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService, reconciler service.PaymentReconciler, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   checkout,
		reconciler: reconciler,
		validate:   newValidator(),
		logger:     logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /checkout requests.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", nil, h.logger)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, r, model.ErrCodeValidation, err, h.logger)
		return
	}

	resp, err := h.checkout.Checkout(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Confirm handles POST /checkout/confirm requests.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", nil, h.logger)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, r, model.ErrCodeValidation, err, h.logger)
		return
	}

	result, err := h.reconciler.Confirm(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
