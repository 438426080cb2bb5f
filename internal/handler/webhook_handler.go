package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"hardware-checkout/internal/model"
	"hardware-checkout/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

// WebhookHandler receives asynchronous gateway notifications.
type WebhookHandler struct {
	reconciler service.PaymentReconciler
	secret     []byte
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewWebhookHandler creates a webhook handler. An empty secret disables
// signature verification.
func NewWebhookHandler(reconciler service.PaymentReconciler, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     []byte(secret),
		validate:   newValidator(),
		logger:     logger.With().Str("handler", "webhook").Logger(),
	}
}

// Sign computes the signature expected for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(r *http.Request, body []byte) bool {
	if len(h.secret) == 0 {
		return true
	}
	got, err := hex.DecodeString(r.Header.Get(SignatureHeader))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Handle handles POST /payments/webhook requests. Deliveries for payments
// that are already terminal are acknowledged with 200 so the gateway stops retrying.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidWebhook, "unreadable body", nil, h.logger)
		return
	}

	if !h.verify(r, body) {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid webhook signature", nil, h.logger)
		return
	}

	var n model.WebhookNotification
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidWebhook, model.ErrInvalidWebhook.Message, nil, h.logger)
		return
	}

	if err := h.validate.Struct(&n); err != nil {
		writeValidationError(w, r, model.ErrCodeInvalidWebhook, err, h.logger)
		return
	}

	result, err := h.reconciler.HandleWebhook(r.Context(), n, json.RawMessage(body))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	h.logger.Info().
		Str("gateway_payment_id", n.GatewayPaymentID).
		Str("status", string(n.Status)).
		Str("outcome", string(result.Outcome)).
		Msg("webhook processed")

	writeJSON(w, http.StatusOK, result)
}
