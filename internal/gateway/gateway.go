// Package gateway is the client for the card payment gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hardware-checkout/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// CreateRequest opens a transaction.
type CreateRequest struct {
	Amount    int64
	BuyOrder  string
	SessionID string
	ReturnURL string
}

// Transaction is an opened transaction waiting for the buyer.
type Transaction struct {
	Token       string
	RedirectURL string
	Raw         json.RawMessage
}

// ConfirmStatus classifies a confirmation attempt.
type ConfirmStatus string

const (
	ConfirmApproved         ConfirmStatus = "APPROVED"
	ConfirmAlreadyProcessed ConfirmStatus = "ALREADY_PROCESSED"
	ConfirmRejected         ConfirmStatus = "REJECTED"
	ConfirmTransientError   ConfirmStatus = "TRANSIENT_ERROR"
)

// Confirmation is the outcome of ConfirmTransaction. Err is set only for
// ConfirmTransientError.
type Confirmation struct {
	Status        ConfirmStatus
	GatewayStatus model.GatewayStatus
	TransactionID string
	Raw           json.RawMessage
	Err           error
}

// StatusReport is the gateway's current view of a transaction.
type StatusReport struct {
	Status        model.GatewayStatus
	TransactionID string
	Raw           json.RawMessage
}

// Client is the payment gateway.
type Client interface {
	CreateTransaction(ctx context.Context, req CreateRequest) (*Transaction, error)
	ConfirmTransaction(ctx context.Context, token string) Confirmation
	TransactionStatus(ctx context.Context, token string) (*StatusReport, error)
}

// Config configures the HTTP client.
type Config struct {
	BaseURL      string
	CommerceCode string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
}

// ErrUnavailable wraps failures worth retrying later: network errors, 5xx
// responses, timeouts and rate limiting.
var ErrUnavailable = errors.New("payment gateway unavailable")

// ErrNoVerdict is returned when the gateway answered without deciding the
// transaction: an unknown or still pending status, or a client error that
// says nothing about the buyer's card.
var ErrNoVerdict = errors.New("gateway returned no verdict for transaction")

// APIError is a non-retryable 4xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

type httpClient struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates an HTTP gateway client.
func NewClient(cfg Config, logger zerolog.Logger) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	return &httpClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "gateway").Logger(),
	}
}

type createBody struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type transactionResponse struct {
	Status        string `json:"status"`
	ResponseCode  *int   `json:"response_code"`
	TransactionID string `json:"transaction_id"`
	BuyOrder      string `json:"buy_order"`
	Amount        int64  `json:"amount"`
}

type errorBody struct {
	ErrorMessage string `json:"error_message"`
}

// CreateTransaction opens a transaction. It is not retried, a duplicate
// buy order would be rejected by the gateway anyway.
func (c *httpClient) CreateTransaction(ctx context.Context, req CreateRequest) (*Transaction, error) {
	body, err := json.Marshal(createBody{
		BuyOrder:  req.BuyOrder,
		SessionID: req.SessionID,
		Amount:    req.Amount,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/transactions", body)
	if err != nil {
		c.logger.Error().Err(err).Str("buy_order", req.BuyOrder).Msg("failed to create transaction")
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid create transaction response: %w", err)
	}
	if out.Token == "" || out.URL == "" {
		return nil, fmt.Errorf("invalid create transaction response: missing token or url")
	}

	c.logger.Info().
		Str("buy_order", req.BuyOrder).
		Int64("amount", req.Amount).
		Msg("transaction created")

	return &Transaction{
		Token:       out.Token,
		RedirectURL: out.URL + "?token_ws=" + url.QueryEscape(out.Token),
		Raw:         raw,
	}, nil
}

// ConfirmTransaction commits the transaction after the buyer returns.
// Network failures and 5xx responses are retried with backoff.
func (c *httpClient) ConfirmTransaction(ctx context.Context, token string) Confirmation {
	var raw []byte
	op := func() error {
		var err error
		raw, err = c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(token), nil)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.RetryNotify(op, c.policy(ctx), c.retryLogger("confirm")); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusConflict, http.StatusUnprocessableEntity:
				c.logger.Info().Int("status", apiErr.StatusCode).Msg("transaction already processed at gateway")
				return Confirmation{Status: ConfirmAlreadyProcessed}
			}
			// auth, lookup and request errors are not a decision on the payment
			c.logger.Error().Err(err).Msg("transaction confirmation refused by gateway")
			return Confirmation{Status: ConfirmTransientError, Err: fmt.Errorf("%w: %v", ErrNoVerdict, err)}
		}
		c.logger.Error().Err(err).Msg("transaction confirmation failed")
		return Confirmation{Status: ConfirmTransientError, Err: err}
	}

	var out transactionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Confirmation{Status: ConfirmTransientError, Err: fmt.Errorf("invalid confirm response: %w", err)}
	}

	status, known := statusFrom(out)
	confirmation := Confirmation{
		GatewayStatus: status,
		TransactionID: out.TransactionID,
		Raw:           raw,
	}
	switch {
	case !known:
		c.logger.Warn().Str("status", out.Status).Msg("unrecognised transaction status on confirm")
		return Confirmation{Status: ConfirmTransientError, Err: fmt.Errorf("%w: status %q", ErrNoVerdict, out.Status)}
	case status == model.GatewayStatusApproved:
		confirmation.Status = ConfirmApproved
	case status == model.GatewayStatusPending:
		return Confirmation{Status: ConfirmTransientError, Err: fmt.Errorf("%w: status %q", ErrNoVerdict, out.Status)}
	default:
		confirmation.Status = ConfirmRejected
	}
	return confirmation
}

// TransactionStatus reads the authoritative state of a transaction.
func (c *httpClient) TransactionStatus(ctx context.Context, token string) (*StatusReport, error) {
	var raw []byte
	op := func() error {
		var err error
		raw, err = c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(token), nil)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.RetryNotify(op, c.policy(ctx), c.retryLogger("status")); err != nil {
		return nil, fmt.Errorf("failed to fetch transaction status: %w", err)
	}

	var out transactionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}

	status, known := statusFrom(out)
	if !known {
		c.logger.Warn().Str("status", out.Status).Msg("unrecognised transaction status")
		return nil, fmt.Errorf("%w: status %q", ErrNoVerdict, out.Status)
	}

	return &StatusReport{
		Status:        status,
		TransactionID: out.TransactionID,
		Raw:           raw,
	}, nil
}

// statusFrom maps the gateway's transaction status to a GatewayStatus.
// known is false for statuses this client does not understand.
func statusFrom(r transactionResponse) (status model.GatewayStatus, known bool) {
	switch r.Status {
	case "AUTHORIZED":
		if r.ResponseCode == nil || *r.ResponseCode == 0 {
			return model.GatewayStatusApproved, true
		}
		return model.GatewayStatusRejected, true
	case "INITIALIZED":
		return model.GatewayStatusPending, true
	case "NULLIFIED", "REVERSED":
		return model.GatewayStatusCancelled, true
	case "EXPIRED":
		return model.GatewayStatusExpired, true
	case "FAILED":
		return model.GatewayStatusRejected, true
	}
	return "", false
}

func (c *httpClient) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxElapsedTime = c.cfg.Timeout
	var b backoff.BackOff = exp
	if c.cfg.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

func (c *httpClient) retryLogger(op string) backoff.Notify {
	return func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("operation", op).Dur("retry_in", wait).Msg("gateway call failed, retrying")
	}
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Commerce-Code", c.cfg.CommerceCode)
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var e errorBody
		_ = json.Unmarshal(payload, &e)
		if e.ErrorMessage == "" {
			e.ErrorMessage = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: e.ErrorMessage}
	}

	return payload, nil
}
