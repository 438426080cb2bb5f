// Package carrier talks to the shipping carrier's HTTP API.
//
// CreateShipment never returns an error: every failure, including an
// unknown destination, is reported through Result so callers can record
// the shipment without tracking and carry on.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Destination is where the package goes.
type Destination struct {
	Street  string `json:"street"`
	Number  string `json:"number"`
	Unit    string `json:"unit,omitempty"`
	Commune string `json:"commune"`
	Region  string `json:"region"`
}

// Package describes the parcel.
type Package struct {
	LengthCm    int `json:"lengthCm"`
	WidthCm     int `json:"widthCm"`
	HeightCm    int `json:"heightCm"`
	WeightGrams int `json:"weightGrams"`
}

// Contact is the recipient reachable by the carrier.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Request is a shipment registration.
type Request struct {
	Destination   Destination
	Package       Package
	DeclaredValue int64
	Reference     string
	Contact       Contact
}

// Result is the outcome of a registration.
type Result struct {
	Success        bool
	TrackingNumber string
	Cost           int64
	Error          string
}

func failed(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Client registers shipments with a carrier.
type Client interface {
	CreateShipment(ctx context.Context, req Request) Result
	Name() string
}

// Config configures the HTTP client.
type Config struct {
	Name          string
	BaseURL       string
	APIKey        string
	OriginCommune string
	Timeout       time.Duration
}

type httpClient struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a carrier client. With an empty BaseURL the returned
// client reports every shipment as not registered.
func NewClient(cfg Config, logger zerolog.Logger) Client {
	logger = logger.With().Str("component", "carrier").Str("carrier", cfg.Name).Logger()
	if cfg.BaseURL == "" {
		logger.Warn().Msg("carrier base URL not set, shipments will be recorded without tracking")
		return &disabledClient{name: cfg.Name}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *httpClient) Name() string { return c.cfg.Name }

type coverageResponse struct {
	CountyCode string `json:"countyCode"`
}

type shipmentRequest struct {
	OriginCounty      string      `json:"originCounty"`
	DestinationCounty string      `json:"destinationCounty"`
	Destination       Destination `json:"destination"`
	Package           Package     `json:"package"`
	DeclaredValue     int64       `json:"declaredValue"`
	Reference         string      `json:"reference"`
	Contact           Contact     `json:"contact"`
}

type shipmentResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Cost           int64  `json:"cost"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// CreateShipment resolves the destination commune and registers the shipment.
func (c *httpClient) CreateShipment(ctx context.Context, req Request) Result {
	county, res, ok := c.lookupCounty(ctx, req.Destination.Commune)
	if !ok {
		c.logger.Warn().
			Str("reference", req.Reference).
			Str("commune", req.Destination.Commune).
			Str("error", res.Error).
			Msg("destination lookup failed")
		return res
	}

	origin, res, ok := c.lookupCounty(ctx, c.cfg.OriginCommune)
	if !ok {
		c.logger.Warn().Str("origin", c.cfg.OriginCommune).Str("error", res.Error).Msg("origin lookup failed")
		return res
	}

	body, err := json.Marshal(shipmentRequest{
		OriginCounty:      origin,
		DestinationCounty: county,
		Destination:       req.Destination,
		Package:           req.Package,
		DeclaredValue:     req.DeclaredValue,
		Reference:         req.Reference,
		Contact:           req.Contact,
	})
	if err != nil {
		return failed("failed to encode shipment request: %v", err)
	}

	var out shipmentResponse
	if res, ok := c.do(ctx, http.MethodPost, "/shipments", body, &out); !ok {
		c.logger.Warn().Str("reference", req.Reference).Str("error", res.Error).Msg("shipment registration failed")
		return res
	}

	if out.TrackingNumber == "" {
		return failed("carrier accepted shipment without tracking number")
	}

	c.logger.Info().
		Str("reference", req.Reference).
		Str("tracking_number", out.TrackingNumber).
		Int64("cost", out.Cost).
		Msg("shipment registered")

	return Result{Success: true, TrackingNumber: out.TrackingNumber, Cost: out.Cost}
}

func (c *httpClient) lookupCounty(ctx context.Context, commune string) (string, Result, bool) {
	if commune == "" {
		return "", failed("commune is empty"), false
	}

	var out coverageResponse
	path := "/coverage-areas?commune=" + url.QueryEscape(commune)
	if res, ok := c.do(ctx, http.MethodGet, path, nil, &out); !ok {
		return "", res, false
	}
	if out.CountyCode == "" {
		return "", failed("commune %q is not covered", commune), false
	}
	return out.CountyCode, Result{}, true
}

// do performs one request and decodes a 2xx body into out.
func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) (Result, bool) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return failed("failed to build request: %v", err), false
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return failed("carrier unavailable: %v", err), false
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failed("failed to read carrier response: %v", err), false
	}

	if resp.StatusCode == http.StatusNotFound {
		return failed("not found: %s", path), false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(payload, &e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return failed("carrier returned %d: %s", resp.StatusCode, e.Message), false
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return failed("invalid carrier response: %v", err), false
	}
	return Result{}, true
}

type disabledClient struct {
	name string
}

func (d *disabledClient) Name() string { return d.name }

func (d *disabledClient) CreateShipment(context.Context, Request) Result {
	return failed("carrier not configured")
}

// TruncateReference cuts the reference to the carrier's length limit.
func TruncateReference(ref string, maxLen int) string {
	if maxLen <= 0 {
		return ref
	}
	runes := []rune(ref)
	if len(runes) <= maxLen {
		return ref
	}
	return string(runes[:maxLen])
}
