package hmsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const (
	PaymentsPath      = "/api/payments"
	RegistrationsPath = "/api/registrations"

	DefaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 8 << 20
)

var ErrUnauthorized = errors.New("backend rejected the session token")

// Client reads the signed-in patient's records from the hospital backend.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	// Token returns the bearer token for each request. Requests go out unauthenticated when it is nil or empty.
	Token func() string
	// OnUnauthorized runs after a 401 response, before ErrUnauthorized is returned.
	OnUnauthorized func(ctx context.Context)
	// Location is used for timestamps without a zone. Defaults to time.Local.
	Location *time.Location
}

var _ ports.PatientAPI = (*Client)(nil)

type paymentResponse struct {
	PaymentID *int64  `json:"payment_id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Time      string  `json:"time"`
	Status    string  `json:"status"`
}

type registrationResponse struct {
	RegID     *int64 `json:"reg_id"`
	VisitDate string `json:"visit_date"`
	RegDate   string `json:"reg_date"`
	Status    string `json:"status"`
}

// ListPayments drops entries that do not decode or carry no numeric payment_id.
func (c Client) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	items, err := c.getList(ctx, PaymentsPath)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		var entry paymentResponse
		if err := json.Unmarshal(item, &entry); err != nil || entry.PaymentID == nil {
			continue
		}
		payments = append(payments, domain.Payment{
			ID:     *entry.PaymentID,
			Type:   entry.Type,
			Amount: entry.Amount,
			Time:   parseTimestamp(entry.Time, c.location()),
			Status: domain.PaymentStatus(entry.Status),
		})
	}

	return payments, nil
}

// ListRegistrations drops entries that do not decode or carry no numeric reg_id.
func (c Client) ListRegistrations(ctx context.Context) ([]domain.Registration, error) {
	items, err := c.getList(ctx, RegistrationsPath)
	if err != nil {
		return nil, err
	}

	registrations := make([]domain.Registration, 0, len(items))
	for _, item := range items {
		var entry registrationResponse
		if err := json.Unmarshal(item, &entry); err != nil || entry.RegID == nil {
			continue
		}
		visitDate := entry.VisitDate
		if visitDate == "" {
			visitDate = entry.RegDate
		}
		registrations = append(registrations, domain.Registration{
			ID:        *entry.RegID,
			VisitDate: visitDate,
			Status:    domain.RegistrationStatus(entry.Status),
		})
	}

	return registrations, nil
}

func (c Client) getList(ctx context.Context, path string) ([]json.RawMessage, error) {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return nil, err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != nil {
		if token := strings.TrimSpace(c.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized(ctx)
		}
		return nil, fmt.Errorf("get %s: %w", path, ErrUnauthorized)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get %s: %s", path, decodeErrorDetail(resp))
	}

	var items []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	return items, nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

// decodeErrorDetail reads FastAPI's {"detail": "..."} error body when present.
func decodeErrorDetail(resp *http.Response) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil || body.Detail == nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if detail, ok := body.Detail.(string); ok && detail != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, detail)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// parseTimestamp returns the zero time for empty or unrecognised values so they sort last.
func parseTimestamp(raw string, location *time.Location) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed
	}
	for _, layout := range naiveTimestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, location); err == nil {
			return parsed
		}
	}

	return time.Time{}
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}

	return endpoint.String(), nil
}
