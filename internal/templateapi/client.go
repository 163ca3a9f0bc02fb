// Package templateapi is a template.Repository backed by the remote
// template REST service.
//
// Every call issues exactly one request. Failed requests are returned to
// the caller and never retried.
package templateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/template"
)

// OwnerHeader carries the caller's owner id on create requests and owner
// listings.
const OwnerHeader = "X-Owner-ID"

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 4096

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("template api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("template api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap maps 404 to template.ErrNotFound and 403 to template.ErrForbidden.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return template.ErrNotFound
	case http.StatusForbidden:
		return template.ErrForbidden
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to the template service at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Limiter, when set, paces outgoing requests.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// New creates a client with a 30-second timeout. rps <= 0 disables pacing.
func New(baseURL string, rps float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Logger:  logger,
	}
	if rps > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// Create posts a new template.
func (c *Client) Create(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	var out ir.TemplateRecord
	hdr := http.Header{}
	if rec.OwnerID != "" {
		hdr.Set(OwnerHeader, rec.OwnerID)
	}
	err := c.do(ctx, http.MethodPost, "/templates", hdr, template.Payload(rec), &out)
	return out, err
}

// Update replaces the editable fields of template rec.ID.
func (c *Client) Update(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	var out ir.TemplateRecord
	err := c.do(ctx, http.MethodPut, "/templates/"+url.PathEscape(rec.ID), nil, template.Payload(rec), &out)
	return out, err
}

// Delete removes a template.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/templates/"+url.PathEscape(id), nil, nil, nil)
}

// Get fetches one template.
func (c *Client) Get(ctx context.Context, id string) (ir.TemplateRecord, error) {
	var out ir.TemplateRecord
	err := c.do(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// ListByOwner fetches the templates of ownerID.
func (c *Client) ListByOwner(ctx context.Context, ownerID string) ([]ir.TemplateRecord, error) {
	var out []ir.TemplateRecord
	hdr := http.Header{}
	hdr.Set(OwnerHeader, ownerID)
	err := c.do(ctx, http.MethodGet, "/templates?owner="+url.QueryEscape(ownerID), hdr, nil, &out)
	return out, err
}

// ListSystem fetches the system templates.
func (c *Client) ListSystem(ctx context.Context) ([]ir.TemplateRecord, error) {
	var out []ir.TemplateRecord
	err := c.do(ctx, http.MethodGet, "/templates/system", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, body, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("template api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logger.Debug("template api request", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(msg)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} bodies and
// falls back to the trimmed text.
func errorMessage(body []byte) string {
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &obj) == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(body))
}
