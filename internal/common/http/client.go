// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/models"
)

const adminPasswordHeader = "X-Admin-Password"

// Client talks to a running lead server over its JSON API.
type Client struct {
	baseURL       string
	adminPassword string
	httpClient    *http.Client
}

type Option func(*Client)

// WithAdminPassword sends the admin password with every request.
func WithAdminPassword(password string) Option {
	return func(c *Client) { c.adminPassword = password }
}

// WithHTTPClient replaces the underlying client. Its timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SnapshotList is the catalog listing as served by the API.
type SnapshotList struct {
	Snapshots []models.Snapshot `json:"snapshots"`
	Skipped   int               `json:"skipped"`
}

type createLeadResponse struct {
	OK   bool        `json:"ok"`
	Lead models.Lead `json:"lead"`
}

type errorBody struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

func (c *Client) CreateLead(ctx context.Context, candidate models.LeadFields) (models.Lead, error) {
	var out createLeadResponse
	if err := c.do(ctx, http.MethodPost, "/api/leads", candidate, &out); err != nil {
		return models.Lead{}, err
	}
	return out.Lead, nil
}

func (c *Client) ListLeads(ctx context.Context) ([]models.Lead, error) {
	var out []models.Lead
	err := c.do(ctx, http.MethodGet, "/api/leads-list", nil, &out)
	return out, err
}

func (c *Client) ListSnapshots(ctx context.Context) (SnapshotList, error) {
	var out SnapshotList
	err := c.do(ctx, http.MethodGet, "/api/snapshots", nil, &out)
	return out, err
}

func (c *Client) InstallSnapshot(ctx context.Context, id string) (models.InstallSummary, error) {
	var out models.InstallSummary
	err := c.do(ctx, http.MethodPost, "/api/snapshots/"+url.PathEscape(id)+"/install", nil, &out)
	return out, err
}

func (c *Client) ListInstalled(ctx context.Context) ([]models.InstalledSnapshotRecord, error) {
	var out []models.InstalledSnapshotRecord
	err := c.do(ctx, http.MethodGet, "/api/snapshots/installed", nil, &out)
	return out, err
}

// do sends one request. Error responses are decoded back into a StandardError
// carrying the server's code, so errors.Is works across the wire.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminPassword != "" {
		req.Header.Set(adminPasswordHeader, c.adminPassword)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Code == "" {
			return apperrors.New(apperrors.ErrCodeInternal, fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode))
		}
		return apperrors.New(eb.Code, eb.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
