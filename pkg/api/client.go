// Package api provides a client for the statistics portal's public API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/statbank/pkg/catalog"
	"github.com/leapstack-labs/statbank/pkg/core"
	"github.com/leapstack-labs/statbank/pkg/frame"
	"github.com/leapstack-labs/statbank/pkg/query"
)

// DefaultBaseURL is the API root.
const DefaultBaseURL = "https://api.statbank.dk/v1"

// DefaultTimeout is the maximum time to wait for a response.
const DefaultTimeout = 60 * time.Second

// Endpoint names, relative to the base URL.
const (
	EndpointSubjects  = "subjects"
	EndpointTableInfo = "tableinfo"
	EndpointData      = "data"
)

// maxErrorBody bounds how much of a failed response is kept. Longer bodies
// are cut and flagged as truncated.
const maxErrorBody = 4096

// Client provides access to the subjects, tableinfo and data endpoints.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLanguage sets the response language ("da" or "en").
// An empty language leaves the portal default.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithTimeout sets the HTTP timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client's logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

type subjectsRequest struct {
	Recursive     bool   `json:"recursive"`
	IncludeTables bool   `json:"includeTables"`
	Format        string `json:"format"`
}

type tableInfoRequest struct {
	Table  string `json:"table"`
	Format string `json:"format"`
}

// SubjectsRaw fetches the full subjects tree, with tables, as returned.
func (c *Client) SubjectsRaw(ctx context.Context) ([]byte, error) {
	return c.fetch(ctx, EndpointSubjects, subjectsRequest{Recursive: true, IncludeTables: true, Format: "JSON"})
}

// Subjects fetches and decodes the full subjects tree.
func (c *Client) Subjects(ctx context.Context) ([]core.Subject, error) {
	body, err := c.SubjectsRaw(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Decode(body)
}

// Catalog fetches the subjects tree and normalizes it.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	body, err := c.SubjectsRaw(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.NormalizeJSON(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("normalized catalog",
		"categories", len(cat.Categories),
		"tables", len(cat.Tables),
		"variables", len(cat.Variables))
	return cat, nil
}

// TableInfo fetches one table's metadata.
func (c *Client) TableInfo(ctx context.Context, tableID string) (*core.TableInfo, error) {
	if tableID == "" {
		return nil, fmt.Errorf("table id is required")
	}
	body, err := c.fetch(ctx, EndpointTableInfo, tableInfoRequest{Table: tableID, Format: "JSON"})
	if err != nil {
		return nil, err
	}

	var info core.TableInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata of %s: %w", tableID, err)
	}
	if info.ID == "" {
		info.ID = tableID
	}
	return &info, nil
}

// NewBuilder fetches a table's metadata and creates a query builder for it.
func (c *Client) NewBuilder(ctx context.Context, tableID string, opts ...query.Option) (*query.Builder, error) {
	info, err := c.TableInfo(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return query.NewBuilder(tableID, info, opts...)
}

// Data runs an extraction and parses the delimited result.
// Only CSV and BULK requests can be parsed; use DataTo for other formats.
func (c *Client) Data(ctx context.Context, req *query.Request) (*frame.Frame, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if !req.Format.Delimited() {
		return nil, fmt.Errorf("format %s is not tabular; use DataTo to save it", req.Format)
	}

	resp, err := c.send(ctx, EndpointData, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	f, err := frame.Parse(resp.Body, frame.DefaultDelimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", req.Table, err)
	}
	c.logger.Debug("parsed extraction", "table", req.Table, "rows", f.Len(), "columns", len(f.Columns))
	return f, nil
}

// DataTo runs an extraction and copies the raw body to w.
// It returns the number of bytes written.
func (c *Client) DataTo(ctx context.Context, req *query.Request, w io.Writer) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("request is required")
	}
	resp, err := c.send(ctx, EndpointData, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to stream %s data: %w", req.Table, err)
	}
	return n, nil
}

// fetch sends a request and reads the whole response body.
func (c *Client) fetch(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	resp, err := c.send(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	return body, nil
}

// send posts payload as JSON. Non-200 responses are returned as
// *RemoteRequestFailedError with the body already consumed.
func (c *Client) send(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	target, err := c.endpointURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With("endpoint", endpoint, "request_id", requestID)
	log.Debug("calling portal", "url", target, "bytes", len(body))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		truncated := len(msg) > maxErrorBody
		if truncated {
			msg = msg[:maxErrorBody]
		}
		log.Error("portal returned error", "status", resp.StatusCode, "body", string(msg), "truncated", truncated)
		return nil, &RemoteRequestFailedError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(msg),
			Truncated:  truncated,
		}
	}

	log.Debug("portal responded", "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// endpointURL joins the endpoint to the base URL and adds the language.
func (c *Client) endpointURL(endpoint string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, endpoint)
	if c.language != "" {
		q := u.Query()
		q.Set("lang", c.language)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
