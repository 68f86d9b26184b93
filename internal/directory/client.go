// Package directory talks to the remote tabular data source holding the
// system of record for entities, activities and access requests. The wire
// format follows the Airtable REST convention: records are an opaque id plus
// a loosely typed field map; queries are formula filters with an optional
// sort spec.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bondaccess.org/internal/config"
	"bondaccess.org/internal/obs"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Tables in the remote base.
const (
	TableEntity        = "Entity"
	TableAccessRequest = "AccessRequest"
	TableActivity      = "Activity"
	TableDocGen        = "DocGen"
)

var (
	// ErrConfigMissing signals unset API credentials; callers show a distinct
	// operator-facing message for this case.
	ErrConfigMissing = errors.New("directory: api credentials are not configured")
	// ErrUnavailable covers transport failures, timeouts and non-2xx replies.
	// Status and body detail ride along in the wrapped message for the logs
	// and must never reach end users verbatim.
	ErrUnavailable = errors.New("directory: remote unavailable")
)

// Record is one remote row.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// SortSpec orders list results on the remote side.
type SortSpec struct {
	Field     string
	Direction string // "asc" or "desc"
}

// ListOptions narrows a list call.
type ListOptions struct {
	FilterFormula string
	MaxRecords    int
	Sort          []SortSpec
}

// Client is an HTTP client for the remote base. Each method performs exactly
// one round trip; retry policy belongs to the caller-facing layer.
type Client struct {
	apiKey      string
	baseID      string
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	pingTimeout time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a client from explicit configuration.
func NewClient(cfg config.DirectoryConfig, opts ...Option) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 10 * time.Second
	}
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseID:      strings.TrimSpace(cfg.BaseID),
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		timeout:     timeout,
		pingTimeout: pingTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) configured() bool {
	return c.apiKey != "" && c.baseID != ""
}

// ListRecords queries a table with the given filter, limit and sort.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	if !c.configured() {
		return nil, ErrConfigMissing
	}
	q := url.Values{}
	if opts.FilterFormula != "" {
		q.Set("filterByFormula", opts.FilterFormula)
	}
	if opts.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	for i, s := range opts.Sort {
		q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		q.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
	}
	endpoint := c.tableURL(table)
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var payload struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, table, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Records, nil
}

// CreateRecord inserts one row into a table and returns the stored record.
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]any) (Record, error) {
	if !c.configured() {
		return Record{}, ErrConfigMissing
	}
	body := map[string]any{"fields": fields}
	var rec Record
	if err := c.do(ctx, http.MethodPost, table, c.tableURL(table), body, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CheckConnection issues a single minimal read against the Entity table and
// reports reachability. It uses the shorter connectivity-test timeout.
func (c *Client) CheckConnection(ctx context.Context) error {
	if !c.configured() {
		return ErrConfigMissing
	}
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	_, err := c.ListRecords(ctx, TableEntity, ListOptions{MaxRecords: 1})
	return err
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + c.baseID + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method, table, endpoint string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveDirectoryRequest(table, "error")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		obs.ObserveDirectoryRequest(table, "error")
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		obs.ObserveDirectoryRequest(table, strconv.Itoa(resp.StatusCode))
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, truncate(string(data), 512))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			obs.ObserveDirectoryRequest(table, "error")
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	obs.ObserveDirectoryRequest(table, "ok")
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
