package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"bondaccess.org/internal/access"
	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/directory"
	"bondaccess.org/internal/store"
	"bondaccess.org/internal/sync"
)

// fakeDirectory backs the whole service stack in tests.
type fakeDirectory struct {
	listRecords []directory.Record
	listErr     error
	createRec   directory.Record
	createErr   error
	checkErr    error
}

func (f *fakeDirectory) ListRecords(ctx context.Context, table string, opts directory.ListOptions) ([]directory.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRecords, nil
}

func (f *fakeDirectory) CreateRecord(ctx context.Context, table string, fields map[string]any) (directory.Record, error) {
	if f.createErr != nil {
		return directory.Record{}, f.createErr
	}
	return f.createRec, nil
}

func (f *fakeDirectory) CheckConnection(ctx context.Context) error {
	return f.checkErr
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T, dir *fakeDirectory, st *store.Memory, opts ...Option) *apiClient {
	t.Helper()

	svc := access.NewService(dir, st, sync.New(dir, st))
	api := New(ReadyProbe{}, svc, "test", opts...)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{baseURL: srv.URL, client: srv.Client(), t: t}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestReadyWithoutDB(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInfoAndSecurityHeaders(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/v1/info", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing hardening header, got %q", got)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
	resp.Body.Close()
}

func TestRequestIDEchoed(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/healthz", nil, map[string]string{"X-Request-Id": "rid-123"})
	if got := resp.Header.Get("X-Request-Id"); got != "rid-123" {
		t.Fatalf("caller-supplied request id not echoed, got %q", got)
	}
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(data) == 0 {
		t.Fatal("empty metrics output")
	}
}

func TestRateLimit(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory(), WithRateLimit(2, 1))

	var limited bool
	for i := 0; i < 5; i++ {
		resp := c.get("/healthz", nil, nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Header.Get("Retry-After") == "" {
				t.Fatal("throttled response lacks Retry-After")
			}
			limited = true
		}
		resp.Body.Close()
	}
	if !limited {
		t.Fatal("burst of requests was never throttled")
	}
}

func TestUnknownPath(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/v1/whatever", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func seedHTTPEntity(t *testing.T, st store.Store) *bond.Entity {
	t.Helper()
	ent := &bond.Entity{
		ExternalID: "recE1xxxxxxxxxx",
		LegalName:  "Acme Construction LLC",
		Email:      "a@x.com",
	}
	if err := st.UpsertEntity(context.Background(), ent); err != nil {
		t.Fatal(err)
	}
	return ent
}

func seedHTTPActivities(t *testing.T, st store.Store, requestorID string) {
	t.Helper()
	if err := st.UpsertActivities(context.Background(), []bond.Activity{
		{ExternalID: "recT1", RequestorID: requestorID, Description: "Bid Bond",
			Amount: 10000, Status: "In Review",
			TransactionDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{ExternalID: "recT2", RequestorID: requestorID, Description: "Performance Bond",
			Amount: 50000, Status: "Active",
			TransactionDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{ExternalID: "recT3", RequestorID: "recSomeoneElse1", Description: "Unrelated Bond"},
	}); err != nil {
		t.Fatal(err)
	}
}
