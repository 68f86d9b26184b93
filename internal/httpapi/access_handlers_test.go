package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"bondaccess.org/internal/auth"
	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/directory"
	"bondaccess.org/internal/store"
)

func TestSubmitEmailEndToEnd(t *testing.T) {
	dir := &fakeDirectory{createRec: directory.Record{ID: "recAbC123xYz09qRsT"}}
	st := store.NewMemory()
	c := newTestAPI(t, dir, st)
	ent := seedHTTPEntity(t, st)
	seedHTTPActivities(t, st, ent.ExternalID)

	resp := c.post("/v1/access/requests", map[string]string{"email": "a@x.com"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	token, _ := body["token"].(string)
	if token != "AbC123xYz09qRsT" {
		t.Fatalf("token %q", token)
	}

	// Token resolves to exactly the requestor's bonds.
	resp = c.get("/v1/access/"+token+"/bonds", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bonds status %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	if body["success"] != true || body["requestor_name"] != "Acme Construction LLC" {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := body["total_count"].(float64); got != 2 {
		t.Fatalf("total_count %v", got)
	}
	bonds := body["bonds"].([]any)
	first := bonds[0].(map[string]any)
	if first["id"] != "recT2" || first["amount"] != "50,000.00" || first["status_class"] != "active" {
		t.Fatalf("unexpected first row: %v", first)
	}
}

func TestLoadBondsQueryFilter(t *testing.T) {
	dir := &fakeDirectory{createRec: directory.Record{ID: "recAbC123xYz09qRsT"}}
	st := store.NewMemory()
	c := newTestAPI(t, dir, st)
	ent := seedHTTPEntity(t, st)
	seedHTTPActivities(t, st, ent.ExternalID)

	resp := c.post("/v1/access/requests", map[string]string{"email": "a@x.com"}, nil)
	token := decodeBody(t, resp)["token"].(string)

	resp = c.get("/v1/access/"+token+"/bonds", url.Values{"term": {"performance"}}, nil)
	body := decodeBody(t, resp)
	if got := body["total_count"].(float64); got != 1 {
		t.Fatalf("term filter: total_count %v", got)
	}

	resp = c.get("/v1/access/"+token+"/bonds", url.Values{"status": {"in-review"}}, nil)
	body = decodeBody(t, resp)
	if got := body["total_count"].(float64); got != 1 {
		t.Fatalf("status filter: total_count %v", got)
	}

	resp = c.get("/v1/access/"+token+"/bonds", url.Values{"term": {"no such bond"}}, nil)
	body = decodeBody(t, resp)
	if got := body["total_count"].(float64); got != 0 {
		t.Fatalf("non-matching filter: total_count %v", got)
	}
}

func TestSubmitEmailValidation(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.post("/v1/access/requests", map[string]string{"email": "not-an-email"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSubmitEmailUnknownAddress(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.post("/v1/access/requests", map[string]string{"email": "nobody@x.com"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitEmailRemoteFailures(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"credentials unset", directory.ErrConfigMissing, http.StatusServiceUnavailable},
		{"remote down", directory.ErrUnavailable, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemory()
			c := newTestAPI(t, &fakeDirectory{createErr: tc.err}, st)
			seedHTTPEntity(t, st)

			resp := c.post("/v1/access/requests", map[string]string{"email": "a@x.com"}, nil)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			body := decodeBody(t, resp)
			// User-facing message only; upstream detail stays in logs.
			if msg := body["message"].(string); msg == "" || msg == tc.err.Error() {
				t.Fatalf("message %q leaks or is empty", msg)
			}
		})
	}
}

func TestLoadBondsUnknownToken(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/v1/access/zzz/bonds", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestLoadBondsExpiredToken(t *testing.T) {
	st := store.NewMemory()
	c := newTestAPI(t, &fakeDirectory{}, st)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if err := st.InsertAccessRequest(context.Background(), &bond.AccessRequest{
		ExternalID:  "recExpiredToken01",
		Token:       "ExpiredToken01",
		RequestorID: "recE1xxxxxxxxxx",
		ExpiresOn:   yesterday,
		Active:      true,
	}); err != nil {
		t.Fatal(err)
	}

	resp := c.get("/v1/access/ExpiredToken01/bonds", nil, nil)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAccessResourceRouting(t *testing.T) {
	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	for _, path := range []string{"/v1/access/", "/v1/access/SomeToken12345", "/v1/access/SomeToken12345/other"} {
		resp := c.get(path, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.post("/v1/access/SomeToken12345/bonds", nil, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDirectoryCheckRequiresAdmin(t *testing.T) {
	t.Setenv("BONDACCESS_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/v1/admin/directory/check", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	viewer, err := auth.GenerateToken("ops-viewer", []string{"viewer"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	resp = c.get("/v1/admin/directory/check", nil, map[string]string{"Authorization": "Bearer " + viewer})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	admin, err := auth.GenerateToken("ops-admin", []string{auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	resp = c.get("/v1/admin/directory/check", nil, map[string]string{"Authorization": "Bearer " + admin})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDirectoryCheckDisabledWithoutSecret(t *testing.T) {
	t.Setenv("BONDACCESS_AUTH_SECRET", "")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	c := newTestAPI(t, &fakeDirectory{}, store.NewMemory())

	resp := c.get("/v1/admin/directory/check", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDirectoryCheckReportsFailure(t *testing.T) {
	t.Setenv("BONDACCESS_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	c := newTestAPI(t, &fakeDirectory{checkErr: directory.ErrUnavailable}, store.NewMemory())

	admin, err := auth.GenerateToken("ops-admin", []string{auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	resp := c.get("/v1/admin/directory/check", nil, map[string]string{"Authorization": "Bearer " + admin})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status %d", resp.StatusCode)
	}
	resp.Body.Close()
}
