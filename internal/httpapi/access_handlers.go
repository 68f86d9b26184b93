package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bondaccess.org/internal/audit"
	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/obs"
)

type submitEmailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleAccessRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitEmail(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

// handleAccessResource routes /v1/access/{token}/bonds.
func (a *API) handleAccessResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/access/")
	token, rest, found := strings.Cut(path, "/")
	if !found || token == "" || rest != "bonds" {
		writeFailure(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.loadBonds(w, r, token)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) submitEmail(w http.ResponseWriter, r *http.Request) {
	var req submitEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := a.svc.SubmitEmail(r.Context(), req.Email)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "access.request.create", map[string]any{
			"outcome": "error",
		})
		handleAccessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "access.request.create", map[string]any{
		"outcome": "ok",
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Access link issued. Check your email for the link.",
		"token":   token,
	})
}

func (a *API) loadBonds(w http.ResponseWriter, r *http.Request, token string) {
	list, err := a.svc.LoadBonds(r.Context(), token)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "access.bonds.load", map[string]any{
			"outcome": "error",
		})
		handleAccessError(w, r, err)
		return
	}

	// Filtering normally runs client side; the same predicates are honored
	// here when passed as query parameters.
	q := r.URL.Query()
	filter := bond.Filter{
		Term:   q.Get("term"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
	}
	rows := list.Rows
	if filter != (bond.Filter{}) {
		filtered := make([]bond.ViewRow, 0, len(rows))
		for _, row := range rows {
			if filter.Matches(row) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	_ = audit.LogEvent(r.Context(), "access.bonds.load", map[string]any{
		"outcome": "ok",
		"rows":    len(rows),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"bonds":          rows,
		"requestor_name": list.RequestorName,
		"total_count":    len(rows),
	})
}

func (a *API) handleDirectoryCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	err := a.svc.CheckDirectory(r.Context())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	_ = audit.LogEvent(r.Context(), "admin.directory.check", map[string]any{
		"outcome": outcome,
	})
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Directory connection OK.",
	})
}

// handleAccessError maps domain errors to status codes and user-facing
// messages. Remote detail stays in the logs; the response body never echoes
// upstream error text.
func handleAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bond.ErrInvalidEmail):
		writeFailure(w, r, http.StatusBadRequest, "Please enter a valid email address.")
	case errors.Is(err, bond.ErrEntityNotFound):
		writeFailure(w, r, http.StatusNotFound, "We could not find an account for that email address.")
	case errors.Is(err, bond.ErrInvalidToken), errors.Is(err, bond.ErrTokenNotFound):
		writeFailure(w, r, http.StatusNotFound, "This access link is invalid. Please request a new one.")
	case errors.Is(err, bond.ErrTokenExpired):
		writeFailure(w, r, http.StatusGone, "This access link has expired. Please request a new one.")
	case errors.Is(err, bond.ErrConfigMissing):
		logAccessError(r, err)
		writeFailure(w, r, http.StatusServiceUnavailable, "The service is not configured. Please try again later.")
	case errors.Is(err, bond.ErrRemoteUnavailable), errors.Is(err, bond.ErrUnexpected):
		logAccessError(r, err)
		writeFailure(w, r, http.StatusBadGateway, "We could not reach the records service. Please try again shortly.")
	case errors.Is(err, bond.ErrStorageUnavailable):
		logAccessError(r, err)
		writeFailure(w, r, http.StatusServiceUnavailable, "The service is temporarily unavailable. Please try again shortly.")
	default:
		logAccessError(r, err)
		writeFailure(w, r, http.StatusInternalServerError, "internal error")
	}
}

func logAccessError(r *http.Request, err error) {
	obs.LogRequest(map[string]any{
		"level":      "error",
		"msg":        err.Error(),
		"path":       r.URL.Path,
		"request_id": RequestIDFromContext(r.Context()),
	})
}
