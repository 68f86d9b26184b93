package bond

import (
	"errors"
	"strings"
	"time"
)

// Entity is a person or organization synchronized from the remote directory.
// Exactly one local row exists per remote record; ExternalID is the
// correlation key.
type Entity struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	LegalName   string    `json:"legal_name"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	EmailSearch string    `json:"-"` // lowercased shadow field for case-insensitive lookup
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	PhoneDirect string    `json:"phone_direct"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName picks the best available human-readable name for the entity.
func (e Entity) DisplayName() string {
	if name := strings.TrimSpace(e.LegalName); name != "" {
		return name
	}
	if name := strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName)); name != "" {
		return name
	}
	return e.Email
}

// AccessRequest is an issued access token. Rows are append-only: a request
// is never mutated after creation except for deactivation, and a fresh
// submission always issues a new token.
type AccessRequest struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id"`
	Token         string    `json:"token"`
	RequestorID   string    `json:"requestor_id"` // entity external id
	RequestorName string    `json:"requestor_name"`
	Email         string    `json:"email"`
	RequestedOn   time.Time `json:"requested_on"`
	ExpiresOn     time.Time `json:"expires_on"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Activity is a bond transaction record tied to a requestor entity.
type Activity struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"external_id"`
	RequestorID     string    `json:"requestor_id"`
	Description     string    `json:"description"`
	PrincipalName   string    `json:"principal_name"`
	ObligeeName     string    `json:"obligee_name"`
	JobName         string    `json:"job_name"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Amount          float64   `json:"amount"`
	Premium         float64   `json:"premium"`
	EffectiveDate   time.Time `json:"effective_date"`
	TransactionDate time.Time `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// DocGen is a generated-document record synchronized alongside activities.
// It carries no behavior here; the cache mirrors it so the local base stays
// a complete copy of the remote one.
type DocGen struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	Notes       string    `json:"notes"`
	ActivityID  string    `json:"activity_id"`
	RunDate     time.Time `json:"run_date"`
	Templates   string    `json:"templates"`
	CreatedTime time.Time `json:"created_time"`
}

// ViewRow is the normalized display shape consumed by the client-side filter.
// Every field is a plain string; formatting happens exactly once, server side.
type ViewRow struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	PrincipalName   string `json:"principal_name"`
	ObligeeName     string `json:"obligee_name"`
	JobName         string `json:"job_name"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	StatusClass     string `json:"status_class"`
	Amount          string `json:"amount"`
	Premium         string `json:"premium"`
	EffectiveDate   string `json:"effective_date"`
	TransactionDate string `json:"transaction_date"`
}

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrTokenNotFound      = errors.New("access token not found")
	ErrTokenExpired       = errors.New("access token expired")
	ErrConfigMissing      = errors.New("remote directory configuration missing")
	ErrRemoteUnavailable  = errors.New("remote directory unavailable")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnexpected         = errors.New("unexpected remote response")
)
