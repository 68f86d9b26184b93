// Package access owns the token-issuance lifecycle: an email comes in, an
// access token goes out, and later the token is traded back for the
// requestor's bond activity.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/directory"
	"bondaccess.org/internal/obs"
	"bondaccess.org/internal/store"
	"bondaccess.org/internal/sync"
)

// Directory is the remote write-and-probe surface the service needs.
type Directory interface {
	CreateRecord(ctx context.Context, table string, fields map[string]any) (directory.Record, error)
	CheckConnection(ctx context.Context) error
}

// Syncer keeps the local cache current with the remote directory.
type Syncer interface {
	EnsureEntity(ctx context.Context, email string) (*bond.Entity, error)
	EnsureActivities(ctx context.Context, requestorID string) ([]bond.Activity, error)
}

// BondList is the resolved payload for one token: display rows plus the
// requestor's name for the page header.
type BondList struct {
	RequestorName string
	Rows          []bond.ViewRow
}

// Service coordinates the directory, the sync engine and the store. It holds
// no per-request state; every call stands alone.
type Service struct {
	dir   Directory
	store store.Store
	sync  Syncer
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs the access service.
func NewService(dir Directory, st store.Store, eng Syncer, opts ...Option) *Service {
	s := &Service{dir: dir, store: st, sync: eng, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitEmail issues a fresh access token for the entity behind the email.
// Exactly one remote write and one local write happen per successful call;
// repeat submissions always mint a new token, never refresh an old one.
func (s *Service) SubmitEmail(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !bond.ValidEmail(email) {
		return "", bond.ErrInvalidEmail
	}

	ent, err := s.sync.EnsureEntity(ctx, email)
	if err != nil {
		return "", err
	}

	issued := dateOnly(s.now().UTC())
	rec, err := s.dir.CreateRecord(ctx, directory.TableAccessRequest, map[string]any{
		"Requestor":    []string{ent.ExternalID},
		"Req Email":    email,
		"Req Name":     ent.DisplayName(),
		"Requested On": issued.Format("2006-01-02"),
		"Active":       true,
	})
	if err != nil {
		return "", mapDirectoryError(err)
	}

	token := bond.TokenFromExternalID(rec.ID)
	if !bond.ValidToken(token) {
		return "", fmt.Errorf("%w: malformed record id %q", bond.ErrUnexpected, rec.ID)
	}

	ar := sync.MapAccessRequest(rec, issued)
	ar.Token = token
	ar.RequestorName = ent.DisplayName()
	if ar.RequestorID == "" {
		ar.RequestorID = ent.ExternalID
	}
	if ar.Email == "" {
		ar.Email = email
	}
	if err := s.store.InsertAccessRequest(ctx, &ar); err != nil {
		return "", fmt.Errorf("%w: %v", bond.ErrStorageUnavailable, err)
	}

	obs.TokenIssued()
	return token, nil
}

// ResolveToken looks a token up and checks expiry. Resolution is
// side-effect-free; a token may be resolved any number of times until it
// expires or is deactivated.
func (s *Service) ResolveToken(ctx context.Context, token string) (*bond.AccessRequest, error) {
	if !bond.ValidToken(token) {
		return nil, bond.ErrInvalidToken
	}

	ar, err := s.store.AccessRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, bond.ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", bond.ErrStorageUnavailable, err)
	}

	if s.expired(ar.ExpiresOn) {
		return nil, bond.ErrTokenExpired
	}
	return ar, nil
}

// LoadBonds resolves a token and returns the requestor's activities as
// display rows, syncing them from the remote directory on first load.
func (s *Service) LoadBonds(ctx context.Context, token string) (*BondList, error) {
	ar, err := s.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	acts, err := s.sync.EnsureActivities(ctx, ar.RequestorID)
	if err != nil {
		return nil, err
	}

	rows := make([]bond.ViewRow, 0, len(acts))
	for _, a := range acts {
		rows = append(rows, bond.FormatActivity(a))
	}

	name := ar.RequestorName
	if name == "" {
		if ent, err := s.store.EntityByExternalID(ctx, ar.RequestorID); err == nil {
			name = ent.DisplayName()
		}
	}
	return &BondList{RequestorName: name, Rows: rows}, nil
}

// CheckDirectory probes remote connectivity with a single bounded read. It
// never touches the token lifecycle.
func (s *Service) CheckDirectory(ctx context.Context) error {
	if err := s.dir.CheckConnection(ctx); err != nil {
		return mapDirectoryError(err)
	}
	return nil
}

// expired compares date components only: the token still resolves on its
// expiry date and stops resolving the day after.
func (s *Service) expired(expiresOn time.Time) bool {
	if expiresOn.IsZero() {
		return false
	}
	today := dateOnly(s.now().UTC())
	return today.After(dateOnly(expiresOn))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mapDirectoryError(err error) error {
	if errors.Is(err, directory.ErrConfigMissing) {
		return fmt.Errorf("%w: %v", bond.ErrConfigMissing, err)
	}
	return fmt.Errorf("%w: %v", bond.ErrRemoteUnavailable, err)
}
