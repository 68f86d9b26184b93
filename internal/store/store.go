// Package store defines the local cache behind the sync engine and access
// manager, with a Postgres implementation under store/pg and an in-memory
// one for tests and DSN-less runs.
package store

import (
	"context"
	"errors"

	"bondaccess.org/internal/bond"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("store: already exists")
)

// Store describes the persistence operations of the local cache.
// External IDs are unique upsert keys on every synchronized table; that
// constraint is the serialization point for concurrent syncs of one record.
type Store interface {
	UpsertEntity(ctx context.Context, e *bond.Entity) error
	EntityByEmail(ctx context.Context, email string) (*bond.Entity, error)
	EntityByExternalID(ctx context.Context, externalID string) (*bond.Entity, error)

	InsertAccessRequest(ctx context.Context, ar *bond.AccessRequest) error
	AccessRequestByToken(ctx context.Context, token string) (*bond.AccessRequest, error)
	DeactivateAccessRequest(ctx context.Context, token string) error

	UpsertActivities(ctx context.Context, acts []bond.Activity) error
	ActivitiesByRequestor(ctx context.Context, requestorID string) ([]bond.Activity, error)

	UpsertDocGen(ctx context.Context, d *bond.DocGen) error
	DocGensByActivity(ctx context.Context, activityID string) ([]bond.DocGen, error)
}
