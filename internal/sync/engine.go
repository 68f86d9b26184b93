// Package sync reconciles the local cache with the remote directory. Reads
// prefer the cache; a miss triggers at most one remote round trip whose
// result is upserted before being returned.
package sync

import (
	"context"
	"errors"
	"fmt"

	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/directory"
	"bondaccess.org/internal/store"
)

// Directory is the remote read surface the engine needs.
type Directory interface {
	ListRecords(ctx context.Context, table string, opts directory.ListOptions) ([]directory.Record, error)
}

// Engine pulls remote records on cache miss and normalizes them into the
// local shape.
type Engine struct {
	dir   Directory
	store store.Store
}

// New constructs an Engine over the given collaborators.
func New(dir Directory, st store.Store) *Engine {
	return &Engine{dir: dir, store: st}
}

// EnsureEntity returns the cached entity for the email, querying the remote
// directory on a miss. A cache hit makes zero remote calls.
func (e *Engine) EnsureEntity(ctx context.Context, email string) (*bond.Entity, error) {
	ent, err := e.store.EntityByEmail(ctx, email)
	if err == nil {
		return ent, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr(err)
	}

	records, err := e.dir.ListRecords(ctx, directory.TableEntity, directory.ListOptions{
		FilterFormula: directory.EmailEqualsFormula(email),
		MaxRecords:    1,
	})
	if err != nil {
		return nil, mapDirectoryError(err)
	}
	if len(records) == 0 {
		return nil, bond.ErrEntityNotFound
	}

	mapped := MapEntity(records[0])
	if err := e.store.UpsertEntity(ctx, &mapped); err != nil {
		return nil, storageErr(err)
	}
	return &mapped, nil
}

// EnsureActivities returns the requestor's activities, cached rows first.
// On a miss it fetches from the remote directory, persists the mapped rows
// so repeated token loads stay local, and returns them.
func (e *Engine) EnsureActivities(ctx context.Context, requestorID string) ([]bond.Activity, error) {
	cached, err := e.store.ActivitiesByRequestor(ctx, requestorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr(err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	records, err := e.dir.ListRecords(ctx, directory.TableActivity, directory.ListOptions{
		FilterFormula: directory.LinkedToFormula("Requestor", requestorID),
		MaxRecords:    100,
		Sort:          []directory.SortSpec{{Field: "Transaction Date", Direction: "desc"}},
	})
	if err != nil {
		return nil, mapDirectoryError(err)
	}

	acts := make([]bond.Activity, 0, len(records))
	for _, rec := range records {
		acts = append(acts, MapActivity(rec, requestorID))
	}
	if len(acts) > 0 {
		if err := e.store.UpsertActivities(ctx, acts); err != nil {
			return nil, storageErr(err)
		}
	}
	return acts, nil
}

// EnsureDocGens mirrors the generated-document records linked to an
// activity, same cache-first contract as EnsureActivities. The rows carry no
// behavior here; they keep the local base a complete copy of the remote one.
func (e *Engine) EnsureDocGens(ctx context.Context, activityID string) ([]bond.DocGen, error) {
	cached, err := e.store.DocGensByActivity(ctx, activityID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr(err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	records, err := e.dir.ListRecords(ctx, directory.TableDocGen, directory.ListOptions{
		FilterFormula: directory.LinkedToFormula("Activity", activityID),
		MaxRecords:    100,
	})
	if err != nil {
		return nil, mapDirectoryError(err)
	}

	docs := make([]bond.DocGen, 0, len(records))
	for _, rec := range records {
		d := MapDocGen(rec)
		if d.ActivityID == "" {
			d.ActivityID = activityID
		}
		if err := e.store.UpsertDocGen(ctx, &d); err != nil {
			return nil, storageErr(err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func mapDirectoryError(err error) error {
	switch {
	case errors.Is(err, directory.ErrConfigMissing):
		return fmt.Errorf("%w: %v", bond.ErrConfigMissing, err)
	default:
		return fmt.Errorf("%w: %v", bond.ErrRemoteUnavailable, err)
	}
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", bond.ErrStorageUnavailable, err)
}
