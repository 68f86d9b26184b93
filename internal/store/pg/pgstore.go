// Package pg implements the cache store on PostgreSQL via the pgx stdlib
// driver. Upserts rely on the external_id unique constraints; that is the
// only serialization point concurrent syncs need.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/config"
	"bondaccess.org/internal/ids"
	"bondaccess.org/internal/store"
)

const pgErrUniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL and tunes the pool from config.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 50
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 25
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 15 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) UpsertEntity(ctx context.Context, e *bond.Entity) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	e.EmailSearch = strings.ToLower(strings.TrimSpace(e.Email))
	return s.db.QueryRowContext(ctx, `
		insert into entity (id, external_id, legal_name, first_name, last_name, email, email_for_search, type, status, phone_direct)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (external_id) do update set
			legal_name = excluded.legal_name,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			email_for_search = excluded.email_for_search,
			type = excluded.type,
			status = excluded.status,
			phone_direct = excluded.phone_direct,
			updated_at = now()
		returning id, created_at, updated_at
	`, e.ID, e.ExternalID, e.LegalName, e.FirstName, e.LastName, e.Email, e.EmailSearch, e.Type, e.Status, e.PhoneDirect).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *Store) EntityByEmail(ctx context.Context, email string) (*bond.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, external_id, legal_name, first_name, last_name, email, email_for_search, type, status, phone_direct, created_at, updated_at
		from entity
		where email_for_search = $1 or email = $2
		limit 1
	`, strings.ToLower(strings.TrimSpace(email)), email)
	return scanEntity(row)
}

func (s *Store) EntityByExternalID(ctx context.Context, externalID string) (*bond.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, external_id, legal_name, first_name, last_name, email, email_for_search, type, status, phone_direct, created_at, updated_at
		from entity
		where external_id = $1
	`, externalID)
	return scanEntity(row)
}

func scanEntity(row *sql.Row) (*bond.Entity, error) {
	var e bond.Entity
	err := row.Scan(&e.ID, &e.ExternalID, &e.LegalName, &e.FirstName, &e.LastName,
		&e.Email, &e.EmailSearch, &e.Type, &e.Status, &e.PhoneDirect, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) InsertAccessRequest(ctx context.Context, ar *bond.AccessRequest) error {
	if ar.ID == "" {
		ar.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into access_request (id, external_id, token, requestor_id, requestor_name, req_email, requested_on, expires_on, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		returning created_at
	`, ar.ID, ar.ExternalID, ar.Token, ar.RequestorID, ar.RequestorName, ar.Email,
		nullDate(ar.RequestedOn), nullDate(ar.ExpiresOn), ar.Active).Scan(&ar.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) AccessRequestByToken(ctx context.Context, token string) (*bond.AccessRequest, error) {
	var (
		ar        bond.AccessRequest
		requested sql.NullTime
		expires   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, external_id, token, requestor_id, requestor_name, req_email, requested_on, expires_on, active, created_at
		from access_request
		where token = $1 and active
		limit 1
	`, token).Scan(&ar.ID, &ar.ExternalID, &ar.Token, &ar.RequestorID, &ar.RequestorName,
		&ar.Email, &requested, &expires, &ar.Active, &ar.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ar.RequestedOn = timeOrZero(requested)
	ar.ExpiresOn = timeOrZero(expires)
	return &ar, nil
}

func (s *Store) DeactivateAccessRequest(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		update access_request set active = false, updated_at = now()
		where token = $1 and active
	`, token)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertActivities(ctx context.Context, acts []bond.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range acts {
		a := &acts[i]
		if a.ID == "" {
			a.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into activity (id, external_id, requestor_id, description, principal_name, obligee_name, job_name, type, status, amount, premium, effective_date, transaction_date)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			on conflict (external_id) do update set
				requestor_id = excluded.requestor_id,
				description = excluded.description,
				principal_name = excluded.principal_name,
				obligee_name = excluded.obligee_name,
				job_name = excluded.job_name,
				type = excluded.type,
				status = excluded.status,
				amount = excluded.amount,
				premium = excluded.premium,
				effective_date = excluded.effective_date,
				transaction_date = excluded.transaction_date,
				updated_at = now()
		`, a.ID, a.ExternalID, a.RequestorID, a.Description, a.PrincipalName, a.ObligeeName,
			a.JobName, a.Type, a.Status, a.Amount, a.Premium,
			nullDate(a.EffectiveDate), nullDate(a.TransactionDate)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ActivitiesByRequestor(ctx context.Context, requestorID string) ([]bond.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, external_id, requestor_id, description, principal_name, obligee_name, job_name, type, status, amount, premium, effective_date, transaction_date, created_at
		from activity
		where requestor_id = $1
		order by transaction_date desc nulls last, id desc
	`, requestorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bond.Activity
	for rows.Next() {
		var (
			a         bond.Activity
			effective sql.NullTime
			txDate    sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.ExternalID, &a.RequestorID, &a.Description, &a.PrincipalName,
			&a.ObligeeName, &a.JobName, &a.Type, &a.Status, &a.Amount, &a.Premium,
			&effective, &txDate, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EffectiveDate = timeOrZero(effective)
		a.TransactionDate = timeOrZero(txDate)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpsertDocGen(ctx context.Context, d *bond.DocGen) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into docgen (id, external_id, name, notes, activity_id, run_date, templates, created_time)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (external_id) do update set
			name = excluded.name,
			notes = excluded.notes,
			activity_id = excluded.activity_id,
			run_date = excluded.run_date,
			templates = excluded.templates,
			created_time = excluded.created_time,
			updated_at = now()
	`, d.ID, d.ExternalID, d.Name, d.Notes, d.ActivityID,
		nullDate(d.RunDate), d.Templates, nullDate(d.CreatedTime))
	return err
}

func (s *Store) DocGensByActivity(ctx context.Context, activityID string) ([]bond.DocGen, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, external_id, name, notes, activity_id, run_date, templates, created_time
		from docgen
		where activity_id = $1
		order by run_date desc nulls last, id desc
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bond.DocGen
	for rows.Next() {
		var (
			d       bond.DocGen
			runDate sql.NullTime
			created sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.Name, &d.Notes, &d.ActivityID,
			&runDate, &d.Templates, &created); err != nil {
			return nil, err
		}
		d.RunDate = timeOrZero(runDate)
		d.CreatedTime = timeOrZero(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- helpers ---

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func timeOrZero(v sql.NullTime) time.Time {
	if v.Valid {
		return v.Time
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
