package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bondaccess.org/internal/bond"
	"bondaccess.org/internal/ids"
)

// Memory implements Store in process. Activities remember their insertion
// position so equal transaction dates order most-recent-insert first, the
// same contract the Postgres store gets from ULID row ids.
type Memory struct {
	mu         sync.RWMutex
	entities   map[string]bond.Entity // keyed by external id
	requests   []bond.AccessRequest
	activities []memActivity
	docgens    map[string]bond.DocGen // keyed by external id
	seq        int
}

type memActivity struct {
	act bond.Activity
	pos int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entities: make(map[string]bond.Entity),
		docgens:  make(map[string]bond.DocGen),
	}
}

func (m *Memory) UpsertEntity(ctx context.Context, e *bond.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	e.EmailSearch = strings.ToLower(strings.TrimSpace(e.Email))
	if existing, ok := m.entities[e.ExternalID]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = ids.New()
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	m.entities[e.ExternalID] = *e
	return nil
}

func (m *Memory) EntityByEmail(ctx context.Context, email string) (*bond.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(email))
	for _, e := range m.entities {
		if e.EmailSearch == needle || e.Email == email {
			out := e
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) EntityByExternalID(ctx context.Context, externalID string) (*bond.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.entities[externalID]; ok {
		out := e
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertAccessRequest(ctx context.Context, ar *bond.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.requests {
		if existing.Token == ar.Token || existing.ExternalID == ar.ExternalID {
			return ErrConflict
		}
	}
	if ar.ID == "" {
		ar.ID = ids.New()
	}
	ar.CreatedAt = time.Now().UTC()
	m.requests = append(m.requests, *ar)
	return nil
}

func (m *Memory) AccessRequestByToken(ctx context.Context, token string) (*bond.AccessRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ar := range m.requests {
		if ar.Token == token && ar.Active {
			out := ar
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) DeactivateAccessRequest(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.requests {
		if m.requests[i].Token == token && m.requests[i].Active {
			m.requests[i].Active = false
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) UpsertActivities(ctx context.Context, acts []bond.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range acts {
		a := acts[i]
		updated := false
		for j := range m.activities {
			if m.activities[j].act.ExternalID == a.ExternalID {
				a.ID = m.activities[j].act.ID
				a.CreatedAt = m.activities[j].act.CreatedAt
				m.activities[j].act = a
				updated = true
				break
			}
		}
		if updated {
			continue
		}
		if a.ID == "" {
			a.ID = ids.New()
		}
		a.CreatedAt = time.Now().UTC()
		m.seq++
		m.activities = append(m.activities, memActivity{act: a, pos: m.seq})
	}
	return nil
}

func (m *Memory) ActivitiesByRequestor(ctx context.Context, requestorID string) ([]bond.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []memActivity
	for _, a := range m.activities {
		if a.act.RequestorID == requestorID {
			rows = append(rows, a)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].act.TransactionDate, rows[j].act.TransactionDate
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return rows[i].pos > rows[j].pos
	})
	out := make([]bond.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.act)
	}
	return out, nil
}

func (m *Memory) UpsertDocGen(ctx context.Context, d *bond.DocGen) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.docgens[d.ExternalID]; ok {
		d.ID = existing.ID
	} else if d.ID == "" {
		d.ID = ids.New()
	}
	m.docgens[d.ExternalID] = *d
	return nil
}

func (m *Memory) DocGensByActivity(ctx context.Context, activityID string) ([]bond.DocGen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []bond.DocGen
	for _, d := range m.docgens {
		if d.ActivityID == activityID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
