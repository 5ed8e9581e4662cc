package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"brasul/fretes/internal/db"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/textfold"
)

// MemoryStore keeps everything in process. It backs tests and the
// STORE_DRIVER=memory development mode.
type MemoryStore struct {
	mu             sync.RWMutex
	freights       map[string]models.Freight
	agents         map[string]models.Agent // by code
	referrals      []models.AgentReferral
	municipalities []models.Municipality
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		freights: make(map[string]models.Freight),
		agents:   make(map[string]models.Agent),
	}
}

// SeedMunicipalities replaces the lookup table.
func (s *MemoryStore) SeedMunicipalities(ms []models.Municipality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.municipalities = append([]models.Municipality(nil), ms...)
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) InsertFreight(ctx context.Context, f *models.Freight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f.GenIDIfEmpty()
	if _, exists := s.freights[f.ID]; exists {
		return fmt.Errorf("insert freight %s: %w", f.ID, db.ErrDuplicateKey)
	}
	s.freights[f.ID] = *f
	return nil
}

func (s *MemoryStore) FindFreightByID(ctx context.Context, id string) (*models.Freight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.freights[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryStore) matching(filter freight.Filter) []models.Freight {
	var result []models.Freight
	for _, f := range s.freights {
		if filter.Matches(f) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (s *MemoryStore) SearchFreights(ctx context.Context, filter freight.Filter, page freight.Page) ([]models.Freight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.matching(filter)

	start := page.Offset()
	if start < 0 || start >= len(result) {
		return []models.Freight{}, nil
	}
	end := start + page.Limit()
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *MemoryStore) CountFreights(ctx context.Context, filter freight.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, f := range s.freights {
		if filter.Matches(f) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DistinctFreightValues(ctx context.Context, field string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, f := range s.freights {
		var v string
		switch field {
		case FacetOrigin:
			v = f.Origin
		case FacetDestination:
			v = f.Destination
		case FacetCargoType:
			v = f.CargoType
		case FacetTruckType:
			v = f.TruckType
		default:
			return nil, fmt.Errorf("unsupported facet field %q", field)
		}
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (s *MemoryStore) LatestFreightCreatedAt(ctx context.Context) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, f := range s.freights {
		if latest == nil || f.CreatedAt.After(*latest) {
			t := f.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *MemoryStore) DeleteFreightsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, f := range s.freights {
		if f.CreatedAt.Before(cutoff) {
			delete(s.freights, id)
			n++
		}
	}
	kept := s.referrals[:0]
	for _, r := range s.referrals {
		if _, ok := s.freights[r.FreightID]; ok {
			kept = append(kept, r)
		}
	}
	s.referrals = kept
	return n, nil
}

func (s *MemoryStore) InsertAgent(ctx context.Context, a *models.Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.Code]; exists {
		return fmt.Errorf("insert agent %s: %w", a.Code, db.ErrDuplicateKey)
	}
	a.GenIDIfEmpty()
	s.agents[a.Code] = *a
	return nil
}

func (s *MemoryStore) MaxAgentCode(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.agents))
	for code := range s.agents {
		codes = append(codes, code)
	}
	code, ok := freight.HighestAgentCode(codes)
	return code, ok, nil
}

func (s *MemoryStore) FindAgentByCode(ctx context.Context, code string) (*models.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) ListAgents(ctx context.Context, activeOnly bool) ([]models.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	agents := make([]models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if activeOnly && !a.Active {
			continue
		}
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Code < agents[j].Code })
	return agents, nil
}

func (s *MemoryStore) SetAgentActive(ctx context.Context, code string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[code]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	s.agents[code] = a
	return nil
}

func (s *MemoryStore) InsertReferral(ctx context.Context, r *models.AgentReferral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.freights[r.FreightID]; !ok {
		return fmt.Errorf("referral freight %s: %w", r.FreightID, ErrNotFound)
	}
	if _, ok := s.agents[r.AgentCode]; !ok {
		return fmt.Errorf("referral agent %s: %w", r.AgentCode, ErrNotFound)
	}
	r.GenIDIfEmpty()
	s.referrals = append(s.referrals, *r)
	return nil
}

func (s *MemoryStore) ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []models.AgentReferral{}
	for i := len(s.referrals) - 1; i >= 0; i-- {
		r := s.referrals[i]
		if agentCode != "" && r.AgentCode != agentCode {
			continue
		}
		result = append(result, r)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) SearchMunicipalities(ctx context.Context, q MunicipalityQuery) ([]models.Municipality, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := textfold.Fold(q.Name)
	result := []models.Municipality{}
	for _, m := range s.municipalities {
		if q.State != "" && !strings.EqualFold(m.State, q.State) {
			continue
		}
		name := textfold.Fold(m.Name)
		if q.Exact {
			if !strings.EqualFold(m.Name, q.Name) {
				continue
			}
		} else if !strings.Contains(name, needle) {
			continue
		}
		result = append(result, m)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}
