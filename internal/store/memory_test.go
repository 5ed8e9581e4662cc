package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brasul/fretes/internal/db"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
)

func f64(v float64) *float64 { return &v }

func seedFreights(t *testing.T, s *MemoryStore) time.Time {
	t.Helper()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	items := []models.Freight{
		{Base: models.Base{ID: "a"}, Origin: "Uberlândia, MG", Destination: "Santos, SP", CargoType: "Grãos", Value: f64(3000), CreatedAt: base},
		{Base: models.Base{ID: "b"}, Origin: "Campinas, SP", Destination: "Curitiba, PR", CargoType: "Grãos", CreatedAt: base.Add(time.Hour)},
		{Base: models.Base{ID: "c"}, Origin: "Montes Claros, MG", Destination: "Salvador, BA", CargoType: "Frigorificada", Value: f64(9000), Refrigerated: true, CreatedAt: base.Add(time.Hour)},
		{Base: models.Base{ID: "d"}, Origin: "Goiânia, GO", Destination: "Belém, PA", CargoType: "Carga Seca", Value: f64(500), CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range items {
		require.NoError(t, s.InsertFreight(context.Background(), &items[i]))
	}
	return base
}

func ids(fs []models.Freight) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func TestMemoryStore_SearchOrderAndPaging(t *testing.T) {
	s := NewMemoryStore()
	seedFreights(t, s)
	ctx := context.Background()

	all, err := s.SearchFreights(ctx, freight.Filter{}, freight.Page{Index: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(all))

	second, err := s.SearchFreights(ctx, freight.Filter{}, freight.Page{Index: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(second))

	beyond, err := s.SearchFreights(ctx, freight.Filter{}, freight.Page{Index: 5, Size: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	far, err := s.SearchFreights(ctx, freight.Filter{}, freight.NewPage(math.MaxInt/50, 100, 50))
	require.NoError(t, err)
	assert.Empty(t, far)

	overflowed, err := s.SearchFreights(ctx, freight.Filter{}, freight.Page{Index: math.MaxInt / 50, Size: 100})
	require.NoError(t, err)
	assert.Empty(t, overflowed)

	n, err := s.CountFreights(ctx, freight.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMemoryStore_SearchFilters(t *testing.T) {
	s := NewMemoryStore()
	seedFreights(t, s)
	ctx := context.Background()

	got, err := s.SearchFreights(ctx, freight.Filter{OriginState: "MG"}, freight.Page{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(got))

	// negotiable listing "b" has no value and never satisfies a range
	got, err = s.SearchFreights(ctx, freight.Filter{MinValue: f64(0)}, freight.Page{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "a"}, ids(got))

	got, err = s.SearchFreights(ctx, freight.Filter{CargoType: "Grãos", MaxValue: f64(3000)}, freight.Page{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))

	n, err := s.CountFreights(ctx, freight.Filter{Refrigerated: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_DistinctAndLatest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	latest, err := s.LatestFreightCreatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := seedFreights(t, s)

	cargo, err := s.DistinctFreightValues(ctx, FacetCargoType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carga Seca", "Frigorificada", "Grãos"}, cargo)

	_, err = s.DistinctFreightValues(ctx, "contact")
	assert.Error(t, err)

	latest, err = s.LatestFreightCreatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(base.Add(2*time.Hour)))
}

func TestMemoryStore_InsertFreightDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InsertFreight(ctx, &models.Freight{Base: models.Base{ID: "x"}}))
	err := s.InsertFreight(ctx, &models.Freight{Base: models.Base{ID: "x"}})
	assert.True(t, errors.Is(err, db.ErrDuplicateKey))

	_, err = s.FindFreightByID(ctx, "missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemoryStore_Agents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, exists, err := s.MaxAgentCode(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	for _, code := range []string{"10000", "10002", "10001"} {
		require.NoError(t, s.InsertAgent(ctx, &models.Agent{Code: code, Active: true}))
	}
	err = s.InsertAgent(ctx, &models.Agent{Code: "10001"})
	assert.True(t, errors.Is(err, db.ErrDuplicateKey))

	code, exists, err := s.MaxAgentCode(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "10002", code)

	require.NoError(t, s.SetAgentActive(ctx, "10000", false))
	assert.Equal(t, ErrNotFound, s.SetAgentActive(ctx, "99999", false))

	active, err := s.ListAgents(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "10001", active[0].Code)

	all, err := s.ListAgents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore_ReferralsAndCleanup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := seedFreights(t, s)
	require.NoError(t, s.InsertAgent(ctx, &models.Agent{Code: "10000", Active: true}))

	err := s.InsertReferral(ctx, &models.AgentReferral{FreightID: "zzz", AgentCode: "10000"})
	assert.True(t, errors.Is(err, ErrNotFound))
	err = s.InsertReferral(ctx, &models.AgentReferral{FreightID: "a", AgentCode: "55555"})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.InsertReferral(ctx, &models.AgentReferral{FreightID: "a", AgentCode: "10000", ContactDate: base}))
	require.NoError(t, s.InsertReferral(ctx, &models.AgentReferral{FreightID: "d", AgentCode: "10000", ContactDate: base}))

	refs, err := s.ListReferrals(ctx, "10000", 0)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "d", refs[0].FreightID)

	deleted, err := s.DeleteFreightsCreatedBefore(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	refs, err = s.ListReferrals(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "d", refs[0].FreightID)
}

func TestMemoryStore_SearchMunicipalities(t *testing.T) {
	s := NewMemoryStore()
	s.SeedMunicipalities([]models.Municipality{
		{ID: 1, Name: "São Paulo", State: "SP"},
		{ID: 2, Name: "São José dos Campos", State: "SP"},
		{ID: 3, Name: "São José", State: "SC"},
		{ID: 4, Name: "Paulínia", State: "SP"},
	})
	ctx := context.Background()

	got, err := s.SearchMunicipalities(ctx, MunicipalityQuery{Name: "são paulo", Exact: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got, err = s.SearchMunicipalities(ctx, MunicipalityQuery{Name: "sao jose"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.SearchMunicipalities(ctx, MunicipalityQuery{Name: "sao jose", State: "SC"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SC", got[0].State)

	got, err = s.SearchMunicipalities(ctx, MunicipalityQuery{Name: "paul", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Paulínia", got[0].Name)
}
