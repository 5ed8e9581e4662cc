package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
)

func newTestMunicipalityService() IMunicipalityService {
	st := store.NewMemoryStore()
	st.SeedMunicipalities([]models.Municipality{
		{ID: 1, Name: "Montes Claros", State: "MG"},
		{ID: 2, Name: "Monte Carmelo", State: "MG"},
		{ID: 3, Name: "São Paulo", State: "SP"},
		{ID: 4, Name: "Paulínia", State: "SP"},
		{ID: 5, Name: "Belém", State: "PA"},
		{ID: 6, Name: "Belém", State: "PB"},
	})
	return NewMunicipalityService(st, zap.NewNop())
}

func labels(rs []models.MunicipalityAPIResponse) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label
	}
	return out
}

func TestMunicipalityService_ExactMatchWins(t *testing.T) {
	svc := newTestMunicipalityService()
	got, err := svc.Search(context.Background(), "são paulo", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"São Paulo, SP"}, labels(got))
}

func TestMunicipalityService_AccentInsensitiveContains(t *testing.T) {
	svc := newTestMunicipalityService()
	got, err := svc.Search(context.Background(), "paul", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paulínia, SP", "São Paulo, SP"}, labels(got))

	got, err = svc.Search(context.Background(), "belem", "pb", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Belém, PB"}, labels(got))
}

func TestMunicipalityService_FirstWordFallback(t *testing.T) {
	svc := newTestMunicipalityService()
	got, err := svc.Search(context.Background(), "Monte Xyz", "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Monte Carmelo, MG"}, labels(got))
}

func TestMunicipalityService_EdgeCases(t *testing.T) {
	svc := newTestMunicipalityService()
	ctx := context.Background()

	got, err := svc.Search(ctx, " m ", "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Search(ctx, "zzzz", "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Search(ctx, "belem", "XX", 0)
	var verr *freight.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestMunicipalityService_Limit(t *testing.T) {
	st := store.NewMemoryStore()
	var ms []models.Municipality
	for i := 1; i <= 12; i++ {
		ms = append(ms, models.Municipality{ID: int64(i), Name: fmt.Sprintf("Cidade %02d", i), State: "SP"})
	}
	st.SeedMunicipalities(ms)
	svc := NewMunicipalityService(st, zap.NewNop())
	ctx := context.Background()

	got, err := svc.Search(ctx, "cidade", "", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultMunicipalityLimit)

	got, err = svc.Search(ctx, "cidade", "", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.Search(ctx, "cidade", "", 1000)
	require.NoError(t, err)
	assert.Len(t, got, 12)
}
