package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
	"brasul/fretes/internal/textfold"
)

const (
	DefaultMunicipalityLimit = 10
	MaxMunicipalityLimit     = 50
	minMunicipalityQuery     = 2
)

// IMunicipalityService defines the municipality autocomplete.
type IMunicipalityService interface {
	Search(ctx context.Context, query, state string, limit int) ([]models.MunicipalityAPIResponse, error)
}

type municipalityService struct {
	store  store.MunicipalityStore
	logger *zap.Logger
}

// NewMunicipalityService creates a new MunicipalityService.
func NewMunicipalityService(st store.MunicipalityStore, logger *zap.Logger) IMunicipalityService {
	return &municipalityService{store: st, logger: logger}
}

// Search tries an exact name match first, then an accent-insensitive
// substring match, then a substring match on the first word of the query.
// The first strategy with results wins.
func (s *municipalityService) Search(ctx context.Context, query, state string, limit int) ([]models.MunicipalityAPIResponse, error) {
	query = strings.Join(strings.Fields(query), " ")
	if len([]rune(query)) < minMunicipalityQuery {
		return []models.MunicipalityAPIResponse{}, nil
	}
	state = strings.ToUpper(strings.TrimSpace(state))
	if state != "" && !catalog.IsState(state) {
		return nil, &freight.ValidationError{Field: "state", Message: "Estado inválido"}
	}
	if limit <= 0 {
		limit = DefaultMunicipalityLimit
	}
	if limit > MaxMunicipalityLimit {
		limit = MaxMunicipalityLimit
	}

	attempts := []store.MunicipalityQuery{
		{Name: query, Exact: true, State: state, Limit: limit},
		{Name: query, State: state, Limit: limit},
	}
	if first := textfold.FirstWord(query); first != query && len([]rune(first)) >= minMunicipalityQuery {
		attempts = append(attempts, store.MunicipalityQuery{Name: first, State: state, Limit: limit})
	}

	for _, q := range attempts {
		found, err := s.store.SearchMunicipalities(ctx, q)
		if err != nil {
			s.logger.Error("municipality search failed", zap.String("query", q.Name), zap.Bool("exact", q.Exact), zap.Error(err))
			return nil, fmt.Errorf("failed to search municipalities: %w", err)
		}
		if len(found) > 0 {
			return toMunicipalityResponses(found), nil
		}
	}
	return []models.MunicipalityAPIResponse{}, nil
}

func toMunicipalityResponses(ms []models.Municipality) []models.MunicipalityAPIResponse {
	out := make([]models.MunicipalityAPIResponse, len(ms))
	for i, m := range ms {
		out[i] = models.MunicipalityAPIResponse{Name: m.Name, State: m.State, Label: m.Label()}
	}
	return out
}
