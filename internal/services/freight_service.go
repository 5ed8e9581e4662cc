package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brasul/fretes/internal/cache"
	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/events"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
)

const (
	facetsCacheKey     = "freight:facets"
	lastUpdateCacheKey = "freight:last_update"
)

// SearchResult is one page of listings plus the total match count.
type SearchResult struct {
	Items    []models.Freight `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// PublishInput is the form submitted by a shipper.
type PublishInput struct {
	Origin               string     `json:"origin"`
	Destination          string     `json:"destination"`
	CargoType            string     `json:"cargo_type"`
	TruckType            string     `json:"truck_type"`
	Value                *float64   `json:"value"`
	WeightKg             *float64   `json:"weight"`
	DistanceKm           *float64   `json:"freight_distance"`
	Contact              string     `json:"contact"`
	LoadingDate          *time.Time `json:"loading_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	Refrigerated         bool       `json:"refrigerated"`
	RequiresMopp         bool       `json:"requires_mopp"`
	TollIncluded         bool       `json:"toll_included"`
	TarpRequired         bool       `json:"tarp_required"`
	HasInsurance         bool       `json:"has_insurance"`
	HasTracker           bool       `json:"has_tracker"`
	LiveCargo            bool       `json:"live_cargo"`
	DryCargo             bool       `json:"dry_cargo"`
	SenderCompany        string     `json:"sender_company"`
	CargoContent         string     `json:"cargo_content"`
	Observations         string     `json:"observations"`
}

// IFreightService defines the listing operations.
type IFreightService interface {
	Search(ctx context.Context, values freight.FilterValues, page, size int) (*SearchResult, error)
	FindByID(ctx context.Context, id string) (*models.Freight, error)
	Publish(ctx context.Context, in PublishInput) (*models.Freight, error)
	Facets(ctx context.Context) (*models.FreightFacets, error)
	LastUpdate(ctx context.Context) (*time.Time, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// FreightServiceOptions tunes the listing service.
type FreightServiceOptions struct {
	PageSize int
	CacheTTL time.Duration
	Now      func() time.Time
}

type freightService struct {
	store     store.FreightStore
	catalog   *catalog.Catalog
	cache     cache.JSONCache
	publisher events.Publisher
	logger    *zap.Logger
	opts      FreightServiceOptions
}

// NewFreightService creates a new FreightService.
func NewFreightService(
	st store.FreightStore,
	cat *catalog.Catalog,
	c cache.JSONCache,
	publisher events.Publisher,
	logger *zap.Logger,
	opts FreightServiceOptions,
) IFreightService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PageSize == 0 {
		opts.PageSize = freight.DefaultPageSize
	}
	return &freightService{store: st, catalog: cat, cache: c, publisher: publisher, logger: logger, opts: opts}
}

// Search validates the filter values and fetches one page and the total
// count concurrently. The two reads are not a consistent snapshot.
func (s *freightService) Search(ctx context.Context, values freight.FilterValues, pageIndex, size int) (*SearchResult, error) {
	filter, err := freight.NewFilter(values)
	if err != nil {
		return nil, err
	}
	page := freight.NewPage(pageIndex, size, s.opts.PageSize)

	var (
		items []models.Freight
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.SearchFreights(gctx, filter, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountFreights(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("freight search failed", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to search freights: %w", err)
	}

	return &SearchResult{Items: items, Total: total, Page: page.Index, PageSize: page.Size}, nil
}

func (s *freightService) FindByID(ctx context.Context, id string) (*models.Freight, error) {
	f, err := s.store.FindFreightByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find freight %s: %w", id, err)
	}
	return f, nil
}

func validateRequired(in PublishInput) error {
	required := []struct {
		field, value, message string
	}{
		{"origin", in.Origin, "Origem é obrigatória"},
		{"destination", in.Destination, "Destino é obrigatório"},
		{"cargo_type", in.CargoType, "Tipo de carga é obrigatório"},
		{"truck_type", in.TruckType, "Tipo de caminhão é obrigatório"},
		{"contact", in.Contact, "Contato é obrigatório"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &freight.ValidationError{Field: r.field, Message: r.message}
		}
	}
	return nil
}

func roundCents(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := math.Round(*v*100) / 100
	return &n
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

// Publish validates and stores a new listing. Amounts are rounded to cents
// first, matching the NUMERIC(_, 2) columns. A non-positive value is stored
// as negotiable.
func (s *freightService) Publish(ctx context.Context, in PublishInput) (*models.Freight, error) {
	in.Value = roundCents(in.Value)
	in.WeightKg = roundCents(in.WeightKg)
	in.DistanceKm = roundCents(in.DistanceKm)
	if err := validateRequired(in); err != nil {
		return nil, err
	}
	if !s.catalog.HasCargoType(in.CargoType) {
		return nil, &freight.ValidationError{Field: "cargo_type", Message: "Tipo de carga inválido"}
	}
	if !s.catalog.HasTruckType(in.TruckType) {
		return nil, &freight.ValidationError{Field: "truck_type", Message: "Tipo de caminhão inválido"}
	}
	if in.WeightKg != nil && *in.WeightKg <= 0 {
		return nil, &freight.ValidationError{Field: "weight", Message: "O peso deve ser maior que zero"}
	}
	if in.DistanceKm != nil && *in.DistanceKm <= 0 {
		return nil, &freight.ValidationError{Field: "freight_distance", Message: "A distância deve ser maior que zero"}
	}

	now := s.opts.Now().UTC()
	f := &models.Freight{
		Base:                 models.NewBase(),
		CreatedAt:            now,
		UpdatedAt:            now,
		Origin:               strings.TrimSpace(in.Origin),
		Destination:          strings.TrimSpace(in.Destination),
		DistanceKm:           in.DistanceKm,
		Value:                positiveOrNil(in.Value),
		WeightKg:             in.WeightKg,
		CargoType:            in.CargoType,
		TruckType:            in.TruckType,
		Refrigerated:         in.Refrigerated,
		RequiresMopp:         in.RequiresMopp,
		TollIncluded:         in.TollIncluded,
		TarpRequired:         in.TarpRequired,
		HasInsurance:         in.HasInsurance,
		HasTracker:           in.HasTracker,
		LiveCargo:            in.LiveCargo,
		DryCargo:             in.DryCargo,
		Contact:              strings.TrimSpace(in.Contact),
		Date:                 now,
		LoadingDate:          in.LoadingDate,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Status:               models.FreightStatusAvailable,
		SenderCompany:        strings.TrimSpace(in.SenderCompany),
		CargoContent:         strings.TrimSpace(in.CargoContent),
		Observations:         strings.TrimSpace(in.Observations),
	}

	if err := s.store.InsertFreight(ctx, f); err != nil {
		s.logger.Error("failed to insert freight", zap.Error(err))
		return nil, fmt.Errorf("failed to publish freight: %w", err)
	}
	s.logger.Info("freight published",
		zap.String("freight_id", f.ID),
		zap.String("origin", f.Origin),
		zap.String("destination", f.Destination))

	s.invalidate(ctx)
	if err := s.publisher.Publish(ctx, events.FreightPublished, f.ID, f); err != nil {
		s.logger.Warn("failed to publish freight event", zap.String("freight_id", f.ID), zap.Error(err))
	}
	return f, nil
}

func (s *freightService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, facetsCacheKey, lastUpdateCacheKey); err != nil {
		s.logger.Warn("failed to invalidate freight cache", zap.Error(err))
	}
}

// Facets returns the sorted distinct values offered by the search filters.
func (s *freightService) Facets(ctx context.Context) (*models.FreightFacets, error) {
	var facets models.FreightFacets
	if err := s.cache.Get(ctx, facetsCacheKey, &facets); err == nil {
		return &facets, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("facet cache read failed", zap.Error(err))
	}

	targets := []struct {
		field string
		dst   *[]string
	}{
		{store.FacetOrigin, &facets.Origins},
		{store.FacetDestination, &facets.Destinations},
		{store.FacetCargoType, &facets.CargoTypes},
		{store.FacetTruckType, &facets.TruckTypes},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			values, err := s.store.DistinctFreightValues(gctx, t.field)
			if err != nil {
				return err
			}
			*t.dst = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load freight facets", zap.Error(err))
		return nil, fmt.Errorf("failed to load freight facets: %w", err)
	}

	if err := s.cache.Set(ctx, facetsCacheKey, facets, s.opts.CacheTTL); err != nil {
		s.logger.Warn("facet cache write failed", zap.Error(err))
	}
	return &facets, nil
}

type lastUpdateEntry struct {
	At *time.Time `json:"at"`
}

// LastUpdate returns the creation time of the newest listing, or nil when
// there is none.
func (s *freightService) LastUpdate(ctx context.Context) (*time.Time, error) {
	var entry lastUpdateEntry
	if err := s.cache.Get(ctx, lastUpdateCacheKey, &entry); err == nil {
		return entry.At, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("last update cache read failed", zap.Error(err))
	}

	at, err := s.store.LatestFreightCreatedAt(ctx)
	if err != nil {
		s.logger.Error("failed to read last update", zap.Error(err))
		return nil, fmt.Errorf("failed to read last update: %w", err)
	}
	if err := s.cache.Set(ctx, lastUpdateCacheKey, lastUpdateEntry{At: at}, s.opts.CacheTTL); err != nil {
		s.logger.Warn("last update cache write failed", zap.Error(err))
	}
	return at, nil
}

// Cleanup deletes listings created more than olderThan ago.
func (s *freightService) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, &freight.ValidationError{Field: "older_than", Message: "Período inválido"}
	}
	cutoff := s.opts.Now().UTC().Add(-olderThan)
	n, err := s.store.DeleteFreightsCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("freight cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("failed to clean up freights: %w", err)
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("freight cleanup finished", zap.Time("cutoff", cutoff), zap.Int64("deleted", n))
	return n, nil
}
