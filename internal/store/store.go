// Package store defines the persistence interfaces used by the services and
// an in-memory implementation of them.
package store

import (
	"context"
	"errors"
	"time"

	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Distinct-able freight fields.
const (
	FacetOrigin      = "origin"
	FacetDestination = "destination"
	FacetCargoType   = "cargo_type"
	FacetTruckType   = "truck_type"
)

// FreightStore persists listings. Search results are ordered newest first by
// created_at, ties broken by id descending.
type FreightStore interface {
	InsertFreight(ctx context.Context, f *models.Freight) error
	FindFreightByID(ctx context.Context, id string) (*models.Freight, error)
	SearchFreights(ctx context.Context, filter freight.Filter, page freight.Page) ([]models.Freight, error)
	CountFreights(ctx context.Context, filter freight.Filter) (int64, error)
	DistinctFreightValues(ctx context.Context, field string) ([]string, error)
	LatestFreightCreatedAt(ctx context.Context) (*time.Time, error)
	DeleteFreightsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AgentStore persists agents. InsertAgent returns an error wrapping
// db.ErrDuplicateKey when the code is already taken.
type AgentStore interface {
	InsertAgent(ctx context.Context, a *models.Agent) error
	MaxAgentCode(ctx context.Context) (code string, exists bool, err error)
	FindAgentByCode(ctx context.Context, code string) (*models.Agent, error)
	ListAgents(ctx context.Context, activeOnly bool) ([]models.Agent, error)
	SetAgentActive(ctx context.Context, code string, active bool) error
}

// ReferralStore persists agent referrals.
type ReferralStore interface {
	InsertReferral(ctx context.Context, r *models.AgentReferral) error
	ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error)
}

// MunicipalityQuery selects municipalities by name. Exact matches the whole
// name case-insensitively; otherwise Name is a case-insensitive substring.
type MunicipalityQuery struct {
	Name  string
	Exact bool
	State string
	Limit int
}

// MunicipalityStore reads the municipality lookup table.
type MunicipalityStore interface {
	SearchMunicipalities(ctx context.Context, q MunicipalityQuery) ([]models.Municipality, error)
}

// Store bundles every repository behind one connection.
type Store interface {
	FreightStore
	AgentStore
	ReferralStore
	MunicipalityStore
	Close(ctx context.Context) error
}
