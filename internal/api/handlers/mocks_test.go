package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/services"
)

// --- Mocks ---

// MockFreightService implements services.IFreightService
type MockFreightService struct {
	mock.Mock
}

func (m *MockFreightService) Search(ctx context.Context, values freight.FilterValues, page, size int) (*services.SearchResult, error) {
	args := m.Called(ctx, values, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SearchResult), args.Error(1)
}

func (m *MockFreightService) FindByID(ctx context.Context, id string) (*models.Freight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Freight), args.Error(1)
}

func (m *MockFreightService) Publish(ctx context.Context, in services.PublishInput) (*models.Freight, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Freight), args.Error(1)
}

func (m *MockFreightService) Facets(ctx context.Context) (*models.FreightFacets, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FreightFacets), args.Error(1)
}

func (m *MockFreightService) LastUpdate(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockFreightService) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockAgentService implements services.IAgentService
type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) GenerateAgentCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAgentService) RegisterAgent(ctx context.Context, in services.AgentInput) (*models.Agent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAgentService) FindByCode(ctx context.Context, code string) (*models.Agent, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAgentService) List(ctx context.Context, activeOnly bool) ([]models.Agent, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Agent), args.Error(1)
}

func (m *MockAgentService) SetActive(ctx context.Context, code string, active bool) error {
	args := m.Called(ctx, code, active)
	return args.Error(0)
}

// MockReferralService implements services.IReferralService
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) RecordReferral(ctx context.Context, freightID, agentCode string) (string, error) {
	args := m.Called(ctx, freightID, agentCode)
	return args.String(0), args.Error(1)
}

func (m *MockReferralService) ContactLink(ctx context.Context, freightID, agentCode string) (string, error) {
	args := m.Called(ctx, freightID, agentCode)
	return args.String(0), args.Error(1)
}

func (m *MockReferralService) ShareLink(agentCode, freightID string) (string, error) {
	args := m.Called(agentCode, freightID)
	return args.String(0), args.Error(1)
}

func (m *MockReferralService) ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error) {
	args := m.Called(ctx, agentCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AgentReferral), args.Error(1)
}

// MockMunicipalityService implements services.IMunicipalityService
type MockMunicipalityService struct {
	mock.Mock
}

func (m *MockMunicipalityService) Search(ctx context.Context, query, state string, limit int) ([]models.MunicipalityAPIResponse, error) {
	args := m.Called(ctx, query, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MunicipalityAPIResponse), args.Error(1)
}
