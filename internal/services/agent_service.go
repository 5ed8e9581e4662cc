package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"brasul/fretes/internal/db"
	"brasul/fretes/internal/events"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
)

// AgentInput is the agent sign-up form.
type AgentInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Experience string `json:"experience"`
	Motivation string `json:"motivation"`
}

// IAgentService defines the referral agent operations.
type IAgentService interface {
	GenerateAgentCode(ctx context.Context) (string, error)
	RegisterAgent(ctx context.Context, in AgentInput) (*models.Agent, error)
	FindByCode(ctx context.Context, code string) (*models.Agent, error)
	List(ctx context.Context, activeOnly bool) ([]models.Agent, error)
	SetActive(ctx context.Context, code string, active bool) error
}

type agentService struct {
	store      store.AgentStore
	emails     EmailQueue
	publisher  events.Publisher
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// NewAgentService creates a new AgentService.
func NewAgentService(st store.AgentStore, emails EmailQueue, publisher events.Publisher, logger *zap.Logger) IAgentService {
	return &agentService{
		store:      st,
		emails:     emails,
		publisher:  publisher,
		logger:     logger,
		maxRetries: db.DefaultMaxRetries,
		now:        time.Now,
	}
}

// GenerateAgentCode previews the code the next registration would get. It
// reserves nothing.
func (s *agentService) GenerateAgentCode(ctx context.Context) (string, error) {
	highest, exists, err := s.store.MaxAgentCode(ctx)
	if err != nil {
		s.logger.Error("failed to read highest agent code", zap.Error(err))
		return "", fmt.Errorf("failed to generate agent code: %w", err)
	}
	code, err := freight.NextAgentCode(highest, exists)
	if err != nil {
		return "", fmt.Errorf("failed to generate agent code: %w", err)
	}
	return code, nil
}

func validateAgent(in AgentInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &freight.ValidationError{Field: "name", Message: "Nome é obrigatório"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &freight.ValidationError{Field: "email", Message: "E-mail é obrigatório"}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return &freight.ValidationError{Field: "email", Message: "E-mail inválido"}
	}
	if strings.TrimSpace(in.Phone) == "" {
		return &freight.ValidationError{Field: "phone", Message: "Telefone é obrigatório"}
	}
	return nil
}

// RegisterAgent allocates the next free code and stores the agent. The
// unique index on the code turns a concurrent allocation into a duplicate
// key error, which db.WithRetries answers by reading the maximum again.
func (s *agentService) RegisterAgent(ctx context.Context, in AgentInput) (*models.Agent, error) {
	if err := validateAgent(in); err != nil {
		return nil, err
	}

	agent := &models.Agent{
		Base:       models.NewBase(),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		City:       strings.TrimSpace(in.City),
		Experience: strings.TrimSpace(in.Experience),
		Motivation: strings.TrimSpace(in.Motivation),
		Active:     true,
		CreatedAt:  s.now().UTC(),
	}

	err := db.WithRetries(func() error {
		code, err := s.GenerateAgentCode(ctx)
		if err != nil {
			return err
		}
		agent.Code = code
		return s.store.InsertAgent(ctx, agent)
	}, s.maxRetries, db.IsDuplicateKey)
	if err != nil {
		if db.IsDuplicateKey(err) {
			s.logger.Warn("agent code allocation exhausted retries", zap.Error(err))
			return nil, ErrCodeAllocation
		}
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}
	s.logger.Info("agent registered", zap.String("code", agent.Code))

	data := map[string]interface{}{"name": agent.Name, "code": agent.Code}
	if err := s.emails.EnqueueEmail(ctx, agent.Email, TemplateAgentWelcome, data); err != nil {
		s.logger.Warn("failed to enqueue agent welcome email", zap.String("code", agent.Code), zap.Error(err))
	}
	if err := s.publisher.Publish(ctx, events.AgentRegistered, agent.Code, agent); err != nil {
		s.logger.Warn("failed to publish agent event", zap.String("code", agent.Code), zap.Error(err))
	}
	return agent, nil
}

func (s *agentService) FindByCode(ctx context.Context, code string) (*models.Agent, error) {
	if !freight.ValidAgentCode(code) {
		return nil, &freight.ValidationError{Field: "code", Message: "Código de agenciador inválido"}
	}
	a, err := s.store.FindAgentByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find agent %s: %w", code, err)
	}
	return a, nil
}

func (s *agentService) List(ctx context.Context, activeOnly bool) ([]models.Agent, error) {
	agents, err := s.store.ListAgents(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

func (s *agentService) SetActive(ctx context.Context, code string, active bool) error {
	if err := s.store.SetAgentActive(ctx, code, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update agent %s: %w", code, err)
	}
	s.logger.Info("agent status changed", zap.String("code", code), zap.Bool("active", active))
	return nil
}
