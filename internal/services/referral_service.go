package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"brasul/fretes/internal/events"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
)

// ContactSettings locates the WhatsApp contact and the public site.
type ContactSettings struct {
	ServiceURL string // e.g. "https://wa.me/"
	Phone      string
	SiteURL    string
}

// IReferralService defines the agent referral operations.
type IReferralService interface {
	RecordReferral(ctx context.Context, freightID, agentCode string) (string, error)
	ContactLink(ctx context.Context, freightID, agentCode string) (string, error)
	ShareLink(agentCode, freightID string) (string, error)
	ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error)
}

type referralService struct {
	store     store.Store
	emails    EmailQueue
	publisher events.Publisher
	contact   ContactSettings
	logger    *zap.Logger
	now       func() time.Time
}

// NewReferralService creates a new ReferralService.
func NewReferralService(st store.Store, emails EmailQueue, publisher events.Publisher, contact ContactSettings, logger *zap.Logger) IReferralService {
	return &referralService{
		store:     st,
		emails:    emails,
		publisher: publisher,
		contact:   contact,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *referralService) activeAgent(ctx context.Context, code string) (*models.Agent, error) {
	if !freight.ValidAgentCode(code) {
		return nil, &freight.ValidationError{Field: "agent_code", Message: "Código de agenciador inválido"}
	}
	agent, err := s.store.FindAgentByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find agent %s: %w", code, err)
	}
	if !agent.Active {
		return nil, ErrAgentInactive
	}
	return agent, nil
}

func (s *referralService) findFreight(ctx context.Context, id string) (*models.Freight, error) {
	f, err := s.store.FindFreightByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find freight %s: %w", id, err)
	}
	return f, nil
}

// RecordReferral stores that a carrier contacted the shipper of freightID
// through agentCode's link and returns the WhatsApp deep link carrying the
// code.
func (s *referralService) RecordReferral(ctx context.Context, freightID, agentCode string) (string, error) {
	agent, err := s.activeAgent(ctx, agentCode)
	if err != nil {
		return "", err
	}
	if _, err := s.findFreight(ctx, freightID); err != nil {
		return "", err
	}

	now := s.now().UTC()
	ref := &models.AgentReferral{
		Base:        models.NewBase(),
		FreightID:   freightID,
		AgentCode:   agent.Code,
		ContactDate: now,
		CreatedAt:   now,
	}
	if err := s.store.InsertReferral(ctx, ref); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		s.logger.Error("failed to record referral", zap.String("freight_id", freightID), zap.String("agent_code", agentCode), zap.Error(err))
		return "", fmt.Errorf("failed to record referral: %w", err)
	}
	s.logger.Info("referral recorded", zap.String("freight_id", freightID), zap.String("agent_code", agent.Code))

	data := map[string]interface{}{"name": agent.Name, "code": agent.Code, "freight_id": freightID}
	if err := s.emails.EnqueueEmail(ctx, agent.Email, TemplateReferralNotice, data); err != nil {
		s.logger.Warn("failed to enqueue referral notice", zap.String("agent_code", agent.Code), zap.Error(err))
	}
	if err := s.publisher.Publish(ctx, events.ReferralRecorded, freightID, ref); err != nil {
		s.logger.Warn("failed to publish referral event", zap.String("freight_id", freightID), zap.Error(err))
	}

	return freight.ContactLink(s.contact.ServiceURL, s.contact.Phone, freightID, agent.Code), nil
}

// ContactLink returns the deep link for freightID. A non-empty agentCode must
// name an active agent; nothing is recorded.
func (s *referralService) ContactLink(ctx context.Context, freightID, agentCode string) (string, error) {
	if agentCode != "" {
		if _, err := s.activeAgent(ctx, agentCode); err != nil {
			return "", err
		}
	}
	if _, err := s.findFreight(ctx, freightID); err != nil {
		return "", err
	}
	return freight.ContactLink(s.contact.ServiceURL, s.contact.Phone, freightID, agentCode), nil
}

func (s *referralService) ShareLink(agentCode, freightID string) (string, error) {
	if !freight.ValidAgentCode(agentCode) {
		return "", &freight.ValidationError{Field: "agent_code", Message: "Código de agenciador inválido"}
	}
	if freightID == "" {
		return "", &freight.ValidationError{Field: "freight_id", Message: "Frete é obrigatório"}
	}
	return freight.ReferralLink(s.contact.SiteURL, agentCode, freightID), nil
}

func (s *referralService) ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error) {
	refs, err := s.store.ListReferrals(ctx, agentCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return refs, nil
}
