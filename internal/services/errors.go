package services

import (
	"context"
	"errors"
)

var (
	// ErrCodeAllocation is returned when no unique agent code could be
	// reserved within the retry budget.
	ErrCodeAllocation = errors.New("could not allocate agent code")
	// ErrAgentInactive is returned when a referral names a disabled agent.
	ErrAgentInactive = errors.New("agent is not active")
	// ErrStaleSearch is returned for a search superseded by a newer one from
	// the same session.
	ErrStaleSearch = errors.New("search superseded by a newer request")
)

// Email template ids.
const (
	TemplateAgentWelcome   = "agent_welcome"
	TemplateReferralNotice = "referral_notice"
)

// EmailQueue schedules templated emails for background delivery.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error
}

// NopEmailQueue drops every email.
type NopEmailQueue struct{}

func (NopEmailQueue) EnqueueEmail(context.Context, string, string, map[string]interface{}) error {
	return nil
}
