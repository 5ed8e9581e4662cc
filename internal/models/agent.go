package models

import (
	"time"
)

// Agent is a referral agent identified by a sequential 5-digit code.
type Agent struct {
	Base       `bson:",inline"`
	Code       string    `bson:"code" json:"code"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	Phone      string    `bson:"phone" json:"phone"`
	City       string    `bson:"city,omitempty" json:"city,omitempty"`
	Experience string    `bson:"experience,omitempty" json:"experience,omitempty"`
	Motivation string    `bson:"motivation,omitempty" json:"motivation,omitempty"`
	Active     bool      `bson:"active" json:"active"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// AgentReferral links an agent code to a freight contact.
type AgentReferral struct {
	Base        `bson:",inline"`
	FreightID   string    `bson:"freight_id" json:"freight_id"`
	AgentCode   string    `bson:"agent_code" json:"agent_code"`
	ContactDate time.Time `bson:"contact_date" json:"contact_date"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
