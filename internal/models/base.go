package models

import (
	"github.com/google/uuid"
)

// Base carries the document id shared by freights, agents and referrals.
// Mongo stores it as _id; Postgres as a uuid primary key.
type Base struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`
}

// GenIDIfEmpty assigns a fresh id unless the caller already set one.
func (m *Base) GenIDIfEmpty() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
}

func NewBase() Base {
	return Base{ID: uuid.NewString()}
}
