package models

import (
	"time"
)

// FreightStatus is the lifecycle state of a listing.
type FreightStatus string

const (
	FreightStatusAvailable  FreightStatus = "available"
	FreightStatusInProgress FreightStatus = "in_progress"
	FreightStatusCompleted  FreightStatus = "completed"
)

// Freight is a published cargo listing.
type Freight struct {
	Base      `bson:",inline"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	Origin      string   `bson:"origin" json:"origin"`           // "City, UF"
	Destination string   `bson:"destination" json:"destination"` // "City, UF"
	DistanceKm  *float64 `bson:"freight_distance,omitempty" json:"freight_distance,omitempty"`

	// Value is nil when the price is negotiable.
	Value    *float64 `bson:"value,omitempty" json:"value"`
	WeightKg *float64 `bson:"weight,omitempty" json:"weight,omitempty"`

	CargoType string `bson:"cargo_type" json:"cargo_type"`
	TruckType string `bson:"truck_type" json:"truck_type"`

	Refrigerated bool `bson:"refrigerated" json:"refrigerated"`
	RequiresMopp bool `bson:"requires_mopp" json:"requires_mopp"`
	TollIncluded bool `bson:"toll_included" json:"toll_included"`
	TarpRequired bool `bson:"tarp_required" json:"tarp_required"`
	HasInsurance bool `bson:"has_insurance" json:"has_insurance"`
	HasTracker   bool `bson:"has_tracker" json:"has_tracker"`
	LiveCargo    bool `bson:"live_cargo" json:"live_cargo"`
	DryCargo     bool `bson:"dry_cargo" json:"dry_cargo"`

	Contact              string     `bson:"contact" json:"contact"`
	Date                 time.Time  `bson:"date" json:"date"`
	LoadingDate          *time.Time `bson:"loading_date,omitempty" json:"loading_date,omitempty"`
	ExpectedDeliveryDate *time.Time `bson:"expected_delivery_date,omitempty" json:"expected_delivery_date,omitempty"`

	Status FreightStatus `bson:"status" json:"status"`

	SenderCompany string `bson:"sender_company,omitempty" json:"sender_company,omitempty"`
	CargoContent  string `bson:"cargo_content,omitempty" json:"cargo_content,omitempty"`
	Observations  string `bson:"observations,omitempty" json:"observations,omitempty"`
}

// FreightFacets holds the distinct values offered by the search filters.
type FreightFacets struct {
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	CargoTypes   []string `json:"cargo_types"`
	TruckTypes   []string `json:"truck_types"`
}
