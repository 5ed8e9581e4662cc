package models

import (
	"fmt"
)

// Municipality is an entry of the city/state lookup table.
type Municipality struct {
	ID    int64  `bson:"_id,omitempty" json:"id,omitempty"`
	Name  string `bson:"name" json:"name"`
	State string `bson:"state" json:"state"`
	Lat   string `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng   string `bson:"lng,omitempty" json:"lng,omitempty"`
}

// Label renders the "City, UF" form used by listing routes.
func (m Municipality) Label() string {
	return fmt.Sprintf("%s, %s", m.Name, m.State)
}

// MunicipalityAPIResponse defines the structure for municipality data returned by APIs.
type MunicipalityAPIResponse struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Label string `json:"label"`
}
