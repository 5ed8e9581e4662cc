// Package catalog holds the vocabularies offered by the listing forms.
package catalog

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var defaultCargoTypes = []string{
	"Grãos", "Madeira", "Materiais de Construção", "Alimentos", "Eletrônicos",
	"Móveis", "Produtos Agrícolas", "Carga Geral", "Veículos", "Combustível",
	"Congelados", "Carga Perigosa", "Produtos Químicos", "Têxteis", "Bebidas",
}

var defaultTruckTypes = []string{
	"Truck", "Bi-Truck", "Carreta", "Grade Baixa", "Grade Alta", "Baú",
	"Refrigerado", "Caçamba", "Tanque", "Porta Container", "Sider",
	"Cegonha", "Prancha",
}

var states = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS",
	"MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC",
	"SP", "SE", "TO",
}

// Catalog lists the cargo and truck types a listing may declare.
type Catalog struct {
	CargoTypes []string `yaml:"cargo_types" json:"cargo_types"`
	TruckTypes []string `yaml:"truck_types" json:"truck_types"`
	States     []string `yaml:"-" json:"states"`
}

// Default returns the built-in vocabulary.
func Default() *Catalog {
	return &Catalog{
		CargoTypes: slices.Clone(defaultCargoTypes),
		TruckTypes: slices.Clone(defaultTruckTypes),
		States:     slices.Clone(states),
	}
}

// Load reads an optional YAML overlay. Lists present in the file replace the
// defaults; an empty path returns Default().
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(overlay.CargoTypes) > 0 {
		c.CargoTypes = overlay.CargoTypes
	}
	if len(overlay.TruckTypes) > 0 {
		c.TruckTypes = overlay.TruckTypes
	}
	return c, nil
}

// HasCargoType reports whether t is an accepted cargo type.
func (c *Catalog) HasCargoType(t string) bool {
	return slices.Contains(c.CargoTypes, t)
}

// HasTruckType reports whether t is an accepted truck type.
func (c *Catalog) HasTruckType(t string) bool {
	return slices.Contains(c.TruckTypes, t)
}

// IsState reports whether uf is one of the 27 federative unit codes.
func IsState(uf string) bool {
	return slices.Contains(states, uf)
}
