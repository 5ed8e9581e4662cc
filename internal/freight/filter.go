package freight

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/models"
)

// AllSentinel is the select value meaning "no constraint".
const AllSentinel = "all"

// Persisted field names referenced by predicates.
const (
	FieldOrigin       = "origin"
	FieldDestination  = "destination"
	FieldCargoType    = "cargo_type"
	FieldTruckType    = "truck_type"
	FieldValue        = "value"
	FieldWeight       = "weight"
	FieldRefrigerated = "refrigerated"
	FieldRequiresMopp = "requires_mopp"
	FieldTollIncluded = "toll_included"
)

// Op is a predicate operator understood by every store.
type Op int

const (
	OpContains Op = iota // case-insensitive substring
	OpSuffix             // case-insensitive suffix
	OpEquals
	OpGte
	OpLte
	OpIsTrue
)

// Predicate is one conjunct of a freight query. Value is a string for
// OpContains, OpSuffix and OpEquals, a float64 for OpGte and OpLte and nil for
// OpIsTrue.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

// FilterValues is the raw filter form as submitted by a client.
type FilterValues struct {
	Origin        string
	Destination   string
	OriginState   string
	CargoType     string
	TruckType     string
	MinValue      string
	MaxValue      string
	MinWeight     string
	MaxWeight     string
	Refrigerated  bool
	RequiresMopp  bool
	TollIncluded  bool
	ShowPerKmRate bool
}

// DefaultFilterValues returns the form in its reset state.
func DefaultFilterValues() FilterValues {
	return FilterValues{
		Origin:      AllSentinel,
		Destination: AllSentinel,
		OriginState: AllSentinel,
		CargoType:   AllSentinel,
		TruckType:   AllSentinel,
	}
}

// Filter is a validated set of constraints. The zero Filter matches every
// listing.
type Filter struct {
	Origin       string
	Destination  string
	OriginState  string
	CargoType    string
	TruckType    string
	MinValue     *float64
	MaxValue     *float64
	MinWeight    *float64
	MaxWeight    *float64
	Refrigerated bool
	RequiresMopp bool
	TollIncluded bool
}

// NewFilter normalizes and validates raw filter values.
func NewFilter(v FilterValues) (Filter, error) {
	f := Filter{
		Origin:       textValue(v.Origin),
		Destination:  textValue(v.Destination),
		CargoType:    textValue(v.CargoType),
		TruckType:    textValue(v.TruckType),
		Refrigerated: v.Refrigerated,
		RequiresMopp: v.RequiresMopp,
		TollIncluded: v.TollIncluded,
	}

	if uf := strings.ToUpper(textValue(v.OriginState)); uf != "" {
		if !catalog.IsState(uf) {
			return Filter{}, invalid("origin_state", "Estado inválido")
		}
		f.OriginState = uf
	}

	var err error
	if f.MinValue, err = parseAmount("min_value", v.MinValue); err != nil {
		return Filter{}, err
	}
	if f.MaxValue, err = parseAmount("max_value", v.MaxValue); err != nil {
		return Filter{}, err
	}
	if f.MinWeight, err = parseAmount("min_weight", v.MinWeight); err != nil {
		return Filter{}, err
	}
	if f.MaxWeight, err = parseAmount("max_weight", v.MaxWeight); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func textValue(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AllSentinel) {
		return ""
	}
	return s
}

// thousandsOnly matches integers grouped with dots, e.g. "1.234" or
// "12.345.678".
var thousandsOnly = regexp.MustCompile(`^[1-9][0-9]{0,2}(\.[0-9]{3})+$`)

// ParseDecimal accepts "1234.5", "1.234,5" and "1.234" style numbers. With a
// comma present, dots are thousands separators. Without one, a dot followed
// by groups of exactly three digits is read as a thousands separator too
// ("1.234" is 1234); any other dot is the decimal point ("1.5", "0.125").
// NaN and infinities are rejected.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return n, nil
}

func parseAmount(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := ParseDecimal(raw)
	if err != nil {
		return nil, invalid(field, "Número inválido")
	}
	if n < 0 {
		return nil, invalid(field, "O valor não pode ser negativo")
	}
	return &n, nil
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.Predicates()) == 0
}

// Predicates returns the conjunction in a stable order.
func (f Filter) Predicates() []Predicate {
	var ps []Predicate
	if f.Origin != "" {
		ps = append(ps, Predicate{Field: FieldOrigin, Op: OpContains, Value: f.Origin})
	}
	if f.Destination != "" {
		ps = append(ps, Predicate{Field: FieldDestination, Op: OpContains, Value: f.Destination})
	}
	if f.OriginState != "" {
		ps = append(ps, Predicate{Field: FieldOrigin, Op: OpSuffix, Value: ", " + f.OriginState})
	}
	if f.CargoType != "" {
		ps = append(ps, Predicate{Field: FieldCargoType, Op: OpEquals, Value: f.CargoType})
	}
	if f.TruckType != "" {
		ps = append(ps, Predicate{Field: FieldTruckType, Op: OpEquals, Value: f.TruckType})
	}
	if f.MinValue != nil {
		ps = append(ps, Predicate{Field: FieldValue, Op: OpGte, Value: *f.MinValue})
	}
	if f.MaxValue != nil {
		ps = append(ps, Predicate{Field: FieldValue, Op: OpLte, Value: *f.MaxValue})
	}
	if f.MinWeight != nil {
		ps = append(ps, Predicate{Field: FieldWeight, Op: OpGte, Value: *f.MinWeight})
	}
	if f.MaxWeight != nil {
		ps = append(ps, Predicate{Field: FieldWeight, Op: OpLte, Value: *f.MaxWeight})
	}
	if f.Refrigerated {
		ps = append(ps, Predicate{Field: FieldRefrigerated, Op: OpIsTrue})
	}
	if f.RequiresMopp {
		ps = append(ps, Predicate{Field: FieldRequiresMopp, Op: OpIsTrue})
	}
	if f.TollIncluded {
		ps = append(ps, Predicate{Field: FieldTollIncluded, Op: OpIsTrue})
	}
	return ps
}

// Matches evaluates the filter against a listing in memory. A listing with a
// null value or weight never satisfies a range on that field.
func (f Filter) Matches(fr models.Freight) bool {
	for _, p := range f.Predicates() {
		if !p.Matches(fr) {
			return false
		}
	}
	return true
}

// Matches evaluates a single predicate.
func (p Predicate) Matches(fr models.Freight) bool {
	switch p.Op {
	case OpContains:
		return strings.Contains(strings.ToLower(textField(fr, p.Field)), strings.ToLower(p.Value.(string)))
	case OpSuffix:
		return strings.HasSuffix(strings.ToLower(textField(fr, p.Field)), strings.ToLower(p.Value.(string)))
	case OpEquals:
		return textField(fr, p.Field) == p.Value.(string)
	case OpGte:
		n := numberField(fr, p.Field)
		return n != nil && *n >= p.Value.(float64)
	case OpLte:
		n := numberField(fr, p.Field)
		return n != nil && *n <= p.Value.(float64)
	case OpIsTrue:
		return flagField(fr, p.Field)
	}
	return false
}

func textField(fr models.Freight, field string) string {
	switch field {
	case FieldOrigin:
		return fr.Origin
	case FieldDestination:
		return fr.Destination
	case FieldCargoType:
		return fr.CargoType
	case FieldTruckType:
		return fr.TruckType
	}
	return ""
}

func numberField(fr models.Freight, field string) *float64 {
	switch field {
	case FieldValue:
		return fr.Value
	case FieldWeight:
		return fr.WeightKg
	}
	return nil
}

func flagField(fr models.Freight, field string) bool {
	switch field {
	case FieldRefrigerated:
		return fr.Refrigerated
	case FieldRequiresMopp:
		return fr.RequiresMopp
	case FieldTollIncluded:
		return fr.TollIncluded
	}
	return false
}
