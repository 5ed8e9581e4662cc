package freight

// PerTonThreshold separates per-ton prices (below) from whole-shipment
// prices (at or above).
const PerTonThreshold = 1000.0

// RateMode is the unit a rate is expressed in.
type RateMode int

const (
	PerKm RateMode = iota
	PerTonKm
)

// Suffix is the display unit appended after the amount.
func (m RateMode) Suffix() string {
	if m == PerKm {
		return " /km"
	}
	return " /ton/km"
}

// Rate is a comparison price derived from a listing.
type Rate struct {
	Amount float64
	Mode   RateMode
}

// String renders the rate as "R$ 5,00 /ton/km".
func (r Rate) String() string {
	return FormatMoney(r.Amount) + r.Mode.Suffix()
}

// FormatRate renders r, or "" when no rate is computable.
func FormatRate(r *Rate) string {
	if r == nil {
		return ""
	}
	return r.String()
}

// IsPerTonPricing reports whether value is read as a per-ton price.
func IsPerTonPricing(value float64) bool {
	return value < PerTonThreshold
}

// CalculateRate derives a per-km (showPerKmRate) or per-ton-per-km rate.
// Nil or non-positive inputs count as absent; it returns nil when the
// inputs needed for the requested mode are missing.
func CalculateRate(value, weightKg, distanceKm *float64, showPerKmRate bool) *Rate {
	v, ok := present(value)
	if !ok {
		return nil
	}
	d, ok := present(distanceKm)
	if !ok {
		return nil
	}
	w, hasWeight := present(weightKg)
	tons := w / 1000

	if showPerKmRate {
		if !hasWeight {
			return nil
		}
		if IsPerTonPricing(v) {
			return &Rate{Amount: v * tons / d, Mode: PerKm}
		}
		return &Rate{Amount: v / d, Mode: PerKm}
	}

	if IsPerTonPricing(v) {
		return &Rate{Amount: v / d, Mode: PerTonKm}
	}
	if !hasWeight {
		return nil
	}
	return &Rate{Amount: v / (tons * d), Mode: PerTonKm}
}

func present(n *float64) (float64, bool) {
	if n == nil || *n <= 0 {
		return 0, false
	}
	return *n, true
}
