package freight

import (
	"time"

	"github.com/dustin/go-humanize"

	"brasul/fretes/internal/models"
)

const (
	Negotiable    = "A combinar"
	NotInformed   = "Não informado"
	NotAvailable  = "Não disponível"
	CommissionPct = 0.10

	dateLayout  = "02/01/2006"
	clockLayout = "15:04"
	brlPattern  = "#.###,##"
)

// FormatMoney renders an amount as Brazilian Real, e.g. "R$ 1.234,56".
func FormatMoney(amount float64) string {
	return "R$ " + humanize.FormatFloat(brlPattern, amount)
}

// FormatCurrency renders a listing value; nil or zero reads as negotiable.
func FormatCurrency(value *float64) string {
	if value == nil || *value == 0 {
		return Negotiable
	}
	return FormatMoney(*value)
}

// FormatDate renders dd/mm/yyyy in loc, or "Não informado" for nil.
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return NotInformed
	}
	return inLocation(*t, loc).Format(dateLayout)
}

// Commission is the flat agent commission on value.
func Commission(value *float64) *float64 {
	if value == nil {
		return nil
	}
	c := *value * CommissionPct
	return &c
}

// FormatBool renders a flag as "Sim" or "Não".
func FormatBool(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

// StatusLabel is the display name of a status.
func StatusLabel(s models.FreightStatus) string {
	switch s {
	case models.FreightStatusAvailable:
		return "Disponível"
	case models.FreightStatusInProgress:
		return "Em andamento"
	case models.FreightStatusCompleted:
		return "Concluído"
	}
	return string(s)
}

// FormatUpdateTime labels the time of the latest listing relative to now:
// "Hoje, 14:05h", "Ontem, 09:30h" or "02/01/2024, 08:00h".
func FormatUpdateTime(t *time.Time, now time.Time, loc *time.Location) string {
	if t == nil {
		return NotAvailable
	}
	local := inLocation(*t, loc)
	now = inLocation(now, loc)
	clock := local.Format(clockLayout) + "h"

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "Hoje, " + clock
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Ontem, " + clock
	}
	return local.Format(dateLayout) + ", " + clock
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// View is the display projection of a listing.
type View struct {
	models.Freight
	ValueLabel        string   `json:"value_label"`
	DateLabel         string   `json:"date_label"`
	LoadingDateLabel  string   `json:"loading_date_label"`
	DeliveryDateLabel string   `json:"expected_delivery_date_label"`
	StatusLabel       string   `json:"status_label"`
	Commission        *float64 `json:"commission"`
	CommissionLabel   string   `json:"commission_label"`
	RateLabel         string   `json:"rate_label,omitempty"`
	PerTonPricing     bool     `json:"per_ton_pricing"`
	ContactLink       string   `json:"contact_link,omitempty"`
}

// PresentOptions controls the rate mode and time zone of a View.
type PresentOptions struct {
	ShowPerKmRate bool
	Location      *time.Location
}

// Present builds the display projection of fr.
func Present(fr models.Freight, opts PresentOptions) View {
	var date *time.Time
	if !fr.Date.IsZero() {
		date = &fr.Date
	}
	commission := Commission(fr.Value)
	v := View{
		Freight:           fr,
		ValueLabel:        FormatCurrency(fr.Value),
		DateLabel:         FormatDate(date, opts.Location),
		LoadingDateLabel:  FormatDate(fr.LoadingDate, opts.Location),
		DeliveryDateLabel: FormatDate(fr.ExpectedDeliveryDate, opts.Location),
		StatusLabel:       StatusLabel(fr.Status),
		Commission:        commission,
		CommissionLabel:   FormatCurrency(commission),
		RateLabel:         FormatRate(CalculateRate(fr.Value, fr.WeightKg, fr.DistanceKm, opts.ShowPerKmRate)),
	}
	if fr.Value != nil {
		v.PerTonPricing = IsPerTonPricing(*fr.Value)
	}
	return v
}
