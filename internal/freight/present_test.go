package freight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"brasul/fretes/internal/models"
)

var brt = time.FixedZone("BRT", -3*60*60)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "A combinar", FormatCurrency(nil))
	assert.Equal(t, "A combinar", FormatCurrency(f64(0)))
	assert.Equal(t, "R$ 5,00", FormatCurrency(f64(5)))
	assert.Equal(t, "R$ 1.234,56", FormatCurrency(f64(1234.56)))
	assert.Equal(t, "R$ 1.000.000,00", FormatCurrency(f64(1000000)))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Não informado", FormatDate(nil, brt))

	d := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "05/03/2024", FormatDate(&d, nil))

	early := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "04/03/2024", FormatDate(&early, brt))
}

func TestCommission(t *testing.T) {
	assert.Nil(t, Commission(nil))
	assert.InDelta(t, 150.0, *Commission(f64(1500)), 1e-9)
}

func TestFormatUpdateTime(t *testing.T) {
	now := time.Date(2024, 3, 5, 15, 0, 0, 0, brt)
	today := time.Date(2024, 3, 5, 14, 5, 0, 0, brt)
	yesterday := time.Date(2024, 3, 4, 9, 30, 0, 0, brt)
	older := time.Date(2024, 1, 2, 8, 0, 0, 0, brt)

	assert.Equal(t, "Hoje, 14:05h", FormatUpdateTime(&today, now, brt))
	assert.Equal(t, "Ontem, 09:30h", FormatUpdateTime(&yesterday, now, brt))
	assert.Equal(t, "02/01/2024, 08:00h", FormatUpdateTime(&older, now, brt))
	assert.Equal(t, "Não disponível", FormatUpdateTime(nil, now, brt))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Sim", FormatBool(true))
	assert.Equal(t, "Não", FormatBool(false))
	assert.Equal(t, "Disponível", StatusLabel(models.FreightStatusAvailable))
	assert.Equal(t, "Em andamento", StatusLabel(models.FreightStatusInProgress))
	assert.Equal(t, "Concluído", StatusLabel(models.FreightStatusCompleted))
}

func TestPresent(t *testing.T) {
	fr := models.Freight{
		Origin:      "Montes Claros, MG",
		Destination: "São Paulo, SP",
		Value:       f64(500),
		WeightKg:    f64(2000),
		DistanceKm:  f64(100),
		Date:        time.Date(2024, 3, 5, 12, 0, 0, 0, brt),
		Status:      models.FreightStatusAvailable,
	}

	v := Present(fr, PresentOptions{Location: brt})
	assert.Equal(t, "R$ 500,00", v.ValueLabel)
	assert.Equal(t, "05/03/2024", v.DateLabel)
	assert.Equal(t, "Não informado", v.LoadingDateLabel)
	assert.Equal(t, "R$ 50,00", v.CommissionLabel)
	assert.Equal(t, "R$ 5,00 /ton/km", v.RateLabel)
	assert.Equal(t, "Disponível", v.StatusLabel)
	assert.True(t, v.PerTonPricing)

	negotiable := Present(models.Freight{}, PresentOptions{ShowPerKmRate: true})
	assert.Equal(t, "A combinar", negotiable.ValueLabel)
	assert.Equal(t, "A combinar", negotiable.CommissionLabel)
	assert.Nil(t, negotiable.Commission)
	assert.Empty(t, negotiable.RateLabel)
	assert.Equal(t, "Não informado", negotiable.DateLabel)
}
