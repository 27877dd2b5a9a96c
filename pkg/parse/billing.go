package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type billingResponse struct {
	Lines []types.BillingLine `json:"faktlini"`
}

// Billing parses the billing computation for the current billing year.
// Energy quantities are converted to kWh and EnergyPrice is the weighted
// average price per MWh over every used-energy line, as some suppliers split
// the year into several price tiers.
func Billing(raw []byte, now time.Time) (types.BillingRecord, error) {
	var res billingResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return types.BillingRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	rec := types.BillingRecord{Date: now}
	var energyUsedAmount float64
	for i, line := range res.Lines {
		cat := ClassifyLine(line)
		if err := applyLine(&rec, &energyUsedAmount, cat, line); err != nil {
			return types.BillingRecord{}, fmt.Errorf("line %d (%s): %w", i, cat, err)
		}
	}
	if rec.EnergyUsed != 0 {
		rec.EnergyPrice = round(energyUsedAmount/rec.EnergyUsed*1000, 2)
	}
	return rec, nil
}

func applyLine(rec *types.BillingRecord, energyUsedAmount *float64, cat LineCategory, line types.BillingLine) error {
	nums := &numbers{}
	amount := func() float64 { return nums.get(FlexString(line.Total)) }

	switch cat {
	case LineFixedContribution:
		rec.WaterAmount = amount()
		quantity := nums.get(FlexString(line.Quantity))
		if quantity != 0 {
			rec.WaterPrice = round(rec.WaterAmount/quantity, 2)
		}
		// area contributions are priced per m2 of heated area
		if volumeUnits.Contains(normalizeUnit(line.Unit)) {
			rec.WaterForecast = quantity
		}
	case LineFixedAmount:
		rec.WaterAmount = amount()
	case LineEnergyForecast:
		rec.EnergyForecast = round(rec.EnergyForecast+nums.get(FlexString(line.Quantity), Scale(EnergyScale(line.Unit))), 3)
	case LineEnergyUsed:
		*energyUsedAmount += amount()
		rec.EnergyUsed = round(rec.EnergyUsed+nums.get(FlexString(line.Quantity), Scale(EnergyScale(line.Unit))), 3)
	case LineWaterUsed:
		rec.WaterUsed = round(rec.WaterUsed+nums.get(FlexString(line.Quantity)), 3)
	case LineVAT:
		rec.VATAmount = amount()
	case LineEnergyTotal:
		rec.EnergyAmount = amount()
	case LineGrandTotal:
		rec.TotalAmount = amount()
	case LineRefund:
		rec.RemainingAmount = -amount()
	case LinePaymentDue:
		rec.RemainingAmount = amount()
	case LineAdvancePaid:
		rec.PaidAmount = -amount()
	case LineUnclassified:
		rec.Unclassified = append(rec.Unclassified, line)
	}
	return nums.err
}
