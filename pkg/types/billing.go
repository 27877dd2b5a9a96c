package types

import (
	"math"
	"time"
)

// BillingLine is one line of the supplier's billing computation exactly as
// the portal sends it. Numbers are locale formatted strings.
type BillingLine struct {
	LineType  string `json:"linieType"`
	Text      string `json:"tekst"`
	Unit      string `json:"enhed"`
	Quantity  string `json:"antalEnheder"`
	UnitPrice string `json:"enhedPris"`
	PriceUnit string `json:"prisEnhed"`
	Extra     string `json:"ekstra"`
	Total     string `json:"ialt"`
	Opl1      string `json:"opl1"`
	Opl2      string `json:"opl2"`
	Opl3      string `json:"opl3"`
	Opl4      string `json:"opl4"`
}

// BillingRecord summarizes the billing computation for the current billing
// year. Quantities are in kWh and m3, amounts in the supplier's currency.
type BillingRecord struct {
	Date time.Time `json:"date"`

	// EnergyPrice is the weighted average price per MWh over all used-energy
	// lines.
	EnergyPrice  float64 `json:"energyPrice"`
	EnergyAmount float64 `json:"energyAmount"`
	// WaterPrice is the unit price of the fixed contribution.
	WaterPrice  float64 `json:"waterPrice"`
	WaterAmount float64 `json:"waterAmount"`

	VATAmount   float64 `json:"vatAmount"`
	TotalAmount float64 `json:"totalAmount"`
	// PaidAmount is the negated advance line; the portal reports advances
	// as negative amounts.
	PaidAmount float64 `json:"paidAmount"`
	// RemainingAmount is positive when the consumer owes the supplier and
	// negative when the supplier refunds.
	RemainingAmount float64 `json:"remainingAmount"`

	EnergyUsed     float64 `json:"energyUsed"`
	EnergyForecast float64 `json:"energyForecast"`
	WaterUsed      float64 `json:"waterUsed"`
	WaterForecast  float64 `json:"waterForecast"`

	// Unclassified holds lines that matched no known shape.
	Unclassified []BillingLine `json:"unclassified,omitempty"`
}

// Values returns the flat sensor values contributed by billing.
func (b BillingRecord) Values() map[string]float64 {
	return map[string]float64{
		KeyEnergyTotalUsed:    b.EnergyUsed,
		KeyEnergyUsePrognosis: math.Round((b.EnergyUsed+b.EnergyForecast)*1000) / 1000,
		KeyWaterTotalUsed:     b.WaterUsed,
		KeyWaterUsePrognosis:  b.WaterForecast,
		KeyAmountRemaining:    b.RemainingAmount,
	}
}
