package types

// Flat sensor keys. Heating records carry the temperature, energy and water
// keys; water records carry the water keys plus the year-to-date keys.
const (
	KeyTempForward   = "temp-forward"
	KeyTempReturn    = "temp-return"
	KeyTempExpReturn = "temp-exp-return"
	KeyTempCooling   = "temp-cooling"

	KeyEnergyStart   = "energy-start"
	KeyEnergyEnd     = "energy-end"
	KeyEnergyUsed    = "energy-used"
	KeyEnergyExpUsed = "energy-exp-used"
	KeyEnergyExpEnd  = "energy-exp-end"

	KeyWaterStart   = "water-start"
	KeyWaterEnd     = "water-end"
	KeyWaterUsed    = "water-used"
	KeyWaterExpUsed = "water-exp-used"
	KeyWaterExpEnd  = "water-exp-end"

	KeyWaterYTDUsed    = "water-ytd-used"
	KeyWaterExpYTDUsed = "water-exp-ytd-used"
	KeyWaterExpFYUsed  = "water-exp-fy-used"

	// counters the portal reports that have no known meaning
	KeyExtraStart = "extra-start"
	KeyExtraEnd   = "extra-end"
	KeyExtraUsed  = "extra-used"

	KeyEnergyTotalUsed    = "energy-total-used"
	KeyEnergyUsePrognosis = "energy-use-prognosis"
	KeyWaterTotalUsed     = "water-total-used"
	KeyWaterUsePrognosis  = "water-use-prognosis"
	KeyAmountRemaining    = "amount-remaining"
)

// HeatingKeys is the flat key set of every heating record.
var HeatingKeys = []string{
	KeyTempForward, KeyTempReturn, KeyTempExpReturn, KeyTempCooling,
	KeyEnergyStart, KeyEnergyEnd, KeyEnergyUsed, KeyEnergyExpUsed, KeyEnergyExpEnd,
	KeyWaterStart, KeyWaterEnd, KeyWaterUsed, KeyWaterExpUsed, KeyWaterExpEnd,
}

// WaterKeys is the flat key set of every water record.
var WaterKeys = []string{
	KeyWaterStart, KeyWaterEnd, KeyWaterUsed, KeyWaterExpUsed, KeyWaterExpEnd,
	KeyWaterYTDUsed, KeyWaterExpYTDUsed, KeyWaterExpFYUsed,
}

// BillingKeys are merged into a heating record's flat values when billing was
// fetched.
var BillingKeys = []string{
	KeyEnergyTotalUsed, KeyEnergyUsePrognosis, KeyWaterTotalUsed, KeyWaterUsePrognosis, KeyAmountRemaining,
}

// MeteringRecord is the normalized result of one fetch cycle.
//
// Values always reflects the most recent period in the response while Data
// keeps every period for charting. Energy is in kWh, water in m3 and
// temperatures in degrees Celsius.
type MeteringRecord struct {
	Kind      InstallationKind   `json:"kind"`
	YearStart string             `json:"yearStart,omitempty"`
	YearEnd   string             `json:"yearEnd,omitempty"`
	Values    map[string]float64 `json:"values"`
	Data      []PeriodSnapshot   `json:"data"`
	Year      []YearTotal        `json:"year,omitempty"`
	Billing   *BillingRecord     `json:"billing,omitempty"`
}

// Value returns the flat value for key and whether it was present.
func (m MeteringRecord) Value(key string) (float64, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// PeriodSnapshot is one normalized period (day or month). Dates are
// formatted as 2006-01-02T15:04:05.000Z.
type PeriodSnapshot struct {
	DateFrom string             `json:"dateFrom"`
	DateTo   string             `json:"dateTo"`
	Values   map[string]float64 `json:"values"`
}

// YearTotal is the totals block of one billing year.
type YearTotal struct {
	Year     int                `json:"year"`
	DateFrom string             `json:"dateFrom,omitempty"`
	DateTo   string             `json:"dateTo,omitempty"`
	Values   map[string]float64 `json:"values"`
}
