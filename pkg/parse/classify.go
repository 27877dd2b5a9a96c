package parse

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// LineCategory is the meaning assigned to a billing line.
type LineCategory int

const (
	LineUnclassified LineCategory = iota
	LineDecorative
	LineFixedContribution
	LineFixedAmount
	LineCooling
	LineEnergyForecast
	LineForecastOther
	LineEnergyUsed
	LineWaterUsed
	LineVAT
	LineEnergyTotal
	LineGrandTotal
	LineRefund
	LinePaymentDue
	LineInformational
	LineArrears
	LineAdvancePaid
	LineUnused
)

var lineCategoryNames = map[LineCategory]string{
	LineUnclassified:      "unclassified",
	LineDecorative:        "decorative",
	LineFixedContribution: "fixed-contribution",
	LineFixedAmount:       "fixed-amount",
	LineCooling:           "cooling",
	LineEnergyForecast:    "energy-forecast",
	LineForecastOther:     "forecast-other",
	LineEnergyUsed:        "energy-used",
	LineWaterUsed:         "water-used",
	LineVAT:               "vat",
	LineEnergyTotal:       "energy-total",
	LineGrandTotal:        "grand-total",
	LineRefund:            "refund",
	LinePaymentDue:        "payment-due",
	LineInformational:     "informational",
	LineArrears:           "arrears",
	LineAdvancePaid:       "advance-paid",
	LineUnused:            "unused",
}

func (c LineCategory) String() string {
	if s, ok := lineCategoryNames[c]; ok {
		return s
	}
	return "unknown"
}

type textMatch int

const (
	matchAny textMatch = iota
	matchEquals
	matchContains
)

// lineRule matches a billing line by type, unit and text. Keywords are in
// normalized form, see normalizeText.
type lineRule struct {
	lineType string
	units    mapset.Set[string]
	match    textMatch
	keywords []string
	category LineCategory
}

var (
	coolingKeywords  = []string{"afkøling", "afkoling", "cooling"}
	forecastKeywords = []string{"prognose", "forventet", "forecast", "expected"}
	energyTotalTexts = []string{"samletvarmeforbrug", "totalheatconsumption"}
	grandTotalTexts  = []string{
		"total(inclmoms)", "total(inklmoms)", "totalinclmoms", "totalinklmoms",
		"ialt(inklmoms)", "ialtinklmoms", "total(inclvat)", "totalinclvat",
	}
	refundKeywords     = []string{"tiludbetaling", "refund"}
	paymentDueKeywords = []string{"tilindbetaling", "paymentdue"}
	// totals the record has no field for
	informationalKeywords = []string{"eksklmoms", "exklmoms", "exclmoms", "eksmoms", "formegetbetalt", "forlidtbetalt", "exclvat"}
	arrearsKeywords       = []string{"restance", "arrears"}
)

// lineRules are evaluated in order, the first match wins.
var lineRules = []lineRule{
	{lineType: "0", category: LineDecorative},

	{lineType: "1", units: areaVolumeUnits, category: LineFixedContribution},
	{lineType: "1", category: LineFixedAmount},

	{lineType: "3", match: matchContains, keywords: coolingKeywords, category: LineCooling},
	{lineType: "3", match: matchContains, keywords: forecastKeywords, units: energyUnits, category: LineEnergyForecast},
	{lineType: "3", match: matchContains, keywords: forecastKeywords, category: LineForecastOther},
	{lineType: "3", units: energyUnits, category: LineEnergyUsed},
	{lineType: "3", units: volumeUnits, category: LineWaterUsed},

	{lineType: "10", category: LineVAT},

	{lineType: "12", match: matchEquals, keywords: energyTotalTexts, category: LineEnergyTotal},
	{lineType: "12", match: matchEquals, keywords: grandTotalTexts, category: LineGrandTotal},
	{lineType: "12", match: matchContains, keywords: refundKeywords, category: LineRefund},
	{lineType: "12", match: matchContains, keywords: paymentDueKeywords, category: LinePaymentDue},
	{lineType: "12", match: matchContains, keywords: informationalKeywords, category: LineInformational},

	{lineType: "18", match: matchContains, keywords: arrearsKeywords, category: LineArrears},
	{lineType: "18", category: LineAdvancePaid},

	{lineType: "20", category: LineUnused},
	{lineType: "22", category: LineUnused},
}

// normalizeText lower-cases s and drops spaces and dots so "Total
// (incl.moms)" and "Total (incl. moms) " compare equal.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '\t', '\u00a0':
			return -1
		}
		return r
	}, s)
}

func (r lineRule) matches(lineType, unit, text string) bool {
	if r.lineType != lineType {
		return false
	}
	if r.units != nil && !r.units.Contains(unit) {
		return false
	}
	switch r.match {
	case matchEquals:
		for _, k := range r.keywords {
			if text == k {
				return true
			}
		}
		return false
	case matchContains:
		for _, k := range r.keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
	return true
}

// ClassifyLine assigns a category to a billing line. Lines that match no
// rule are LineUnclassified.
func ClassifyLine(line types.BillingLine) LineCategory {
	lineType := strings.TrimSpace(line.LineType)
	unit := normalizeUnit(line.Unit)
	text := normalizeText(line.Text)
	for _, r := range lineRules {
		if r.matches(lineType, unit, text) {
			return r.category
		}
	}
	return LineUnclassified
}
