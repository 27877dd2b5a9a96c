package parse

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// kWh per unit.
var energyScale = map[string]float64{
	"kwh": 1,
	"mwh": 1000,
	"gj":  277.78,
}

var (
	energyUnits = mapset.NewSet[string]("kwh", "mwh", "gj")
	volumeUnits = mapset.NewSet[string]("m3", "m³")
	// fixed contributions are billed per m3 or per m2 of heated area
	areaVolumeUnits = mapset.NewSet[string]("m2", "m²", "m3", "m³")
)

const (
	counterWater  = "M3"
	counterEnergy = "ENG1"
)

func normalizeUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// EnergyScale returns the multiplier that converts unit into kWh. Unknown
// units are treated as kWh.
func EnergyScale(unit string) float64 {
	if f, ok := energyScale[normalizeUnit(unit)]; ok {
		return f
	}
	return 1
}
