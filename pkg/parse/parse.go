// Package parse turns raw portal responses into metering records. Every
// function here is pure: the same bytes always give the same record.
package parse

import (
	"fmt"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// Metering parses a time series with the parser for kind.
func Metering(kind types.InstallationKind, raw []byte) (types.MeteringRecord, error) {
	switch kind {
	case types.KindHeating:
		return Heating(raw)
	case types.KindWater:
		return Water(raw)
	default:
		return types.MeteringRecord{}, fmt.Errorf("unknown installation kind: %d", kind)
	}
}

// MergeBilling adds the billing values to a heating record.
func MergeBilling(rec *types.MeteringRecord, b types.BillingRecord) {
	if rec.Values == nil {
		rec.Values = make(map[string]float64, len(types.BillingKeys))
	}
	for k, v := range b.Values() {
		rec.Values[k] = v
	}
	rec.Billing = &b
}
