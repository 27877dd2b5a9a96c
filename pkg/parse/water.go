package parse

import (
	"fmt"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// Water parses the time series of a water-only installation.
//
// The totals block carries the year-to-date consumption and the expected
// consumption for the full year, but not the expected year-to-date
// consumption. That is derived from the expected meter readings of the
// first and last period.
func Water(raw []byte) (types.MeteringRecord, error) {
	res, err := decodePeriods(raw)
	if err != nil {
		return types.MeteringRecord{}, err
	}

	rec := types.MeteringRecord{
		Kind:      types.KindWater,
		YearStart: res.YearStart.String(),
		YearEnd:   res.YearEnd.String(),
		Data:      make([]types.PeriodSnapshot, 0, len(res.Lines.Periods)),
	}
	for i, p := range res.Lines.Periods {
		snap, err := waterPeriod(p)
		if err != nil {
			return types.MeteringRecord{}, fmt.Errorf("period %d: %w", i, err)
		}
		rec.Data = append(rec.Data, snap)
	}

	first := rec.Data[0].Values
	last := rec.Data[len(rec.Data)-1].Values

	nums := &numbers{}
	var ytdUsed, fyExpUsed float64
	if res.Totals != nil {
		if c, ok := waterCounter(res.Totals.Counters); ok {
			ytdUsed = nums.get(c.Used)
		}
		fyExpUsed = nums.get(res.Totals.WaterExpUsed)
	}
	if nums.err != nil {
		return types.MeteringRecord{}, fmt.Errorf("totals: %w", nums.err)
	}

	rec.Values = map[string]float64{
		types.KeyWaterStart:      last[types.KeyWaterStart],
		types.KeyWaterEnd:        last[types.KeyWaterEnd],
		types.KeyWaterUsed:       last[types.KeyWaterUsed],
		types.KeyWaterExpUsed:    last[types.KeyWaterExpUsed],
		types.KeyWaterExpEnd:     last[types.KeyWaterExpEnd],
		types.KeyWaterYTDUsed:    ytdUsed,
		types.KeyWaterExpYTDUsed: round(last[types.KeyWaterExpEnd]-first[types.KeyWaterExpEnd], 3),
		types.KeyWaterExpFYUsed:  fyExpUsed,
	}
	return rec, nil
}

func waterPeriod(p PeriodRecord) (types.PeriodSnapshot, error) {
	from, err := isoDate(p.From)
	if err != nil {
		return types.PeriodSnapshot{}, err
	}
	to, err := isoDate(p.To)
	if err != nil {
		return types.PeriodSnapshot{}, err
	}

	nums := &numbers{}
	vals := map[string]float64{
		types.KeyWaterStart:   0,
		types.KeyWaterEnd:     0,
		types.KeyWaterUsed:    0,
		types.KeyWaterExpUsed: nums.get(p.WaterExpUsed),
		types.KeyWaterExpEnd:  nums.get(p.WaterExpEnd),
	}
	for _, c := range p.Counters {
		if c.IndexName != counterWater {
			continue
		}
		vals[types.KeyWaterStart] = nums.get(c.Start)
		vals[types.KeyWaterEnd] = nums.get(c.End)
		vals[types.KeyWaterUsed] = nums.get(c.Used)
	}
	if nums.err != nil {
		return types.PeriodSnapshot{}, nums.err
	}
	return types.PeriodSnapshot{DateFrom: from, DateTo: to, Values: vals}, nil
}

// waterCounter picks the M3 register, falling back to the first one.
func waterCounter(cs []CounterReading) (CounterReading, bool) {
	for _, c := range cs {
		if c.IndexName == counterWater {
			return c, true
		}
	}
	if len(cs) > 0 {
		return cs[0], true
	}
	return CounterReading{}, false
}
