package parse

import (
	"fmt"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// YearTotal reads the totals block of a year scoped time series. When the
// portal leaves the totals block out, consumption is summed over the periods
// and temperatures are omitted.
func YearTotal(raw []byte, year int) (types.YearTotal, error) {
	res, err := decodePeriods(raw)
	if err != nil {
		return types.YearTotal{}, err
	}

	yt := types.YearTotal{Year: year, Values: map[string]float64{}}
	if res.Totals == nil {
		for i, p := range res.Lines.Periods {
			vals, err := totalValues(p, false)
			if err != nil {
				return types.YearTotal{}, fmt.Errorf("period %d: %w", i, err)
			}
			for k, v := range vals {
				yt.Values[k] = round(yt.Values[k]+v, 3)
			}
		}
		periods := res.Lines.Periods
		if yt.DateFrom, err = isoDate(periods[0].From); err != nil {
			return types.YearTotal{}, err
		}
		if yt.DateTo, err = isoDate(periods[len(periods)-1].To); err != nil {
			return types.YearTotal{}, err
		}
		return yt, nil
	}

	if yt.Values, err = totalValues(*res.Totals, true); err != nil {
		return types.YearTotal{}, fmt.Errorf("totals: %w", err)
	}
	if res.Totals.From != "" {
		if yt.DateFrom, err = isoDate(res.Totals.From); err != nil {
			return types.YearTotal{}, err
		}
	}
	if res.Totals.To != "" {
		if yt.DateTo, err = isoDate(res.Totals.To); err != nil {
			return types.YearTotal{}, err
		}
	}
	return yt, nil
}

func totalValues(p PeriodRecord, temps bool) (map[string]float64, error) {
	nums := &numbers{}
	vals := map[string]float64{
		types.KeyEnergyUsed: 0,
		types.KeyWaterUsed:  0,
	}
	for _, c := range p.Counters {
		switch c.IndexName {
		case counterEnergy:
			vals[types.KeyEnergyUsed] = nums.get(c.Used, Scale(EnergyScale(c.Unit)))
		case counterWater:
			vals[types.KeyWaterUsed] = nums.get(c.Used)
		}
	}
	if temps {
		vals[types.KeyTempForward] = nums.get(p.TempForward, FilterAbove(150))
		vals[types.KeyTempReturn] = nums.get(p.TempReturn, FilterAbove(150))
		vals[types.KeyTempCooling] = nums.get(p.TempCooling, FilterAbove(150))
	}
	return vals, nums.err
}
