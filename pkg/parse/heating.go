package parse

import (
	"fmt"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// Heating parses a district heating time series. The flat values reflect
// the last period in the response and Data holds every period in order.
func Heating(raw []byte) (types.MeteringRecord, error) {
	res, err := decodePeriods(raw)
	if err != nil {
		return types.MeteringRecord{}, err
	}

	rec := types.MeteringRecord{
		Kind:      types.KindHeating,
		YearStart: res.YearStart.String(),
		YearEnd:   res.YearEnd.String(),
		Data:      make([]types.PeriodSnapshot, 0, len(res.Lines.Periods)),
	}
	for i, p := range res.Lines.Periods {
		snap, err := heatingPeriod(p)
		if err != nil {
			return types.MeteringRecord{}, fmt.Errorf("period %d: %w", i, err)
		}
		rec.Data = append(rec.Data, snap)
	}

	rec.Values = make(map[string]float64, len(types.HeatingKeys)+3)
	for k, v := range rec.Data[len(rec.Data)-1].Values {
		rec.Values[k] = v
	}
	return rec, nil
}

func heatingPeriod(p PeriodRecord) (types.PeriodSnapshot, error) {
	from, err := isoDate(p.From)
	if err != nil {
		return types.PeriodSnapshot{}, err
	}
	to, err := isoDate(p.To)
	if err != nil {
		return types.PeriodSnapshot{}, err
	}

	vals := make(map[string]float64, len(types.HeatingKeys))
	for _, k := range types.HeatingKeys {
		vals[k] = 0
	}

	nums := &numbers{}
	vals[types.KeyTempForward] = nums.get(p.TempForward, FilterAbove(150))
	vals[types.KeyTempReturn] = nums.get(p.TempReturn, FilterAbove(150))
	vals[types.KeyTempExpReturn] = nums.get(p.TempExpReturn, FilterAbove(150))
	vals[types.KeyTempCooling] = nums.get(p.TempCooling, FilterAbove(150))

	for _, c := range p.Counters {
		switch c.IndexName {
		case counterWater:
			vals[types.KeyWaterStart] = nums.get(c.Start)
			vals[types.KeyWaterEnd] = nums.get(c.End)
			vals[types.KeyWaterUsed] = nums.get(c.Used)
			vals[types.KeyWaterExpUsed] = nums.get(p.WaterExpUsed)
			vals[types.KeyWaterExpEnd] = nums.get(p.WaterExpEnd)
		case counterEnergy:
			scale := Scale(EnergyScale(c.Unit))
			vals[types.KeyEnergyStart] = nums.get(c.Start, scale)
			vals[types.KeyEnergyEnd] = nums.get(c.End, scale)
			vals[types.KeyEnergyUsed] = nums.get(c.Used, scale)
			vals[types.KeyEnergyExpUsed] = nums.get(p.EnergyExpUsed, scale)
			vals[types.KeyEnergyExpEnd] = nums.get(p.EnergyExpEnd, scale)
		default:
			vals[types.KeyExtraStart] = nums.get(c.Start)
			vals[types.KeyExtraEnd] = nums.get(c.End)
			vals[types.KeyExtraUsed] = nums.get(c.Used)
		}
	}
	if nums.err != nil {
		return types.PeriodSnapshot{}, nums.err
	}

	return types.PeriodSnapshot{DateFrom: from, DateTo: to, Values: vals}, nil
}

// numbers keeps the first error of a run of Number calls.
type numbers struct {
	err error
}

func (n *numbers) get(s FlexString, opts ...NumberOption) float64 {
	if n.err != nil {
		return 0
	}
	v, err := Number(string(s), opts...)
	if err != nil {
		n.err = err
	}
	return v
}
