package parse

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

const heatingResponse = `{
	"AarStart": "01-01-2024",
	"AarSlut": "31-12-2024",
	"ForbrugsLinjer": {"TForbrugsLinje": [
		{
			"FraDatoStr": "01-03-2024", "TilDatoStr": "02-03-2024",
			"Tempfrem": "61,2", "TempRetur": "33,4", "Forv_Retur": "35,0", "Afkoling": "27,8",
			"ForventetForbrugM3": "0,25", "ForventetAflaesningM3": "120,50",
			"ForventetForbrugENG1": "0,021", "ForventetAflaesningENG1": "16,300",
			"TForbrugsTaellevaerk": [
				{"IndexNavn": "ENG1", "Enhed_Txt": "MWh", "Start": "16,199", "Slut": "16,220", "Forbrug": "0,021"},
				{"IndexNavn": "M3", "Enhed_Txt": "M3", "Start": "509,32", "Slut": "509,60", "Forbrug": "0,28"}
			]
		},
		{
			"FraDatoStr": "02-03-2024", "TilDatoStr": "03-03-2024",
			"Tempfrem": "1.612", "TempRetur": "34,0", "Forv_Retur": "35,0", "Afkoling": "26,1",
			"ForventetForbrugM3": "0,25", "ForventetAflaesningM3": "120,75",
			"ForventetForbrugENG1": "0,020", "ForventetAflaesningENG1": "16,320",
			"TForbrugsTaellevaerk": [
				{"IndexNavn": "ENG1", "Enhed_Txt": "MWh", "Start": "16,220", "Slut": "16,245", "Forbrug": "0,025"},
				{"IndexNavn": "M3", "Enhed_Txt": "M3", "Start": "509,60", "Slut": "509,90", "Forbrug": "0,30"},
				{"IndexNavn": "TIME_", "Enhed_Txt": "h", "Start": "41.000", "Slut": "41.024", "Forbrug": "24"}
			]
		}
	]},
	"IaltLinje": {
		"FraDatoStr": "01-01-2024", "TilDatoStr": "03-03-2024",
		"Tempfrem": "60,1", "TempRetur": "33,9", "Afkoling": "26,2",
		"ForventetForbrugM3": "170,25",
		"TForbrugsTaellevaerk": [
			{"IndexNavn": "ENG1", "Enhed_Txt": "MWh", "Start": "12,884", "Slut": "16,245", "Forbrug": "3,361"},
			{"IndexNavn": "M3", "Enhed_Txt": "M3", "Start": "401,24", "Slut": "509,90", "Forbrug": "108,66"}
		]
	}
}`

func TestHeating(t *testing.T) {
	rec, err := Heating([]byte(heatingResponse))
	require.NoError(t, err)

	assert.Equal(t, types.KindHeating, rec.Kind)
	assert.Equal(t, "01-01-2024", rec.YearStart)
	assert.Equal(t, "31-12-2024", rec.YearEnd)
	require.Len(t, rec.Data, 2)

	for _, k := range types.HeatingKeys {
		_, ok := rec.Value(k)
		assert.True(t, ok, "missing %s", k)
	}

	t.Run("latest period wins", func(t *testing.T) {
		// 1.612 has lost its decimal comma and is filtered out
		assert.Equal(t, 0.0, rec.Values[types.KeyTempForward])
		assert.Equal(t, 34.0, rec.Values[types.KeyTempReturn])
		assert.Equal(t, 35.0, rec.Values[types.KeyTempExpReturn])
		assert.Equal(t, 26.1, rec.Values[types.KeyTempCooling])

		assert.Equal(t, 16220.0, rec.Values[types.KeyEnergyStart])
		assert.Equal(t, 16245.0, rec.Values[types.KeyEnergyEnd])
		assert.Equal(t, 25.0, rec.Values[types.KeyEnergyUsed])
		assert.Equal(t, 20.0, rec.Values[types.KeyEnergyExpUsed])
		assert.Equal(t, 16320.0, rec.Values[types.KeyEnergyExpEnd])

		assert.Equal(t, 509.6, rec.Values[types.KeyWaterStart])
		assert.Equal(t, 509.9, rec.Values[types.KeyWaterEnd])
		assert.Equal(t, 0.3, rec.Values[types.KeyWaterUsed])
		assert.Equal(t, 0.25, rec.Values[types.KeyWaterExpUsed])
		assert.Equal(t, 120.75, rec.Values[types.KeyWaterExpEnd])

		assert.Equal(t, 41000.0, rec.Values[types.KeyExtraStart])
		assert.Equal(t, 24.0, rec.Values[types.KeyExtraUsed])
	})

	t.Run("history", func(t *testing.T) {
		first := rec.Data[0]
		assert.Equal(t, "2024-03-01T00:00:00.000Z", first.DateFrom)
		assert.Equal(t, "2024-03-02T00:00:00.000Z", first.DateTo)
		assert.Equal(t, 61.2, first.Values[types.KeyTempForward])
		assert.Equal(t, 16199.0, first.Values[types.KeyEnergyStart])
		assert.Equal(t, 21.0, first.Values[types.KeyEnergyUsed])
		assert.Equal(t, 509.32, first.Values[types.KeyWaterStart])
		_, ok := first.Values[types.KeyExtraUsed]
		assert.False(t, ok)

		assert.Equal(t, "2024-03-03T00:00:00.000Z", rec.Data[1].DateTo)
	})
}

func TestHeatingEnergyUnits(t *testing.T) {
	tests := []struct {
		unit   string
		raw    string
		factor float64
	}{
		{"kWh", "1.234,5", 1},
		{"MWh", "12,345", 1000},
		{"GJ", "1,5", 277.78},
		{"GJ", "12,345", 277.78},
		{"GJ", "0,001", 277.78},
		{"gj", "40", 277.78},
	}
	for _, tt := range tests {
		t.Run(tt.unit+" "+tt.raw, func(t *testing.T) {
			body := `{"ForbrugsLinjer": {"TForbrugsLinje": [{
				"FraDatoStr": "01-03-2024", "TilDatoStr": "02-03-2024",
				"ForventetForbrugENG1": "` + tt.raw + `",
				"TForbrugsTaellevaerk": [{"IndexNavn": "ENG1", "Enhed_Txt": "` + tt.unit + `", "Start": "` + tt.raw + `", "Slut": "` + tt.raw + `", "Forbrug": "` + tt.raw + `"}]
			}]}}`
			rec, err := Heating([]byte(body))
			require.NoError(t, err)

			x, err := Number(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, x*tt.factor, rec.Values[types.KeyEnergyUsed], 0.01)
			assert.InDelta(t, x*tt.factor, rec.Values[types.KeyEnergyStart], 0.01)
			assert.InDelta(t, x*tt.factor, rec.Values[types.KeyEnergyExpUsed], 0.01)
		})
	}
}

func TestHeatingMissingCounters(t *testing.T) {
	body := `{"ForbrugsLinjer": {"TForbrugsLinje": [{
		"FraDatoStr": "01-03-2024", "TilDatoStr": "02-03-2024",
		"Tempfrem": 60.5, "TempRetur": "", "TForbrugsTaellevaerk": null
	}]}}`
	rec, err := Heating([]byte(body))
	require.NoError(t, err)

	assert.Len(t, rec.Values, len(types.HeatingKeys))
	for _, k := range types.HeatingKeys {
		if k == types.KeyTempForward {
			continue
		}
		assert.Zero(t, rec.Values[k], k)
	}
	// numeric JSON values are accepted too
	assert.Equal(t, 60.5, rec.Values[types.KeyTempForward])
}

func TestHeatingErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"not json", `<html>`, ErrMalformed},
		{"no periods", `{"AarStart": "01-01-2025", "ForbrugsLinjer": {"TForbrugsLinje": []}}`, ErrNoPeriods},
		{"missing period list", `{}`, ErrNoPeriods},
		{"lookup failed", `{"Message": "An error has occurred.", "ExceptionMessage": "Opslag fejlede"}`, ErrLookupFailed},
		{"bad number", `{"ForbrugsLinjer": {"TForbrugsLinje": [{"FraDatoStr": "01-03-2024", "TilDatoStr": "02-03-2024", "Tempfrem": "n/a"}]}}`, ErrFormat},
		{"bad date", `{"ForbrugsLinjer": {"TForbrugsLinje": [{"FraDatoStr": "2024-03-01", "TilDatoStr": "02-03-2024"}]}}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Heating([]byte(tt.body))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHeatingIdempotent(t *testing.T) {
	a, err := Heating([]byte(heatingResponse))
	require.NoError(t, err)
	b, err := Heating([]byte(heatingResponse))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestMeteringDispatch(t *testing.T) {
	rec, err := Metering(types.KindHeating, []byte(heatingResponse))
	require.NoError(t, err)
	assert.Equal(t, types.KindHeating, rec.Kind)

	rec, err = Metering(types.KindWater, []byte(heatingResponse))
	require.NoError(t, err)
	assert.Equal(t, types.KindWater, rec.Kind)
	_, ok := rec.Values[types.KeyEnergyUsed]
	assert.False(t, ok, "water records carry no energy keys")

	_, err = Metering(types.InstallationKind(9), []byte(heatingResponse))
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	n, err := Inspect([]byte(heatingResponse))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = Inspect([]byte(`{"ForbrugsLinjer": {"TForbrugsLinje": []}}`))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Inspect([]byte(`{"Message": "An error has occurred."}`))
	assert.ErrorIs(t, err, ErrLookupFailed)

	_, err = Inspect([]byte(strings.Repeat("{", 3)))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestYearTotal(t *testing.T) {
	yt, err := YearTotal([]byte(heatingResponse), 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, yt.Year)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", yt.DateFrom)
	assert.Equal(t, "2024-03-03T00:00:00.000Z", yt.DateTo)
	assert.Equal(t, 3361.0, yt.Values[types.KeyEnergyUsed])
	assert.Equal(t, 108.66, yt.Values[types.KeyWaterUsed])
	assert.Equal(t, 60.1, yt.Values[types.KeyTempForward])
	assert.Equal(t, 26.2, yt.Values[types.KeyTempCooling])

	t.Run("without totals", func(t *testing.T) {
		var res map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(heatingResponse), &res))
		delete(res, "IaltLinje")
		body, err := json.Marshal(res)
		require.NoError(t, err)

		yt, err := YearTotal(body, 2024)
		require.NoError(t, err)
		assert.Equal(t, 46.0, yt.Values[types.KeyEnergyUsed])
		assert.Equal(t, 0.58, yt.Values[types.KeyWaterUsed])
		assert.Equal(t, "2024-03-01T00:00:00.000Z", yt.DateFrom)
		assert.Equal(t, "2024-03-03T00:00:00.000Z", yt.DateTo)
		_, ok := yt.Values[types.KeyTempForward]
		assert.False(t, ok)
	})
}
