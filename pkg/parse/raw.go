package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned when a response is not the expected JSON shape.
	ErrMalformed = errors.New("malformed response")
	// ErrNoPeriods is returned when a time series response has no periods.
	ErrNoPeriods = errors.New("response has no periods")
	// ErrLookupFailed is returned for the portal's error payload, which it
	// sends instead of a period list when the requested year is not active.
	ErrLookupFailed = errors.New("lookup failed")
)

const (
	portalDateLayout = "02-01-2006"
	// DateLayout is the layout of every date in a MeteringRecord.
	DateLayout = "2006-01-02T15:04:05.000Z"
)

// FlexString decodes a JSON string or number into a string. Numbers are
// rewritten with a decimal comma so they go through Number like every other
// portal value.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(strings.ReplaceAll(n.String(), ".", ","))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// CounterReading is one meter register inside a period.
type CounterReading struct {
	IndexName string     `json:"IndexNavn"`
	Unit      string     `json:"Enhed_Txt"`
	Start     FlexString `json:"Start"`
	End       FlexString `json:"Slut"`
	Used      FlexString `json:"Forbrug"`
}

// PeriodRecord is one row of a time series response.
type PeriodRecord struct {
	From string `json:"FraDatoStr"`
	To   string `json:"TilDatoStr"`

	TempForward   FlexString `json:"Tempfrem"`
	TempReturn    FlexString `json:"TempRetur"`
	TempExpReturn FlexString `json:"Forv_Retur"`
	TempCooling   FlexString `json:"Afkoling"`

	WaterExpUsed  FlexString `json:"ForventetForbrugM3"`
	WaterExpEnd   FlexString `json:"ForventetAflaesningM3"`
	EnergyExpUsed FlexString `json:"ForventetForbrugENG1"`
	EnergyExpEnd  FlexString `json:"ForventetAflaesningENG1"`

	Counters []CounterReading `json:"TForbrugsTaellevaerk"`
}

// TimeSeriesResponse is the body returned by the consumption endpoint.
type TimeSeriesResponse struct {
	YearStart FlexString `json:"AarStart"`
	YearEnd   FlexString `json:"AarSlut"`
	Lines     struct {
		Periods []PeriodRecord `json:"TForbrugsLinje"`
	} `json:"ForbrugsLinjer"`
	Totals *PeriodRecord `json:"IaltLinje"`

	Message          string `json:"Message"`
	ExceptionMessage string `json:"ExceptionMessage"`
}

// IsErrorPayload reports whether the portal answered with an error message
// instead of data.
func (r TimeSeriesResponse) IsErrorPayload() bool {
	return len(r.Lines.Periods) == 0 && (r.Message != "" || r.ExceptionMessage != "")
}

func decodeTimeSeries(raw []byte) (TimeSeriesResponse, error) {
	var res TimeSeriesResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return res, nil
}

func decodePeriods(raw []byte) (TimeSeriesResponse, error) {
	res, err := decodeTimeSeries(raw)
	if err != nil {
		return res, err
	}
	if res.IsErrorPayload() {
		return res, fmt.Errorf("%w: %s", ErrLookupFailed, res.errorMessage())
	}
	if len(res.Lines.Periods) == 0 {
		return res, ErrNoPeriods
	}
	return res, nil
}

func (r TimeSeriesResponse) errorMessage() string {
	if r.ExceptionMessage != "" {
		return r.ExceptionMessage
	}
	return r.Message
}

// Inspect returns the number of periods in a time series response.
// An error payload yields ErrLookupFailed.
func Inspect(raw []byte) (int, error) {
	res, err := decodeTimeSeries(raw)
	if err != nil {
		return 0, err
	}
	if res.IsErrorPayload() {
		return 0, fmt.Errorf("%w: %s", ErrLookupFailed, res.errorMessage())
	}
	return len(res.Lines.Periods), nil
}

// PortalDate parses a dd-mm-yyyy date as sent by the portal.
func PortalDate(s string) (time.Time, error) {
	t, err := time.Parse(portalDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", ErrMalformed, s, err)
	}
	return t, nil
}

func isoDate(s string) (string, error) {
	t, err := PortalDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
