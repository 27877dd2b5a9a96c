package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// Granularity is the resolution of a time series query.
type Granularity int

const (
	Monthly Granularity = iota
	Daily
)

// TimeSeriesQuery selects a billing year's consumption. The portal largely
// ignores From and To and returns the whole year at the requested
// granularity.
type TimeSeriesQuery struct {
	Year            int
	From            time.Time
	To              time.Time
	Granularity     Granularity
	IncludeExpected bool
}

// timeSeriesRequest is the body of api/getforbrug. Field order matches what
// the portal's own frontend sends.
type timeSeriesRequest struct {
	PropertyNr             string `json:"Ejendomnr"`
	AssetNr                string `json:"AktivNr"`
	InstallationNr         string `json:"I_Nr"`
	YearMarker             int    `json:"AarsMaerke"`
	FromDate               string `json:"ForbrugsAfgraensning_FraDato"`
	ToDate                 string `json:"ForbrugsAfgraensning_TilDato"`
	FromReading            string `json:"ForbrugsAfgraensning_FraAflaesning"`
	ToReading              string `json:"ForbrugsAfgraensning_TilAflaesning"`
	IncludeIntermediate    string `json:"ForbrugsAfgraensning_MedtagMellemliggendeMellemaflas"`
	Options                string `json:"Optioner"`
	HighDetail             string `json:"AHoejDetail"`
	ReadingFilter          string `json:"Aflaesningsfilter"`
	ReadingFilterDay       string `json:"AflaesningsFilterDag"`
	ReadingSmoothing       string `json:"AflaesningsUdjaevning"`
	DeleteFilteredReadings string `json:"SletFiltreredeAflaesninger"`
	WithExpected           string `json:"MedForventetForbrug"`
	ConvertToCurrentUnit   string `json:"OmregnForbrugTilAktuelleEnhed"`
}

func newTimeSeriesRequest(username string, inst types.InstallationRef, q TimeSeriesQuery) timeSeriesRequest {
	filter := "afMaanedsvis"
	// daily data must be smoothed or missing readings show up as zero
	smoothing := false
	if q.Granularity == Daily {
		filter = "afDagsvis"
		smoothing = true
	}
	return timeSeriesRequest{
		PropertyNr:     username,
		AssetNr:        inst.AssetID,
		InstallationNr: inst.InstallationID,
		YearMarker:     q.Year,
		FromDate:       q.From.Format("02-01-2006"),
		ToDate:         q.To.Format("02-01-2006"),
		// 0 is the yearly reading, 2 the latest and 10 one per date
		FromReading:            "0",
		ToReading:              "2",
		IncludeIntermediate:    "true",
		Options:                "foBestemtBeboer, foSkabDetaljer, foMedtagWebAflaes",
		HighDetail:             "false",
		ReadingFilter:          filter,
		ReadingFilterDay:       "ULTIMO",
		ReadingSmoothing:       strconv.FormatBool(smoothing),
		DeleteFilteredReadings: "true",
		WithExpected:           strconv.FormatBool(q.IncludeExpected),
		ConvertToCurrentUnit:   "true",
	}
}

// FetchTimeSeries returns the raw consumption response for q. A timeout
// returns nil and no error: there is simply no data this cycle.
func (c *Client) FetchTimeSeries(ctx context.Context, sess Session, inst types.InstallationRef, q TimeSeriesQuery) ([]byte, error) {
	if err := sess.authenticated(); err != nil {
		return nil, err
	}
	body := newTimeSeriesRequest(c.cfg.Credentials.Username, inst, q)
	req, err := c.newPostJSONRequest(ctx, sess, "api/getforbrug", c.sessionParams(sess, inst), body)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(req)
	if err != nil {
		if isTimeout(err) {
			log.Ctx(ctx).WarnContext(ctx, "eforsyning time series timed out, no data retrieved",
				slog.Int("year", q.Year),
				slog.Any("error", err),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: getforbrug: %w", ErrHTTPFailed, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched eforsyning time series", slog.Int("year", q.Year), slog.Int("bytes", len(raw)))
	return raw, nil
}
