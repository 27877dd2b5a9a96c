package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/parse"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// QueryYear returns the billing year to query at now. Suppliers with a
// July-June billing year are still in last year's billing year until July.
func QueryYear(now time.Time, skew bool) int {
	year := now.Year()
	if skew && now.Month() >= time.January && now.Month() <= time.June {
		year--
	}
	return year
}

// GetLatest runs a full fetch cycle: it authenticates, resolves the
// installation, fetches and parses the daily series and, for heating, the
// billing computation and optional year history.
//
// ErrNoData is returned when the portal has no periods for the active year
// or the time series timed out.
func (c *Client) GetLatest(ctx context.Context) (types.MeteringRecord, error) {
	if log.CycleID(ctx) == "" {
		ctx = log.WithCycle(ctx)
	}

	sess, err := c.Authenticate(ctx)
	if err != nil {
		return types.MeteringRecord{}, err
	}
	inst, user, err := c.ResolveInstallation(ctx, sess)
	if err != nil {
		return types.MeteringRecord{}, err
	}

	now := c.now()
	raw, year, err := c.fetchActiveYear(ctx, sess, inst, now)
	if err != nil {
		return types.MeteringRecord{}, err
	}
	if raw == nil {
		return types.MeteringRecord{}, ErrNoData
	}

	rec, err := parse.Metering(c.cfg.Kind, raw)
	if err != nil {
		if errors.Is(err, parse.ErrNoPeriods) || errors.Is(err, parse.ErrLookupFailed) {
			return types.MeteringRecord{}, fmt.Errorf("%w: year %d: %w", ErrNoData, year, err)
		}
		return types.MeteringRecord{}, fmt.Errorf("failed to parse time series: %w", err)
	}

	if c.cfg.Kind != types.KindHeating {
		log.Ctx(ctx).DebugContext(ctx, "done parsing eforsyning water data", slog.Int("periods", len(rec.Data)))
		return rec, nil
	}

	braw, err := c.FetchBilling(ctx, sess, inst)
	if err != nil {
		return types.MeteringRecord{}, err
	}
	billing, err := parse.Billing(braw, now)
	if err != nil {
		return types.MeteringRecord{}, fmt.Errorf("failed to parse billing: %w", err)
	}
	for _, line := range billing.Unclassified {
		log.Ctx(ctx).WarnContext(ctx, "unclassified billing line",
			slog.String("lineType", line.LineType),
			slog.String("text", line.Text),
			slog.String("unit", line.Unit),
			slog.String("total", line.Total),
		)
	}
	parse.MergeBilling(&rec, billing)

	if c.cfg.HistoryYears > 0 {
		rec.Year = c.fetchHistory(ctx, sess, inst, user, raw, year)
	}

	log.Ctx(ctx).DebugContext(ctx, "done parsing eforsyning heating data",
		slog.Int("periods", len(rec.Data)),
		slog.Int("years", len(rec.Year)),
	)
	return rec, nil
}

// fetchActiveYear fetches the daily series for the billing year active at
// now. Around new year the supplier may not have moved to the new billing
// year yet, in which case the portal answers with an error payload or no
// periods and the query is repeated with the supplier's year marker.
func (c *Client) fetchActiveYear(ctx context.Context, sess Session, inst types.InstallationRef, now time.Time) ([]byte, int, error) {
	year := QueryYear(now, c.cfg.BillingPeriodSkew)
	q := TimeSeriesQuery{
		Year:            year,
		From:            now.AddDate(0, 0, -1),
		To:              now,
		Granularity:     Daily,
		IncludeExpected: true,
	}
	raw, err := c.FetchTimeSeries(ctx, sess, inst, q)
	if err != nil || raw == nil {
		return nil, year, err
	}

	n, err := parse.Inspect(raw)
	switch {
	case err == nil && n > 0:
		return raw, year, nil
	case err != nil && !errors.Is(err, parse.ErrLookupFailed):
		return nil, year, fmt.Errorf("failed to parse time series: %w", err)
	}

	fallback := year - 1
	marker, err := c.GetLatestYearMarker(ctx, sess, inst)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get year marker, using previous year", slog.Any("error", err))
	} else if marker.Year > 0 && marker.Year < year {
		fallback = marker.Year
	}
	log.Ctx(ctx).InfoContext(ctx, "no data for billing year, retrying with previous year",
		slog.Int("year", year),
		slog.Int("fallback", fallback),
	)

	q.Year = fallback
	raw, err = c.FetchTimeSeries(ctx, sess, inst, q)
	return raw, fallback, err
}

// fetchHistory returns the totals of the current and previous billing years.
// Years before the consumer moved in are not queried and a failed year is
// skipped.
func (c *Client) fetchHistory(ctx context.Context, sess Session, inst types.InstallationRef, user types.UserInfo, latest []byte, year int) []types.YearTotal {
	var totals []types.YearTotal
	if yt, err := parse.YearTotal(latest, year); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to parse current year totals", slog.Int("year", year), slog.Any("error", err))
	} else {
		totals = append(totals, yt)
	}

	for y := year - 1; y >= year-c.cfg.HistoryYears; y-- {
		if !user.MovedIn.IsZero() && y < user.MovedIn.Year() {
			break
		}
		q := TimeSeriesQuery{
			Year:        y,
			From:        time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:          time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
			Granularity: Monthly,
		}
		raw, err := c.FetchTimeSeries(ctx, sess, inst, q)
		if err != nil || raw == nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping history year", slog.Int("year", y), slog.Any("error", err))
			continue
		}
		yt, err := parse.YearTotal(raw, y)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping history year", slog.Int("year", y), slog.Any("error", err))
			continue
		}
		totals = append(totals, yt)
	}

	slices.SortFunc(totals, func(a, b types.YearTotal) int {
		return a.Year - b.Year
	})
	return totals
}

// GetLatestLenient is GetLatest for background polling. It never returns
// an error; failures are logged and reported through the outcome.
func (c *Client) GetLatestLenient(ctx context.Context) (*types.MeteringRecord, types.Outcome) {
	if log.CycleID(ctx) == "" {
		ctx = log.WithCycle(ctx)
	}
	rec, err := c.GetLatest(ctx)
	switch {
	case err == nil:
		return &rec, types.OutcomeOK
	case errors.Is(err, ErrNoData):
		log.Ctx(ctx).InfoContext(ctx, "eforsyning returned no data", slog.Any("error", err))
		return nil, types.OutcomeEmpty
	case errors.Is(err, ErrLoginFailed), errors.Is(err, ErrNotAuthenticated):
		log.Ctx(ctx).ErrorContext(ctx, "eforsyning authentication failed", slog.Any("error", err))
		return nil, types.OutcomeAuthFailed
	default:
		log.Ctx(ctx).ErrorContext(ctx, "eforsyning fetch failed", slog.Any("error", err))
		return nil, types.OutcomeFailed
	}
}
