// Package poller runs fetch cycles against the portal no more often than
// its fair-use policy allows and keeps the last good record.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/storage"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

const (
	// MinIntervalFloor is the shortest interval allowed between cycles. The
	// portal bans addresses that poll too often.
	MinIntervalFloor = 15 * time.Minute
	// DefaultMinInterval is the default interval between cycles.
	DefaultMinInterval = 6 * time.Hour

	// tickSlack absorbs timer jitter on Run's own cycles so a tick that
	// arrives slightly early does not lose a whole interval.
	tickSlack = time.Minute
)

// Fetcher runs one fetch cycle.
type Fetcher interface {
	GetLatestLenient(ctx context.Context) (*types.MeteringRecord, types.Outcome)
	Config() types.Config
}

// Poller serializes fetch cycles for one account.
type Poller struct {
	fetcher     Fetcher
	db          storage.Database
	key         string
	minInterval time.Duration
	metrics     *metrics
	now         func() time.Time

	// guarded by cycleMu
	cycleMu   sync.Mutex
	lastStart time.Time
	seeded    bool

	mu   sync.RWMutex
	last types.Snapshot
}

// New returns a poller that runs at most one cycle per minInterval. Metrics
// are registered with reg when it is not nil.
func New(fetcher Fetcher, db storage.Database, minInterval time.Duration, reg prometheus.Registerer) *Poller {
	p := &Poller{}
	p.init(fetcher, db, minInterval, reg)
	return p
}

func (p *Poller) init(fetcher Fetcher, db storage.Database, minInterval time.Duration, reg prometheus.Registerer) {
	if minInterval < MinIntervalFloor {
		minInterval = MinIntervalFloor
	}
	p.fetcher = fetcher
	p.db = db
	p.key = fetcher.Config().Key()
	p.minInterval = minInterval
	p.metrics = newMetrics(reg)
	p.now = time.Now
}

// Configured sets up the poller from flags.
func Configured(fetcher Fetcher, db storage.Database) *Poller {
	minInterval := lflag.Duration("poll-min-interval", DefaultMinInterval, "Minimum time between portal fetch cycles (at least 15m)")

	p := &Poller{}
	lflag.Do(func() {
		if *minInterval < MinIntervalFloor {
			panic(fmt.Sprintf("poll-min-interval must be at least %s", MinIntervalFloor))
		}
		p.init(fetcher, db, *minInterval, prometheus.DefaultRegisterer)
	})
	return p
}

// Key is the storage key of the account being polled.
func (p *Poller) Key() string {
	return p.key
}

// Poll runs one fetch cycle. A cycle started within the minimum interval of
// the previous one is skipped with OutcomeThrottled. After a restart the
// previous cycle is the stored snapshot's FetchedAt. Only OutcomeOK replaces
// the last good snapshot; every other outcome returns the previous one,
// which is zero when nothing was ever fetched. The error is only set when
// persisting a new snapshot failed.
func (p *Poller) Poll(ctx context.Context) (types.Snapshot, types.Outcome, error) {
	return p.poll(ctx, 0)
}

func (p *Poller) poll(ctx context.Context, slack time.Duration) (types.Snapshot, types.Outcome, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	ctx = log.WithCycle(ctx)
	p.seedLastStart(ctx)

	start := p.now()
	if !p.lastStart.IsZero() && start.Sub(p.lastStart) < p.minInterval-slack {
		p.metrics.cycles.WithLabelValues(types.OutcomeThrottled.String()).Inc()
		log.Ctx(ctx).DebugContext(ctx, "skipping poll inside the minimum interval",
			slog.Duration("minInterval", p.minInterval),
			slog.Time("lastStart", p.lastStart),
		)
		return p.previous(ctx), types.OutcomeThrottled, nil
	}
	p.lastStart = start

	rec, outcome := p.fetcher.GetLatestLenient(ctx)
	p.metrics.duration.Observe(p.now().Sub(start).Seconds())
	p.metrics.cycles.WithLabelValues(outcome.String()).Inc()

	if outcome != types.OutcomeOK || rec == nil {
		log.Ctx(ctx).WarnContext(ctx, "poll returned no new data, keeping previous", slog.String("outcome", outcome.String()))
		return p.previous(ctx), outcome, nil
	}

	snap := types.Snapshot{
		Key:       p.key,
		FetchedAt: start,
		Record:    *rec,
	}
	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	p.metrics.lastSuccess.Set(float64(start.Unix()))
	for k, v := range rec.Values {
		p.metrics.values.WithLabelValues(k).Set(v)
	}

	if err := p.db.SaveSnapshot(ctx, snap); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save snapshot", slog.Any("error", err))
		return snap, outcome, fmt.Errorf("failed to save snapshot: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "poll succeeded", slog.Int("periods", len(rec.Data)))
	return snap, outcome, nil
}

// seedLastStart takes the first cycle's reference point from storage so a
// restart does not reach the portal inside the minimum interval. Must be
// called with cycleMu held.
func (p *Poller) seedLastStart(ctx context.Context) {
	if p.seeded {
		return
	}
	p.seeded = true
	if !p.lastStart.IsZero() {
		return
	}
	if snap := p.previous(ctx); !snap.IsZero() {
		p.lastStart = snap.FetchedAt
	}
}

func (p *Poller) previous(ctx context.Context) types.Snapshot {
	snap, err := p.Latest(ctx)
	if err != nil && !errors.Is(err, storage.ErrSnapshotNotFound) {
		log.Ctx(ctx).WarnContext(ctx, "failed to load previous snapshot", slog.Any("error", err))
	}
	return snap
}

// Latest returns the last good snapshot, falling back to storage after a
// restart. storage.ErrSnapshotNotFound means nothing was ever fetched.
func (p *Poller) Latest(ctx context.Context) (types.Snapshot, error) {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()
	if !last.IsZero() {
		return last, nil
	}

	snap, err := p.db.GetSnapshot(ctx, p.key)
	if err != nil {
		return types.Snapshot{}, err
	}
	p.mu.Lock()
	if p.last.IsZero() {
		p.last = snap
	}
	p.mu.Unlock()
	return snap, nil
}

// Run polls every interval until ctx is done. Intervals shorter than the
// minimum interval are raised to it. Each cycle is scheduled relative to
// the last one that reached the portal, including cycles triggered by Poll.
func (p *Poller) Run(ctx context.Context, every time.Duration) {
	if every < p.minInterval {
		log.Ctx(ctx).WarnContext(ctx, "poll interval raised to the minimum interval",
			slog.Duration("interval", every),
			slog.Duration("minInterval", p.minInterval),
		)
		every = p.minInterval
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, _, err := p.poll(ctx, tickSlack); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "poll failed", slog.Any("error", err))
		}
		timer.Reset(p.nextWait(every))
	}
}

// nextWait is the time left until every has passed since the last cycle.
func (p *Poller) nextWait(every time.Duration) time.Duration {
	p.cycleMu.Lock()
	last := p.lastStart
	p.cycleMu.Unlock()
	if last.IsZero() {
		return every
	}
	return max(last.Add(every).Sub(p.now()), 0)
}
