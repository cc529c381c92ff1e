package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/types"
)

// Fetcher returns the current set of open items on demand.
// Implementations own their own timeouts and rate limiting.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, filters config.Filters) (*types.Snapshot, error)
}

// Dispatcher consumes a non-empty diff. Dispatch is called from the
// poll path and must not block indefinitely.
type Dispatcher interface {
	Dispatch(ctx context.Context, added []types.Item)
}

// Scheduler polls a Fetcher on a repeating timer, diffs each snapshot
// against the previously known identity set, and hands additions to a
// Dispatcher.
//
// The first successful poll seeds the known set without dispatching,
// so a restart never re-notifies about items that were already open.
// Every subsequent successful poll replaces (not merges) the known set
// with the latest snapshot's identities.
//
// Back-pressure policy is drop-not-queue: a tick that fires while a
// previous poll's fetch is still in flight performs no work. The
// in-flight flag is the only guard; a fetch that completes after Stop
// still commits its result (last-writer-wins).
type Scheduler struct {
	fetcher    Fetcher
	dispatcher Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	filters  config.Filters
	known    map[types.Identity]struct{}
	seeded   bool
	inFlight bool

	armed  bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler creates a scheduler with the given cadence and filters.
// The timer is not armed until Start is called.
func NewScheduler(fetcher Fetcher, dispatcher Dispatcher, cfg config.Poll, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   time.Duration(cfg.IntervalSeconds) * time.Second,
		filters:    cfg.Filters,
		known:      make(map[types.Identity]struct{}),
	}
}

// Start arms the repeating poll timer. No-op if already armed.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked(ctx)
}

func (s *Scheduler) startLocked(ctx context.Context) {
	if s.armed {
		return
	}
	s.armed = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(ctx, s.interval, s.stopCh, s.doneCh)
	s.logger.Info("poll scheduler armed", "interval", s.interval)
}

// Stop disarms the timer and waits for the timer loop to exit.
// Idempotent. An in-flight fetch is not aborted; if it completes after
// Stop it still updates the known set.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	s.armed = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	s.logger.Info("poll scheduler disarmed")
}

// SetInterval updates the poll cadence. If the timer is armed it is
// disarmed and rearmed so exactly one timer exists afterward; the new
// cadence takes effect on the next tick.
func (s *Scheduler) SetInterval(ctx context.Context, seconds int) {
	if seconds <= 0 {
		return
	}
	s.mu.Lock()
	wasArmed := s.armed
	s.mu.Unlock()

	if wasArmed {
		s.Stop()
	}

	s.mu.Lock()
	s.interval = time.Duration(seconds) * time.Second
	if wasArmed {
		s.startLocked(ctx)
	}
	s.mu.Unlock()
}

// SetFilters replaces the filter set passed through to the fetcher.
// Takes effect on the next poll.
func (s *Scheduler) SetFilters(filters config.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

// Interval returns the current poll cadence
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Seeded reports whether the first successful poll has populated the
// known set
func (s *Scheduler) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// KnownCount returns the number of identities currently tracked
func (s *Scheduler) KnownCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.known)
}

// run is the timer loop. Each tick launches poll in its own goroutine
// so a slow fetch can never delay or pile up ticks; the in-flight flag
// makes the overlapping tick a no-op instead.
func (s *Scheduler) run(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Immediate first poll so the known set is seeded without waiting
	// a full interval after startup.
	go s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			go s.poll(ctx)
		}
	}
}

// poll performs one fetch-diff-dispatch cycle. Safe to call directly;
// returns immediately if another poll is in flight.
func (s *Scheduler) poll(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	filters := s.filters
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	snapshot, err := s.fetcher.FetchSnapshot(ctx, filters)
	if err != nil {
		// Transient failures are swallowed: the known set is left
		// untouched so the next successful poll diffs against the
		// last good state instead of reporting everything as new.
		s.logger.Warn("snapshot fetch failed", "error", err)
		return
	}

	items := snapshot.Items()

	s.mu.Lock()
	if !s.seeded {
		s.known = IdentitySet(items)
		s.seeded = true
		s.mu.Unlock()
		s.logger.Info("known set seeded", "items", len(items))
		return
	}
	added := Diff(s.known, items)
	s.known = IdentitySet(items)
	s.mu.Unlock()

	if len(added) == 0 {
		return
	}
	s.logger.Info("new items detected", "count", len(added))
	s.dispatcher.Dispatch(ctx, added)
}
