package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"FleetStock/internal/cache"
	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
)

const (
	// failureThreshold suspends polling once the weighted consecutive
	// failure counter reaches it.
	failureThreshold = 3
	// suspendWindow is how long polling stays suspended.
	suspendWindow = 5 * time.Minute
)

// Syncer keeps the mirror's quantities fresh. The first load builds full
// part records and seeds the static cache; every later poll overlays only
// the quantity-bearing fields. Consecutive failures suspend polling for a
// cool-down window; ticks are skipped (never queued) while a poll is in
// flight.
type Syncer struct {
	client   *sheets.Client
	mirror   *mirror.Mirror
	cache    *cache.Cache
	log      *zap.SugaredLogger
	interval time.Duration

	inFlight atomic.Bool

	mu             sync.Mutex
	failures       int
	suspendedUntil time.Time

	now func() time.Time
}

func New(client *sheets.Client, m *mirror.Mirror, c *cache.Cache, interval time.Duration, log *zap.SugaredLogger) *Syncer {
	return &Syncer{
		client:   client,
		mirror:   m,
		cache:    c,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Syncer) WithNow(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Run polls on a fixed interval until ctx is canceled (logout or shutdown).
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				s.log.Warnw("quantity poll failed", "error", err)
			}
		}
	}
}

// Poll fetches the inventory table fresh and overlays quantities onto the
// mirror. A tick that lands while another poll is in flight, or during a
// suspension window, is skipped.
func (s *Syncer) Poll(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	if s.suspended() {
		return nil
	}
	if !s.mirror.Loaded() {
		return s.bootstrapLocked(ctx)
	}

	table, err := s.client.Query(ctx, sheets.QueryInventory)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	fresh := sheets.DecodeInventory(table, s.mirror.TruckIDs(), s.log)
	s.mirror.OverlayQuantities(fresh)
	s.recordSuccess()
	return nil
}

// Bootstrap builds the full mirror: slow-changing entities come from the
// tiered cache when still valid, otherwise from the remote store; the
// inventory and history are always fetched fresh.
func (s *Syncer) Bootstrap(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return errors.New("sync already in flight")
	}
	defer s.inFlight.Store(false)
	return s.bootstrapLocked(ctx)
}

// Refresh is the user-initiated full reload: the cache is purged first so
// every entity is re-fetched.
func (s *Syncer) Refresh(ctx context.Context) error {
	if err := s.cache.Purge(); err != nil {
		return err
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return errors.New("sync already in flight")
	}
	defer s.inFlight.Store(false)
	return s.bootstrapLocked(ctx)
}

func (s *Syncer) bootstrapLocked(ctx context.Context) error {
	settings, err := cachedOr(ctx, s, cache.KeySettings, sheets.QuerySettings, sheets.DecodeSettings)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	s.mirror.SetSettings(settings)

	categories, err := cachedOr(ctx, s, cache.KeyCategories, sheets.QueryCategories, sheets.DecodeCategories)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	if err := s.mirror.SetCategories(categories); err != nil {
		// повреждённая конфигурация — фатально, бэкофф здесь не поможет
		return err
	}

	trucks, err := cachedOr(ctx, s, cache.KeyTrucks, sheets.QueryTrucks, sheets.DecodeTrucks)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	s.mirror.SetTrucks(trucks)

	table, err := s.client.Query(ctx, sheets.QueryInventory)
	if err != nil {
		s.recordFailure(err)
		return err
	}
	parts := sheets.DecodeInventory(table, s.mirror.TruckIDs(), s.log)
	s.mirror.SetParts(parts)

	static := make(map[string]model.PartStatic, len(parts))
	for id, p := range parts {
		static[id] = p.Static()
	}
	if err := s.cache.Set(cache.KeyPartsStatic, static); err != nil {
		s.log.Warnw("failed to cache static part fields", "error", err)
	}

	if history, err := s.client.Query(ctx, sheets.QueryHistory); err != nil {
		s.log.Warnw("history load failed", "error", err)
	} else {
		s.mirror.SetHistory(sheets.DecodeHistory(history))
	}

	s.recordSuccess()
	return nil
}

// cachedOr reads an entity from the cache, falling back to a fresh query.
func cachedOr[T any](ctx context.Context, s *Syncer, key, action string, decode func(sheets.Table) T) (T, error) {
	var v T
	if ok, err := s.cache.Get(key, &v); err == nil && ok {
		return v, nil
	}
	table, err := s.client.Query(ctx, action)
	if err != nil {
		return v, err
	}
	v = decode(table)
	if err := s.cache.Set(key, v); err != nil {
		s.log.Warnw("failed to cache entity", "key", key, "error", err)
	}
	return v, nil
}

func (s *Syncer) suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspendedUntil.IsZero() {
		return false
	}
	if s.now().Before(s.suspendedUntil) {
		return true
	}
	// window over: reset and resume
	s.suspendedUntil = time.Time{}
	s.failures = 0
	return false
}

// Failures returns the current weighted failure count, for tests and the
// status endpoint.
func (s *Syncer) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// SuspendedUntil returns the end of the current suspension window (zero when
// polling is live).
func (s *Syncer) SuspendedUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspendedUntil
}

func (s *Syncer) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
}

func (s *Syncer) recordFailure(err error) {
	if !sheets.IsTransport(err) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// rate limiting weighs double toward suspension
	if errors.Is(err, sheets.ErrRateLimited) {
		s.failures += 2
	} else {
		s.failures++
	}
	if s.failures >= failureThreshold {
		s.suspendedUntil = s.now().Add(suspendWindow)
		s.log.Warnw("polling suspended after repeated failures",
			"failures", s.failures, "until", s.suspendedUntil)
	}
}
