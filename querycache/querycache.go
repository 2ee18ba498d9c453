package querycache

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	ErrCallTimeout  = errors.New("query call timeout")
	ErrTypeMismatch = errors.New("cached query result has unexpected type")
)

type FetchFn func(ctx context.Context) (interface{}, error)

type Config struct {
	// StaleTime is the age after which cached data gets refetched on the next Fetch.
	// Zero means data never goes stale by age and is only refreshed by Refetch or Invalidate.
	StaleTime time.Duration
	// GCTime is the idle time after which an entry without pending call is dropped. Zero disables cleanup.
	GCTime time.Duration
	// CallTimeout bounds a single upstream call.
	CallTimeout time.Duration
}

type QueryCache struct {
	config  Config
	logger  logrus.FieldLogger
	mutex   sync.Mutex
	entries map[QueryKey]*queryEntry
	now     func() time.Time

	stopChan  chan struct{}
	closeOnce sync.Once

	callCount    *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	callJoins    *prometheus.CounterVec
	callErrors   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

type queryEntry struct {
	data        interface{}
	hasData     bool
	err         error
	updatedAt   time.Time
	errorAt     time.Time
	lastAccess  time.Time
	invalidated bool
	call        *queryCall
}

type queryCall struct {
	done chan struct{}
	data interface{}
	err  error
}

type EntryStats struct {
	Key       QueryKey  `json:"key"`
	HasData   bool      `json:"has_data"`
	UpdatedAt time.Time `json:"updated_at"`
	InFlight  bool      `json:"in_flight"`
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
}

// NewQueryCache creates a query cache. Metrics are registered with the given
// registerer; pass nil to keep them unregistered.
func NewQueryCache(config Config, logger logrus.FieldLogger, registerer prometheus.Registerer) *QueryCache {
	if config.CallTimeout == 0 {
		config.CallTimeout = 30 * time.Second
	}

	factory := promauto.With(registerer)
	qc := &QueryCache{
		config:   config,
		logger:   logger,
		entries:  map[QueryKey]*queryEntry{},
		now:      time.Now,
		stopChan: make(chan struct{}),

		callCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_query_calls",
			Help: "Number of upstream query calls",
		}, []string{"resource"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_query_cache_hits",
			Help: "Number of queries served from fresh cached data",
		}, []string{"resource"}),
		callJoins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_query_joins",
			Help: "Number of queries that joined an in-flight call",
		}, []string{"resource"}),
		callErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiscope_query_errors",
			Help: "Number of failed upstream query calls",
		}, []string{"resource"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "suiscope_query_duration",
			Help:    "Upstream query call duration in ms",
			Buckets: []float64{0, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"resource"}),
	}

	if config.GCTime > 0 {
		go qc.runCleanup()
	}

	return qc
}

func (qc *QueryCache) Close() {
	qc.closeOnce.Do(func() {
		close(qc.stopChan)
	})
}

// Fetch returns fresh cached data for key, or starts (or joins) the upstream call.
func (qc *QueryCache) Fetch(ctx context.Context, key QueryKey, fetchFn FetchFn) (interface{}, error) {
	return qc.fetch(ctx, key, fetchFn, false)
}

// Refetch ignores cached data, but still joins a call that is already in flight for key.
func (qc *QueryCache) Refetch(ctx context.Context, key QueryKey, fetchFn FetchFn) (interface{}, error) {
	return qc.fetch(ctx, key, fetchFn, true)
}

func (qc *QueryCache) fetch(ctx context.Context, key QueryKey, fetchFn FetchFn, force bool) (interface{}, error) {
	resource := key.Resource()
	now := qc.now()

	qc.mutex.Lock()
	entry := qc.getEntry(key)
	entry.lastAccess = now

	if !force && entry.hasData && !qc.isStale(entry, now) {
		data := entry.data
		qc.mutex.Unlock()
		qc.cacheHits.WithLabelValues(resource).Inc()
		return data, nil
	}

	call := entry.call
	if call != nil {
		qc.callJoins.WithLabelValues(resource).Inc()
	} else {
		call = &queryCall{
			done: make(chan struct{}),
		}
		entry.call = call
		qc.callCount.WithLabelValues(resource).Inc()
		go qc.runCall(key, call, fetchFn)
	}
	qc.mutex.Unlock()

	select {
	case <-call.done:
		return call.data, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (qc *QueryCache) runCall(key QueryKey, call *queryCall, fetchFn FetchFn) {
	resource := key.Resource()
	startTime := time.Now()

	// the call is shared by all waiters, so it must not depend on the first caller's context
	callCtx, cancel := context.WithTimeout(context.Background(), qc.config.CallTimeout)
	defer cancel()

	data, err := qc.invoke(callCtx, key, fetchFn)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrCallTimeout, err)
	}

	qc.callDuration.WithLabelValues(resource).Observe(float64(time.Since(startTime).Milliseconds()))

	qc.mutex.Lock()
	entry := qc.getEntry(key)
	if err != nil {
		qc.callErrors.WithLabelValues(resource).Inc()
		entry.err = err
		entry.errorAt = qc.now()
		call.err = err
	} else {
		entry.data = data
		entry.hasData = true
		entry.err = nil
		entry.updatedAt = qc.now()
		entry.invalidated = false
		call.data = data
	}
	if entry.call == call {
		entry.call = nil
	}
	qc.mutex.Unlock()

	if err != nil {
		qc.logger.WithError(err).Debugf("query %v failed", key)
	}
	close(call.done)
}

func (qc *QueryCache) invoke(ctx context.Context, key QueryKey, fetchFn FetchFn) (data interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			qc.logger.Errorf("uncaught panic in query %v: %v, stack: %v", key, rec, string(debug.Stack()))
			data = nil
			err = fmt.Errorf("query %v panic: %v", key, rec)
		}
	}()

	return fetchFn(ctx)
}

// Peek returns the last known good data for key without fetching.
func (qc *QueryCache) Peek(key QueryKey) (interface{}, time.Time, bool) {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	entry := qc.entries[key]
	if entry == nil || !entry.hasData {
		return nil, time.Time{}, false
	}
	entry.lastAccess = qc.now()
	return entry.data, entry.updatedAt, true
}

// IsStale reports whether a Fetch for key would issue an upstream call.
func (qc *QueryCache) IsStale(key QueryKey) bool {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	entry := qc.entries[key]
	if entry == nil || !entry.hasData {
		return true
	}
	return qc.isStale(entry, qc.now())
}

// LastError returns the error of the most recent failed call for key, if it
// failed after the last successful one.
func (qc *QueryCache) LastError(key QueryKey) error {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	entry := qc.entries[key]
	if entry == nil {
		return nil
	}
	return entry.err
}

// Invalidate marks all entries whose key starts with prefix as stale and
// returns the number of affected entries.
func (qc *QueryCache) Invalidate(prefix string) int {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	count := 0
	for key, entry := range qc.entries {
		if key.HasPrefix(prefix) {
			entry.invalidated = true
			count++
		}
	}
	return count
}

func (qc *QueryCache) Stats() []EntryStats {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	now := qc.now()
	stats := make([]EntryStats, 0, len(qc.entries))
	for key, entry := range qc.entries {
		entryStats := EntryStats{
			Key:       key,
			HasData:   entry.hasData,
			UpdatedAt: entry.updatedAt,
			InFlight:  entry.call != nil,
			Stale:     !entry.hasData || qc.isStale(entry, now),
		}
		if entry.err != nil {
			entryStats.Error = entry.err.Error()
		}
		stats = append(stats, entryStats)
	}
	sort.Slice(stats, func(a, b int) bool {
		return stats[a].Key < stats[b].Key
	})
	return stats
}

func (qc *QueryCache) getEntry(key QueryKey) *queryEntry {
	entry := qc.entries[key]
	if entry == nil {
		entry = &queryEntry{}
		qc.entries[key] = entry
	}
	return entry
}

func (qc *QueryCache) isStale(entry *queryEntry, now time.Time) bool {
	if entry.invalidated {
		return true
	}
	if qc.config.StaleTime <= 0 {
		return false
	}
	return now.Sub(entry.updatedAt) >= qc.config.StaleTime
}

func (qc *QueryCache) runCleanup() {
	interval := qc.config.GCTime / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-qc.stopChan:
			return
		case <-ticker.C:
			if dropped := qc.collectGarbage(); dropped > 0 {
				qc.logger.Debugf("dropped %v idle query cache entries", dropped)
			}
		}
	}
}

func (qc *QueryCache) collectGarbage() int {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()

	now := qc.now()
	dropped := 0
	for key, entry := range qc.entries {
		if entry.call == nil && now.Sub(entry.lastAccess) > qc.config.GCTime {
			delete(qc.entries, key)
			dropped++
		}
	}
	return dropped
}
