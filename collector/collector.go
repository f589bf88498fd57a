// Package collector keeps the last-known snapshots in the search history fresh.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/history"
	"github.com/drewbanne/Weatherly/models"

	"go.uber.org/zap"
)

// DefaultInterval is how often the history is refreshed
const DefaultInterval = 15 * time.Minute

// HistoryRefresher periodically re-fetches current conditions for every
// remembered city and attaches them to the history entries
type HistoryRefresher struct {
	provider     datasource.WeatherProvider
	store        *history.Store
	errorChan    chan error
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewHistoryRefresher creates a refresher over the given provider and store
func NewHistoryRefresher(provider datasource.WeatherProvider, store *history.Store, logger *zap.Logger) *HistoryRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRefresher{
		provider:     provider,
		store:        store,
		errorChan:    make(chan error, 100),
		interval:     DefaultInterval,
		fetchTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// SetInterval changes the refresh period; non-positive values are ignored
func (r *HistoryRefresher) SetInterval(interval time.Duration) {
	if interval > 0 {
		r.interval = interval
	}
}

// SetFetchTimeout changes the timeout for a single fetch
func (r *HistoryRefresher) SetFetchTimeout(timeout time.Duration) {
	r.fetchTimeout = timeout
}

// ErrorChannel returns the channel that emits refresh errors
func (r *HistoryRefresher) ErrorChannel() <-chan error {
	return r.errorChan
}

// Start begins refreshing in the background.
// The returned function stops the refresher and waits for it to exit.
func (r *HistoryRefresher) Start(ctx context.Context) func() {
	refreshCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go r.loop(refreshCtx, &wg)

	go func() {
		wg.Wait()
		close(r.errorChan)
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (r *HistoryRefresher) loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RefreshOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RefreshOnce refreshes every history entry a single time and returns how
// many snapshots were attached
func (r *HistoryRefresher) RefreshOnce(ctx context.Context) int {
	refreshed := 0
	for _, city := range r.store.Names() {
		if ctx.Err() != nil {
			return refreshed
		}
		if r.fetchOnce(ctx, city) {
			refreshed++
		}
	}
	r.logger.Debug("history refreshed", zap.Int("refreshed", refreshed), zap.Int("entries", r.store.Len()))
	return refreshed
}

// fetchOnce performs a single fetch for a city
func (r *HistoryRefresher) fetchOnce(ctx context.Context, city string) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	snap, err := r.provider.GetWeather(fetchCtx, models.CityQuery(city))
	if err != nil {
		err = fmt.Errorf("failed to refresh %s from %s: %w", city, r.provider.Name(), err)
		r.logger.Warn("history refresh failed", zap.Error(err))
		select {
		case r.errorChan <- err:
		default:
		}
		return false
	}

	// the entry may have been cleared while we were fetching
	return r.store.Attach(city, snap)
}
