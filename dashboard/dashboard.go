// Package dashboard is the search boundary between user input and the weather
// data. It owns the currently displayed state, issues fetches, and decides
// which result is allowed to land when searches overlap.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/forecast"
	"github.com/drewbanne/Weatherly/geo"
	"github.com/drewbanne/Weatherly/history"
	"github.com/drewbanne/Weatherly/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned for a search whose result arrived after a newer search was issued
var ErrSuperseded = errors.New("search superseded by a newer request")

// State is what a front end renders
type State struct {
	Query      string                       `json:"query"`
	Snapshot   *models.WeatherSnapshot      `json:"snapshot,omitempty"`
	Daily      []models.DailyForecastBucket `json:"daily"`
	History    []string                     `json:"history"`
	Error      string                       `json:"error,omitempty"`
	Loading    bool                         `json:"loading"`
	Demo       bool                         `json:"demo"`
	Generation uint64                       `json:"generation"`
}

// Observer is told the outcome of every finished search
type Observer interface {
	ObserveSearch(outcome string, elapsed time.Duration)
}

// Options configures a Dashboard
type Options struct {
	Weather  datasource.WeatherProvider
	Forecast datasource.ForecastSource
	History  *history.Store
	Locator  geo.Locator
	Observer Observer
	Logger   *zap.Logger
	Demo     bool
}

// Dashboard coordinates searches. It is safe for concurrent use.
type Dashboard struct {
	weather  datasource.WeatherProvider
	forecast datasource.ForecastSource
	history  *history.Store
	locator  geo.Locator
	observer Observer
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64 // latest issued
	subs       map[int]chan State
	nextSub    int
}

// New creates a dashboard. A nil history keeps searches in memory only.
func New(opts Options) (*Dashboard, error) {
	if opts.Weather == nil || opts.Forecast == nil {
		return nil, fmt.Errorf("%w: weather and forecast sources are required", datasource.ErrConfiguration)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.History == nil {
		h, err := history.Open(context.Background(), nil, opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.History = h
	}

	d := &Dashboard{
		weather:  opts.Weather,
		forecast: opts.Forecast,
		history:  opts.History,
		locator:  opts.Locator,
		observer: opts.Observer,
		logger:   opts.Logger,
		subs:     make(map[int]chan State),
	}
	d.state = State{
		Daily:   []models.DailyForecastBucket{},
		History: opts.History.Names(),
		Demo:    opts.Demo,
	}
	return d, nil
}

// Search fetches current conditions and the forecast for q and commits them
// unless a newer search was issued in the meantime
func (d *Dashboard) Search(ctx context.Context, q models.Query) (State, error) {
	return d.run(ctx, d.begin(), q)
}

// Reject records input that could not be turned into a query. It counts as a
// search: older searches are superseded and the error is shown in the state.
func (d *Dashboard) Reject(err error) (State, error) {
	if !errors.Is(err, datasource.ErrInvalidQuery) {
		err = fmt.Errorf("%w: %w", datasource.ErrInvalidQuery, err)
	}
	return d.fail(d.begin(), err, time.Now())
}

// SelectHistoryEntry re-runs the search for the history entry at index
func (d *Dashboard) SelectHistoryEntry(ctx context.Context, index int) (State, error) {
	city, err := d.history.Select(index)
	if err != nil {
		return d.State(), err
	}
	return d.Search(ctx, models.CityQuery(city))
}

// SelectHistoryCity re-runs the search for a city picked from the history list
func (d *Dashboard) SelectHistoryCity(ctx context.Context, name string) (State, error) {
	return d.Search(ctx, models.CityQuery(name))
}

// LocateCurrentPosition searches by the position reported by the locator
func (d *Dashboard) LocateCurrentPosition(ctx context.Context) (State, error) {
	gen := d.begin()

	if d.locator == nil {
		return d.fail(gen, fmt.Errorf("%w: geolocation is not supported", datasource.ErrGeolocation), time.Now())
	}

	started := time.Now()
	coords, err := d.locator.Locate(ctx)
	if err != nil {
		if !errors.Is(err, datasource.ErrGeolocation) {
			err = fmt.Errorf("%w: %w", datasource.ErrGeolocation, err)
		}
		return d.fail(gen, err, started)
	}
	d.logger.Debug("position located", zap.Stringer("coords", coords))
	return d.run(ctx, gen, models.CoordsQuery(coords.Lat, coords.Lon))
}

// ClearHistory empties the search history
func (d *Dashboard) ClearHistory() State {
	d.history.Clear()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.History = d.history.Names()
	d.publishLocked()
	return d.copyLocked()
}

// DismissError clears the displayed error
func (d *Dashboard) DismissError() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Error != "" {
		d.state.Error = ""
		d.publishLocked()
	}
	return d.copyLocked()
}

// State returns a copy of the current state
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copyLocked()
}

// History returns the underlying history store
func (d *Dashboard) History() *history.Store {
	return d.history
}

// Subscribe returns a channel receiving the state after every change, and a
// func that unsubscribes. A slow reader only ever sees the latest state.
func (d *Dashboard) Subscribe() (<-chan State, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	ch := make(chan State, 1)
	ch <- d.copyLocked()
	d.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
			close(ch)
		})
	}
}

// begin issues the next generation and marks the state as loading
func (d *Dashboard) begin() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.state.Loading = true
	d.publishLocked()
	return d.generation
}

func (d *Dashboard) run(ctx context.Context, gen uint64, q models.Query) (State, error) {
	started := time.Now()
	if err := q.Validate(); err != nil {
		return d.fail(gen, fmt.Errorf("%w: %w", datasource.ErrInvalidQuery, err), started)
	}

	logger := d.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("query", q.String()),
		zap.Uint64("generation", gen))
	logger.Info("search started")

	var (
		snap models.WeatherSnapshot
		feed models.ForecastFeed
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = d.weather.GetWeather(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		feed, err = d.forecast.FetchForecast(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("search failed", zap.Error(err))
		return d.fail(gen, err, started)
	}

	daily := forecast.Reduce(feed.Samples, feed.UTCOffset)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		logger.Info("search result discarded")
		d.observe(ErrSuperseded, started)
		return d.copyLocked(), ErrSuperseded
	}

	name := q.String()
	if q.IsCoords() && snap.City != "" {
		name = snap.City
	}
	d.state.Query = name
	d.state.Snapshot = &snap
	d.state.Daily = daily
	d.state.History = d.history.Record(name, &snap)
	d.state.Error = ""
	d.state.Loading = false
	d.state.Demo = d.state.Demo || snap.Demo
	d.state.Generation = gen
	d.publishLocked()

	logger.Info("search committed",
		zap.String("city", snap.Location()),
		zap.Int("days", len(daily)),
		zap.Duration("elapsed", time.Since(started)))
	d.observe(nil, started)
	return d.copyLocked(), nil
}

// fail records err in the state if gen is still current; the previous
// snapshot and forecast are left in place
func (d *Dashboard) fail(gen uint64, err error, started time.Time) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.observe(ErrSuperseded, started)
		return d.copyLocked(), ErrSuperseded
	}
	d.state.Error = datasource.UserMessage(err)
	d.state.Loading = false
	d.state.Generation = gen
	d.publishLocked()
	d.observe(err, started)
	return d.copyLocked(), err
}

func (d *Dashboard) observe(err error, started time.Time) {
	if d.observer != nil {
		d.observer.ObserveSearch(Outcome(err), time.Since(started))
	}
}

// publishLocked pushes the state to every subscriber, replacing anything unread
func (d *Dashboard) publishLocked() {
	s := d.copyLocked()
	for _, ch := range d.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (d *Dashboard) copyLocked() State {
	s := d.state
	s.Daily = append([]models.DailyForecastBucket{}, d.state.Daily...)
	s.History = append([]string{}, d.state.History...)
	if d.state.Snapshot != nil {
		snap := *d.state.Snapshot
		s.Snapshot = &snap
	}
	return s
}

// Outcome classifies a search error for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, datasource.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, datasource.ErrNotFound):
		return "not_found"
	case errors.Is(err, datasource.ErrGeolocation):
		return "geolocation"
	case errors.Is(err, datasource.ErrNetwork):
		return "network"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
