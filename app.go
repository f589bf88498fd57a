package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/drewbanne/Weatherly/api"
	"github.com/drewbanne/Weatherly/cache"
	"github.com/drewbanne/Weatherly/dashboard"
	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/geo"
	"github.com/drewbanne/Weatherly/history"

	"go.uber.org/zap"
)

// options are the flags shared by every command
type options struct {
	configFile string
	mode       string
	storage    string
	cacheTTL   time.Duration
	rateLimit  bool
	debug      bool
	serving    bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configFile, "config", "config.json", "Path to configuration file")
	fs.StringVar(&o.mode, "mode", "", "Data mode: live or demo (overrides config and WEATHERLY_MODE)")
	fs.StringVar(&o.storage, "storage", "", "History storage: a JSON file path or a sqlite3:// / postgres:// DSN")
	fs.DurationVar(&o.cacheTTL, "cache", 10*time.Minute, "Cache duration for provider responses (0 disables)")
	fs.BoolVar(&o.rateLimit, "rate-limit", true, "Enable API rate limiting")
	fs.BoolVar(&o.debug, "debug", false, "Enable development logging")
	return o
}

// app is the wired set of components behind every command
type app struct {
	config    *datasource.Config
	logger    *zap.Logger
	weather   datasource.WeatherProvider
	store     *history.Store
	dashboard *dashboard.Dashboard
	metrics   *api.Metrics
}

func newLogger(o *options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if o.debug {
		cfg = zap.NewDevelopmentConfig()
	} else if !o.serving {
		// keep one-shot commands quiet on stderr
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// loadConfig applies the config file, the environment, then flags
func loadConfig(o *options) (*datasource.Config, error) {
	config, err := datasource.LoadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load configuration: %w", datasource.ErrConfiguration, err)
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if o.mode != "" {
		config.Mode = datasource.Mode(o.mode)
	}
	if o.storage != "" {
		config.Storage = o.storage
	}
	return config, config.Validate()
}

func newApp(o *options) (*app, error) {
	logger, err := newLogger(o)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	config, err := loadConfig(o)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	source, err := datasource.NewSource(config)
	if err != nil {
		return nil, err
	}
	logger.Info("weather source ready", zap.String("source", source.Name()), zap.String("mode", string(config.Mode)))
	if config.Mode == datasource.ModeDemo {
		logger.Warn("running in demo mode; all weather data is fixture data")
	}

	// OpenWeatherMap free tier allows 60 calls/minute; demo data needs no limit
	if o.rateLimit && config.Mode == datasource.ModeLive {
		source = datasource.NewRateLimitedProvider(source, 1.0, 1.0, 5)
	}

	metrics := api.NewMetrics()
	source = metrics.Instrument(source)

	var (
		weather  datasource.WeatherProvider = source
		forecast datasource.ForecastSource  = source
	)
	if o.cacheTTL > 0 {
		cw := cache.NewCachedWeatherProvider(source, o.cacheTTL, logger)
		cf := cache.NewCachedForecastSource(source, o.cacheTTL, logger)
		metrics.RegisterCache("weather", cw.CacheStats)
		metrics.RegisterCache("forecast", cf.CacheStats)
		weather, forecast = cw, cf
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	persister, err := history.OpenPersister(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open history storage: %w", err)
	}
	store, err := history.Open(ctx, persister, logger.Named("history"))
	if err != nil {
		persister.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	d, err := dashboard.New(dashboard.Options{
		Weather:  weather,
		Forecast: forecast,
		History:  store,
		Locator:  geo.FromConfig(config),
		Observer: metrics,
		Logger:   logger.Named("dashboard"),
		Demo:     config.Mode == datasource.ModeDemo,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		config:    config,
		logger:    logger,
		weather:   weather,
		store:     store,
		dashboard: d,
		metrics:   metrics,
	}, nil
}

func (a *app) server(port int) *api.Server {
	return api.NewServer(a.dashboard, a.metrics, a.config.Mode, port, a.logger.Named("api"))
}

// Close releases storage and flushes the logger
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close history storage", zap.Error(err))
	}
	a.logger.Sync()
}
