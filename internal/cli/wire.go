package cli

import (
	"context"
	"time"

	"finadvisor/internal/breaker"
	"finadvisor/internal/cache"
	"finadvisor/internal/classify"
	"finadvisor/internal/config"
	applog "finadvisor/internal/log"
	"finadvisor/internal/predictor"
	"finadvisor/internal/services"
)

// NewBatchAdvisor builds the model-free advisor from the config and tables.
func NewBatchAdvisor(cfg *config.Config, tables config.Tables) (*services.BatchAdvisor, error) {
	threshold, err := cfg.Threshold()
	if err != nil {
		return nil, err
	}
	return services.NewBatchAdvisor(classify.New(tables.KeywordTable()), cfg.ReminderWindowDays, threshold), nil
}

// Forecasting bundles the model-backed forecaster with its readiness probe
// and the score caches that need periodic cleanup.
type Forecasting struct {
	Forecaster *services.Forecaster
	Ready      func() bool
	Caches     *cache.Manager
}

// Close stops cache cleanup.
func (f *Forecasting) Close() {
	if f != nil && f.Caches != nil {
		f.Caches.Stop()
	}
}

// NewForecasting connects the forecaster to the predictor service named by
// cfg. It returns nil when no predictor URL is configured.
func NewForecasting(ctx context.Context, logger *applog.Logger, cfg *config.Config, tables config.Tables) (*Forecasting, error) {
	if cfg.PredictorURL == "" {
		logger.Info("Predictor disabled, forecast endpoint will answer 503")
		return nil, nil
	}

	fc, err := tables.ForecastConfig()
	if err != nil {
		return nil, err
	}
	client, err := predictor.NewClient(predictor.Config{
		BaseURL: cfg.PredictorURL,
		Timeout: cfg.PredictorTimeout,
		Breaker: breaker.Config{MaxFailures: 5, OpenTimeout: 30 * time.Second},
	}, fc.Schema)
	if err != nil {
		return nil, err
	}

	var p services.Predictor = client
	manager := cache.NewManager()
	if cfg.PredictorCacheSize > 0 {
		cached := predictor.NewCached(client, cfg.PredictorCacheSize, cfg.PredictorCacheTTL)
		for _, c := range cached.Caches() {
			manager.Register(c)
		}
		manager.StartCleanup(ctx, time.Minute)
		p = cached
	}

	forecaster, err := services.NewForecaster(fc, p)
	if err != nil {
		manager.Stop()
		return nil, err
	}

	logger.Info("Predictor configured",
		"url", cfg.PredictorURL,
		applog.FieldSchemaVersion, fc.Schema.Version,
		"cache_size", cfg.PredictorCacheSize)
	return &Forecasting{Forecaster: forecaster, Ready: client.Ready, Caches: manager}, nil
}
