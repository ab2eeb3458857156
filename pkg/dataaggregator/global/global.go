package global

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/alerts"
	"github.com/travigo/corridor/pkg/config"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator"
	"github.com/travigo/corridor/pkg/freight"
	"github.com/travigo/corridor/pkg/realtime"
	"github.com/travigo/corridor/pkg/redis_client"
	"github.com/travigo/corridor/pkg/schedule"
	"github.com/travigo/corridor/pkg/stats"
)

// Setup builds the aggregator and its sources from configuration.
func Setup(ctx context.Context, cfg *config.Config) (*dataaggregator.Aggregator, *stats.Collector, error) {
	corridorConfig := corridor.DefaultConfig()
	if cfg.ConfigFile != "" {
		var err error
		if corridorConfig, err = corridor.LoadConfig(cfg.ConfigFile); err != nil {
			return nil, nil, err
		}
	}

	c, err := corridor.NewCorridor(corridorConfig)
	if err != nil {
		return nil, nil, err
	}

	var provider schedule.TimetableProvider
	if cfg.GTFSURL != "" {
		provider = &schedule.GTFSProvider{
			URL:          cfg.GTFSURL,
			Headers:      apiKeyHeaders(cfg.RealtimeAPIKey),
			Corridor:     c,
			Timeout:      cfg.FetchTimeout,
			MaxRetryTime: cfg.FetchRetry,
		}

		if err := redis_client.Connect(ctx, redis_client.Options{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDatabase,
		}); err == nil {
			provider = schedule.NewRedisTimetableCache(redis_client.Client, provider, c.Config.Name)
		} else if !errors.Is(err, redis_client.ErrNotConfigured) {
			log.Warn().Err(err).Msg("Redis unavailable, timetable cache is local only")
		}
	} else {
		log.Warn().Msg("No GTFS URL configured, using built-in timetable")
	}

	if !cfg.RealtimeConfigured() {
		log.Warn().Msg("No realtime API key configured, running in schedule-only mode")
	}

	tripUpdatesFeed := &realtime.FeedSource{
		Name:           realtime.TripUpdatesFeedName,
		SourceTag:      ctdf.SourceTripUpdates,
		URL:            cfg.TripUpdatesURL,
		APIKey:         cfg.RealtimeAPIKey,
		APIKeyRequired: true,
		Timeout:        cfg.FetchTimeout,
		MaxRetryTime:   cfg.FetchRetry,
	}
	vehiclePositionsFeed := &realtime.FeedSource{
		Name:           realtime.VehiclePositionsFeedName,
		SourceTag:      ctdf.SourceVehiclePositions,
		URL:            cfg.VehiclePositionsURL,
		APIKey:         cfg.RealtimeAPIKey,
		APIKeyRequired: true,
		Timeout:        cfg.FetchTimeout,
		MaxRetryTime:   cfg.FetchRetry,
	}

	freightEstimator := &freight.Estimator{Corridor: c}
	if cfg.FreightConfigured() {
		freightEstimator.Live = &freight.HTTPLiveClient{
			URL:          cfg.FreightURL,
			APIKey:       cfg.FreightAPIKey,
			Timeout:      cfg.FetchTimeout,
			MaxRetryTime: cfg.FetchRetry,
		}
	}

	alertsSource := &alerts.FeedSource{
		URL:          cfg.AlertsURL,
		APIKey:       cfg.RealtimeAPIKey,
		Format:       cfg.AlertsFormat,
		Timeout:      cfg.FetchTimeout,
		MaxRetryTime: cfg.FetchRetry,
	}

	collector := stats.NewCollector()

	aggregator := &dataaggregator.Aggregator{
		Corridor:         c,
		Schedule:         schedule.NewSource(c, provider, cfg.ScheduleTTL, nil),
		TripUpdates:      &realtime.TripUpdateSource{Feed: tripUpdatesFeed, Corridor: c},
		VehiclePositions: &realtime.VehiclePositionSource{Feed: vehiclePositionsFeed},
		Freight:          freightEstimator,
		Alerts:           alertsSource,
		SourceTimeout:    cfg.FetchTimeout + cfg.FetchRetry + time.Second,
		Recorder:         collector,
	}

	log.Info().
		Str("corridor", c.Config.Name).
		Bool("realtime", cfg.RealtimeConfigured()).
		Bool("freightlive", cfg.FreightConfigured()).
		Msg("Corridor aggregator ready")

	return aggregator, collector, nil
}

func apiKeyHeaders(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "apikey " + apiKey}
}
