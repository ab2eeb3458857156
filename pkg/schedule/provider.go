package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/util"
)

// TimetableProvider returns a parsed timetable covering serviceDate.
type TimetableProvider interface {
	GetTimetable(ctx context.Context, serviceDate time.Time) (*Timetable, error)
}

// TimetableInvalidator is implemented by providers that hold their own copy
// of the timetable and can be told to drop it.
type TimetableInvalidator interface {
	InvalidateTimetable(ctx context.Context) error
}

// GTFSProvider downloads and parses a GTFS static zip.
type GTFSProvider struct {
	URL      string
	Headers  map[string]string
	Corridor *corridor.Corridor

	Client       *http.Client
	Timeout      time.Duration
	MaxRetryTime time.Duration

	Now Clock
}

func (g *GTFSProvider) GetTimetable(ctx context.Context, serviceDate time.Time) (*Timetable, error) {
	if g.URL == "" {
		return nil, errors.New("no timetable URL configured")
	}

	startTime := time.Now()

	body, err := util.Fetch(ctx, util.FetchRequest{
		URL:          g.URL,
		Headers:      g.Headers,
		Client:       g.Client,
		Timeout:      g.Timeout,
		MaxRetryTime: g.MaxRetryTime,
	})
	if err != nil {
		return nil, fmt.Errorf("download timetable: %w", err)
	}

	timetable, err := ParseTimetable(body, g.Corridor)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	timetable.FetchedAt = now()

	log.Info().
		Str("url", g.URL).
		Int("bytes", len(body)).
		Str("servicedate", serviceDate.Format(gtfsDateFormat)).
		Str("length", time.Since(startTime).String()).
		Msg("Downloaded timetable")

	return timetable, nil
}

// RedisTimetableCache shares the trimmed timetable between processes so only
// one of them has to download the full archive.
type RedisTimetableCache struct {
	Provider TimetableProvider
	Cache    *cache.Cache[string]
	Key      string
}

func NewRedisTimetableCache(client *redis.Client, provider TimetableProvider, corridorName string) *RedisTimetableCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(90*time.Minute))

	return &RedisTimetableCache{
		Provider: provider,
		Cache:    cache.New[string](redisStore),
		Key:      fmt.Sprintf("corridor/timetable/%s", corridorName),
	}
}

func (r *RedisTimetableCache) GetTimetable(ctx context.Context, serviceDate time.Time) (*Timetable, error) {
	if cached, err := r.Cache.Get(ctx, r.Key); err == nil && cached != "" {
		var timetable Timetable
		if err := json.Unmarshal([]byte(cached), &timetable); err == nil {
			log.Debug().Str("key", r.Key).Msg("Timetable loaded from redis")
			return &timetable, nil
		}

		log.Error().Err(err).Str("key", r.Key).Msg("Failed to decode cached timetable")
	}

	timetable, err := r.Provider.GetTimetable(ctx, serviceDate)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(timetable)
	if err != nil {
		return nil, fmt.Errorf("encode timetable: %w", err)
	}

	if err := r.Cache.Set(ctx, r.Key, string(encoded)); err != nil {
		log.Error().Err(err).Str("key", r.Key).Msg("Failed to store timetable in redis")
	}

	return timetable, nil
}

func (r *RedisTimetableCache) InvalidateTimetable(ctx context.Context) error {
	return r.Cache.Delete(ctx, r.Key)
}
