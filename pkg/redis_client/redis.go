package redis_client

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client

var ErrNotConfigured = errors.New("no redis address configured")

type Options struct {
	Address  string
	Password string
	Database int
}

// Connect opens the shared connection. Redis is optional, so an empty address
// returns ErrNotConfigured and leaves Client nil.
func Connect(ctx context.Context, options Options) error {
	if options.Address == "" {
		return ErrNotConfigured
	}

	redisOptions := &redis.Options{
		Addr: options.Address,
		DB:   options.Database,
	}
	if options.Password != "" {
		redisOptions.Password = options.Password
	}

	client := redis.NewClient(redisOptions)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	Client = client

	log.Info().Str("address", options.Address).Int("database", options.Database).Msg("Connected to Redis")

	return nil
}
