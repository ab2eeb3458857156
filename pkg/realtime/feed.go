package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/util"
	"google.golang.org/protobuf/proto"
)

const (
	TripUpdatesFeedName      = "trip-updates"
	VehiclePositionsFeedName = "vehicle-positions"

	DefaultStaleAfter = 5 * time.Minute
)

var ErrNoAPIKey = errors.New("no realtime API key configured")

// FeedSource fetches and decodes one GTFS-RT protobuf feed.
type FeedSource struct {
	Name      string
	SourceTag string

	URL            string
	APIKey         string
	APIKeyHeader   string
	APIKeyRequired bool

	Client       *http.Client
	Timeout      time.Duration
	MaxRetryTime time.Duration
	StaleAfter   time.Duration

	Now func() time.Time
}

func (f *FeedSource) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FeedSource) GetName() string {
	return f.Name
}

// FetchFeed returns the decoded feed or a non-nil error.
func (f *FeedSource) FetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	if f.APIKeyRequired && f.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if f.URL == "" {
		return nil, fmt.Errorf("no %s URL configured", f.Name)
	}

	headers := map[string]string{}
	if f.APIKey != "" {
		header := f.APIKeyHeader
		if header == "" {
			header = "Authorization"
		}
		headers[header] = fmt.Sprintf("apikey %s", f.APIKey)
	}

	body, err := util.Fetch(ctx, util.FetchRequest{
		URL:          f.URL,
		Headers:      headers,
		Client:       f.Client,
		Timeout:      f.Timeout,
		MaxRetryTime: f.MaxRetryTime,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.Name, err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}

	return feed, nil
}

// Status summarises a completed fetch. A feed whose header is older than the
// staleness limit is degraded rather than online.
func (f *FeedSource) Status(feed *gtfs.FeedMessage, records int, err error) ctdf.FeedStatus {
	now := f.now()

	if err != nil {
		log.Error().Err(err).Str("source", f.Name).Msg("Realtime feed unavailable")
		return ctdf.OfflineFeed(f.Name, f.SourceTag, now, err)
	}

	staleAfter := f.StaleAfter
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	if timestamp := feedTimestamp(feed); !timestamp.IsZero() && now.Sub(timestamp) > staleAfter {
		reason := fmt.Sprintf("feed last updated %s ago", now.Sub(timestamp).Round(time.Second))
		log.Warn().Str("source", f.Name).Str("reason", reason).Msg("Realtime feed is stale")

		return ctdf.DegradedFeed(f.Name, f.SourceTag, now, records, reason)
	}

	log.Info().Str("source", f.Name).Int("records", records).Msg("Realtime feed fetched")

	return ctdf.OnlineFeed(f.Name, f.SourceTag, now, records)
}

type TripUpdateSource struct {
	Feed     *FeedSource
	Corridor *corridor.Corridor
}

func (t *TripUpdateSource) GetName() string {
	return t.Feed.Name
}

func (t *TripUpdateSource) Fetch(ctx context.Context, window query.Window) (map[string]*TripUpdate, ctdf.FeedStatus) {
	feed, err := t.Feed.FetchFeed(ctx)
	if err != nil {
		return map[string]*TripUpdate{}, t.Feed.Status(nil, 0, err)
	}

	updates := ProcessTripUpdates(feed, t.Corridor)

	return updates, t.Feed.Status(feed, len(updates), nil)
}

type VehiclePositionSource struct {
	Feed *FeedSource
}

func (v *VehiclePositionSource) GetName() string {
	return v.Feed.Name
}

func (v *VehiclePositionSource) Fetch(ctx context.Context, window query.Window) (map[string]*ctdf.VehiclePosition, ctdf.FeedStatus) {
	feed, err := v.Feed.FetchFeed(ctx)
	if err != nil {
		return map[string]*ctdf.VehiclePosition{}, v.Feed.Status(nil, 0, err)
	}

	positions := ProcessVehiclePositions(feed)

	return positions, v.Feed.Status(feed, len(positions), nil)
}
