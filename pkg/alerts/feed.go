package alerts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/util"
	"google.golang.org/protobuf/proto"
)

const FeedName = "alerts"

type Format string

const (
	FormatGTFSRT Format = "gtfs-rt"
	FormatSIRISX Format = "siri-sx"
)

var ErrNotConfigured = errors.New("no alert feed configured")

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatGTFSRT:
		return FormatGTFSRT, nil
	case FormatSIRISX:
		return FormatSIRISX, nil
	default:
		return "", fmt.Errorf("unknown alert format %q", value)
	}
}

type FeedSource struct {
	URL    string
	APIKey string
	Format Format

	Client       *http.Client
	Timeout      time.Duration
	MaxRetryTime time.Duration

	Now func() time.Time
}

func (f *FeedSource) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FeedSource) GetName() string {
	return FeedName
}

func (f *FeedSource) Fetch(ctx context.Context, window query.Window) ([]*ctdf.ServiceAlert, ctdf.FeedStatus) {
	now := f.now()

	alerts, err := f.fetch(ctx, now)
	if err != nil {
		log.Error().Err(err).Str("source", FeedName).Msg("Alert feed unavailable")
		return []*ctdf.ServiceAlert{}, ctdf.OfflineFeed(FeedName, ctdf.SourceServiceAlerts, now, err)
	}

	log.Info().Str("source", FeedName).Int("records", len(alerts)).Msg("Alert feed fetched")

	return alerts, ctdf.OnlineFeed(FeedName, ctdf.SourceServiceAlerts, now, len(alerts))
}

func (f *FeedSource) fetch(ctx context.Context, now time.Time) ([]*ctdf.ServiceAlert, error) {
	if f.URL == "" {
		return nil, ErrNotConfigured
	}

	headers := map[string]string{}
	if f.APIKey != "" {
		headers["Authorization"] = fmt.Sprintf("apikey %s", f.APIKey)
	}

	body, err := util.Fetch(ctx, util.FetchRequest{
		URL:          f.URL,
		Headers:      headers,
		Client:       f.Client,
		Timeout:      f.Timeout,
		MaxRetryTime: f.MaxRetryTime,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}

	if f.Format == FormatSIRISX {
		return DecodeSIRISX(bytes.NewReader(body), now)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}

	return DecodeGTFSRT(feed, now), nil
}
