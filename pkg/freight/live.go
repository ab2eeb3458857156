package freight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/util"
)

// Record is one freight service reported by a live freight feed.
type Record struct {
	ID           string         `json:"id"`
	Operator     string         `json:"operator"`
	Commodity    string         `json:"commodity"`
	Consist      string         `json:"consist"`
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	Direction    ctdf.Direction `json:"direction"`
	CorridorTime time.Time      `json:"corridorTime"`
}

type LiveClient interface {
	GetFreightRecords(ctx context.Context, date time.Time) ([]Record, error)
}

type liveResponse struct {
	Services []Record `json:"services"`
}

// HTTPLiveClient reads freight services for a date from a JSON endpoint.
type HTTPLiveClient struct {
	URL    string
	APIKey string

	Client       *http.Client
	Timeout      time.Duration
	MaxRetryTime time.Duration
}

func (h *HTTPLiveClient) GetFreightRecords(ctx context.Context, date time.Time) ([]Record, error) {
	requestURL, err := url.Parse(h.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid freight URL: %w", err)
	}

	values := requestURL.Query()
	values.Set("date", date.Format("2006-01-02"))
	requestURL.RawQuery = values.Encode()

	body, err := util.Fetch(ctx, util.FetchRequest{
		URL:          requestURL.String(),
		Headers:      map[string]string{"X-API-Key": h.APIKey},
		Client:       h.Client,
		Timeout:      h.Timeout,
		MaxRetryTime: h.MaxRetryTime,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch freight: %w", err)
	}

	var response liveResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode freight: %w", err)
	}

	return response.Services, nil
}
