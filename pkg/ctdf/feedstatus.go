package ctdf

import "time"

type FeedHealth string

const (
	FeedHealthOnline   FeedHealth = "online"
	FeedHealthDegraded FeedHealth = "degraded"
	FeedHealthOffline  FeedHealth = "offline"
)

// FeedStatus reports the health of one source for one aggregation cycle.
type FeedStatus struct {
	Name        string     `json:"name" groups:"basic"`
	Source      string     `json:"source" groups:"basic"`
	Status      FeedHealth `json:"status" groups:"basic"`
	LastFetch   time.Time  `json:"lastFetch" groups:"basic"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty" groups:"basic"`
	Error       string     `json:"error,omitempty" groups:"basic"`
	RecordCount *int       `json:"recordCount,omitempty" groups:"basic"`
}

func OnlineFeed(name string, source string, at time.Time, records int) FeedStatus {
	return FeedStatus{
		Name:        name,
		Source:      source,
		Status:      FeedHealthOnline,
		LastFetch:   at,
		LastSuccess: &at,
		RecordCount: &records,
	}
}

func DegradedFeed(name string, source string, at time.Time, records int, reason string) FeedStatus {
	status := OnlineFeed(name, source, at, records)
	status.Status = FeedHealthDegraded
	status.Error = reason

	return status
}

func OfflineFeed(name string, source string, at time.Time, err error) FeedStatus {
	status := FeedStatus{
		Name:      name,
		Source:    source,
		Status:    FeedHealthOffline,
		LastFetch: at,
	}
	if err != nil {
		status.Error = err.Error()
	}

	return status
}

func (f FeedStatus) IsOffline() bool {
	return f.Status == FeedHealthOffline
}
