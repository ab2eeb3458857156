package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// FetchRequest describes one outbound GET against an upstream feed.
type FetchRequest struct {
	URL     string
	Headers map[string]string

	Client *http.Client

	// Overall deadline across every retry attempt.
	Timeout time.Duration
	// Upper bound on total time spent backing off. Zero disables retries.
	MaxRetryTime time.Duration
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Fetch performs the request, retrying transport errors and 5xx/429
// responses with exponential backoff, and returns the response body.
func Fetch(ctx context.Context, request FetchRequest) ([]byte, error) {
	client := request.Client
	if client == nil {
		client = http.DefaultClient
	}

	if request.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, request.Timeout)
		defer cancel()
	}

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = 250 * time.Millisecond
	retryBackoff.MaxElapsedTime = request.MaxRetryTime

	var policy backoff.BackOff = retryBackoff
	if request.MaxRetryTime <= 0 {
		policy = &backoff.StopBackOff{}
	}

	var body []byte
	attempt := 0

	operation := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, request.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for key, value := range request.Headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{URL: request.URL, StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("url", request.URL).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying fetch")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}

	return body, nil
}
