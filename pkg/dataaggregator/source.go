package dataaggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
)

// Source is anything that can be fetched for a window and report its own
// health. Sources never return errors; failures surface in the FeedStatus.
type Source[T any] interface {
	GetName() string
	Fetch(ctx context.Context, window query.Window) (T, ctdf.FeedStatus)
}

type Result[T any] struct {
	Records  T
	Status   ctdf.FeedStatus
	Panicked bool
	TimedOut bool
}

// Fetch runs a single source under its own deadline. A panic or an expired
// deadline becomes an offline status and an empty value.
func Fetch[T any](ctx context.Context, source Source[T], window query.Window, timeout time.Duration, now func() time.Time) Result[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Result[T], 1)

	go func() {
		var result Result[T]
		var catcher panics.Catcher

		catcher.Try(func() {
			result.Records, result.Status = source.Fetch(ctx, window)
		})

		if recovered := catcher.Recovered(); recovered != nil {
			log.Error().Str("source", source.GetName()).Str("stack", string(recovered.Stack)).Msgf("Source panicked: %v", recovered.Value)

			var empty T
			result = Result[T]{
				Records:  empty,
				Status:   ctdf.OfflineFeed(source.GetName(), source.GetName(), now(), fmt.Errorf("panic: %v", recovered.Value)),
				Panicked: true,
			}
		}

		done <- result
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		log.Error().Err(ctx.Err()).Str("source", source.GetName()).Msg("Source did not respond in time")

		var empty T
		return Result[T]{
			Records:  empty,
			Status:   ctdf.OfflineFeed(source.GetName(), source.GetName(), now(), fmt.Errorf("%s: %w", source.GetName(), ctx.Err())),
			TimedOut: true,
		}
	}
}
