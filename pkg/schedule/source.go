package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/util"
)

const FeedName = "schedule"

// Source produces the baseline scheduled movements. It never fails: when the
// published timetable is unusable it falls back to a stale copy and then to
// the built-in timetable.
type Source struct {
	Corridor *corridor.Corridor
	Provider TimetableProvider
	Cache    *Cache[*Timetable]
	Now      Clock

	// Service dates already refetched and found empty against one timetable.
	emptyMutex     sync.Mutex
	emptyTimetable *Timetable
	emptyDates     map[string]struct{}
}

func NewSource(c *corridor.Corridor, provider TimetableProvider, ttl time.Duration, now Clock) *Source {
	if now == nil {
		now = time.Now
	}

	return &Source{
		Corridor: c,
		Provider: provider,
		Cache:    NewCache[*Timetable](ttl, now),
		Now:      now,
	}
}

func (s *Source) GetName() string {
	return FeedName
}

// ServiceDates lists every service date whose trips may have a primary time
// between from and to, including the previous day for services past midnight.
func (s *Source) ServiceDates(from time.Time, to time.Time) []time.Time {
	start := s.Corridor.Midnight(from).AddDate(0, 0, -1)
	end := s.Corridor.Midnight(to)

	return util.DatesBetween(start, end)
}

func (s *Source) Fetch(ctx context.Context, window query.Window) ([]*ctdf.Movement, ctdf.FeedStatus) {
	return s.GetScheduledMovements(ctx, window.Start, window.End)
}

func (s *Source) GetScheduledMovements(ctx context.Context, from time.Time, to time.Time) ([]*ctdf.Movement, ctdf.FeedStatus) {
	now := s.Now()
	serviceDates := s.ServiceDates(from, to)

	timetable, fresh, cached := s.Cache.Get()

	var fetchErr error
	if !fresh {
		timetable, fresh, cached, fetchErr = s.refresh(ctx, from, timetable, cached)
	}

	var movements []*ctdf.Movement
	if cached {
		movements = s.buildAll(timetable, serviceDates, now)

		if len(movements) == 0 && s.retriedEmpty(timetable, serviceDates) {
			log.Debug().Str("source", FeedName).Msg("Timetable already refetched for these dates, skipping")
		} else if len(movements) == 0 {
			log.Warn().Str("source", FeedName).Msg("Timetable has no corridor movements for the requested dates, refetching")

			s.Cache.Invalidate()
			if invalidator, ok := s.Provider.(TimetableInvalidator); ok {
				if err := invalidator.InvalidateTimetable(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to invalidate shared timetable")
				}
			}

			timetable, fresh, cached, fetchErr = s.refresh(ctx, from, timetable, cached)
			if cached {
				movements = s.buildAll(timetable, serviceDates, now)
				if len(movements) == 0 {
					s.markEmpty(timetable, serviceDates)
				}
			}
		}
	}

	if len(movements) == 0 {
		reason := "published timetable has no corridor services for the requested dates"
		if fetchErr != nil {
			reason = fetchErr.Error()
		}

		movements = BuiltinWindow(s.Corridor, from, to, now)

		log.Warn().Str("source", FeedName).Str("reason", reason).Int("records", len(movements)).Msg("Using built-in timetable")

		return movements, ctdf.DegradedFeed(FeedName, ctdf.SourceBuiltinTimetable, now, len(movements), fmt.Sprintf("using built-in timetable: %s", reason))
	}

	movements = inWindow(movements, from, to)

	if !fresh {
		status := ctdf.DegradedFeed(FeedName, ctdf.SourceGTFSStatic, now, len(movements), "using stale timetable")
		if fetchErr != nil {
			status.Error = fmt.Sprintf("using stale timetable: %s", fetchErr)
		}
		lastSuccess := timetable.FetchedAt
		status.LastSuccess = &lastSuccess

		return movements, status
	}

	log.Info().Str("source", FeedName).Int("records", len(movements)).Msg("Scheduled movements built")

	return movements, ctdf.OnlineFeed(FeedName, ctdf.SourceGTFSStatic, now, len(movements))
}

// refresh fetches a new timetable, keeping whatever was cached if that fails.
func (s *Source) refresh(ctx context.Context, serviceDate time.Time, current *Timetable, cached bool) (*Timetable, bool, bool, error) {
	if s.Provider == nil {
		return current, false, cached, fmt.Errorf("no timetable provider configured")
	}

	timetable, err := s.Provider.GetTimetable(ctx, serviceDate)
	if err != nil {
		log.Error().Err(err).Str("source", FeedName).Bool("stale", cached).Msg("Failed to fetch timetable")
		return current, false, cached, err
	}

	s.Cache.Set(timetable)
	s.forgetEmpty()

	return timetable, true, true, nil
}

func serviceDatesKey(serviceDates []time.Time) string {
	keys := make([]string, len(serviceDates))
	for i, serviceDate := range serviceDates {
		keys[i] = serviceDate.Format("20060102")
	}
	return strings.Join(keys, ",")
}

// retriedEmpty reports whether these service dates were already refetched and
// found empty against this exact timetable. A new timetable clears the record.
func (s *Source) retriedEmpty(timetable *Timetable, serviceDates []time.Time) bool {
	s.emptyMutex.Lock()
	defer s.emptyMutex.Unlock()

	if timetable == nil || timetable != s.emptyTimetable {
		return false
	}
	_, ok := s.emptyDates[serviceDatesKey(serviceDates)]
	return ok
}

func (s *Source) markEmpty(timetable *Timetable, serviceDates []time.Time) {
	s.emptyMutex.Lock()
	defer s.emptyMutex.Unlock()

	if timetable != s.emptyTimetable {
		s.emptyTimetable = timetable
		s.emptyDates = map[string]struct{}{}
	}
	s.emptyDates[serviceDatesKey(serviceDates)] = struct{}{}
}

func (s *Source) forgetEmpty() {
	s.emptyMutex.Lock()
	s.emptyTimetable = nil
	s.emptyDates = nil
	s.emptyMutex.Unlock()
}

func (s *Source) buildAll(timetable *Timetable, serviceDates []time.Time, now time.Time) []*ctdf.Movement {
	movements := []*ctdf.Movement{}
	for _, serviceDate := range serviceDates {
		movements = append(movements, BuildMovements(timetable, s.Corridor, serviceDate, now)...)
	}

	return movements
}

func inWindow(movements []*ctdf.Movement, from time.Time, to time.Time) []*ctdf.Movement {
	util.InPlaceFilter(&movements, func(m *ctdf.Movement) bool {
		return !m.PrimaryTime.Before(from) && !m.PrimaryTime.After(to)
	})

	return movements
}
