package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/corridor/pkg/dataaggregator"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
)

const DefaultInterval = 20 * time.Second

type Fetcher func(ctx context.Context, q *query.Movements) (*dataaggregator.Response, error)

// Poller re-runs the aggregation cycle on an interval. Issuing a new cycle
// cancels the one in flight and a cancelled cycle never delivers a result.
type Poller struct {
	Fetch    Fetcher
	Interval time.Duration

	OnResult func(*dataaggregator.Response)
	OnError  func(error)

	mutex      sync.Mutex
	query      *query.Movements
	cancel     context.CancelFunc
	generation uint64

	reissue chan struct{}
	wg      conc.WaitGroup
}

func New(fetch Fetcher, q *query.Movements) *Poller {
	return &Poller{
		Fetch:    fetch,
		Interval: DefaultInterval,
		query:    q,
		reissue:  make(chan struct{}, 1),
	}
}

// SetQuery swaps the filters and issues a fresh cycle.
func (p *Poller) SetQuery(q *query.Movements) {
	p.mutex.Lock()
	p.query = q
	p.mutex.Unlock()

	p.Refresh()
}

// Refresh issues a fresh cycle without waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.reissue <- struct{}{}:
	default:
	}
}

// Run issues a cycle immediately and then on every tick or refresh until ctx
// is done. It waits for the in-flight cycle to wind down before returning.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.issue(ctx)

	for {
		select {
		case <-ctx.Done():
			p.mutex.Lock()
			if p.cancel != nil {
				p.cancel()
			}
			p.mutex.Unlock()

			p.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			p.issue(ctx)
		case <-p.reissue:
			ticker.Reset(interval)
			p.issue(ctx)
		}
	}
}

func (p *Poller) issue(parent context.Context) {
	p.mutex.Lock()
	if p.cancel != nil {
		p.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.generation++

	generation := p.generation
	q := p.query
	p.mutex.Unlock()

	p.wg.Go(func() {
		defer cancel()

		response, err := p.Fetch(ctx, q)

		p.mutex.Lock()
		defer p.mutex.Unlock()

		if generation != p.generation || ctx.Err() != nil {
			log.Debug().Uint64("generation", generation).Msg("Discarding result of cancelled cycle")
			return
		}

		if err != nil {
			if p.OnError != nil {
				p.OnError(err)
			}
			return
		}

		if p.OnResult != nil {
			p.OnResult(response)
		}
	})
}
