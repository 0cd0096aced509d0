// Package poller runs the single polling loop of a group sharing session and
// fans its results out to subscribers, so UI code never polls on its own.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultInterval   = 3 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// FetchFunc performs one poll of the remote session.
type FetchFunc func(ctx context.Context) (*models.Session, error)

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxBackoff caps the delay between polls after transient failures.
func WithMaxBackoff(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.maxBackoff = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// Poller owns one polling loop. The zero value is not usable; call New.
type Poller struct {
	fetch      FetchFunc
	interval   time.Duration
	maxBackoff time.Duration
	logger     logging.Logger
	metrics    *Metrics
	now        func() time.Time

	inFlight atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	backoff retry.Backoff
	subs    map[uint64]chan Update
	nextSub uint64
	last    *Update
}

func New(fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		fetch:      fetch,
		interval:   DefaultInterval,
		maxBackoff: DefaultMaxBackoff,
		logger:     logging.Nop(),
		now:        time.Now,
		subs:       make(map[uint64]chan Update),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("module", "poller")
	p.backoff = p.newBackoff()
	return p
}

func (p *Poller) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(p.maxBackoff, retry.NewExponential(p.interval))
}

// Start launches the loop. It reports false, and does nothing, when the
// loop is already running. The loop lives until Stop, until parent is
// cancelled, or until the session is reported gone.
func (p *Poller) Start(parent context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.backoff = p.newBackoff()

	go p.run(ctx, done)
	return true
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop cancels the loop, aborting an in-flight poll, and waits for it to
// exit. Stopping a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.done == done {
			p.cancel()
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
		close(done)
	}()

	p.logger.Debug(ctx, "polling started", "interval", p.interval)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug(ctx, "polling stopped")
			return
		case <-timer.C:
		}

		u, ran := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := p.interval
		switch {
		case !ran:
		case u.Terminal():
			p.logger.Info(ctx, "polling finished", "result", u.Kind.String())
			return
		case u.Kind == TransientError:
			delay = p.retryDelay(u.Err)
			p.logger.Warn(ctx, "poll failed", "error", u.Err, "retry_in", delay)
		default:
			p.resetBackoff()
		}
		timer.Reset(delay)
	}
}

// retryDelay backs off exponentially after failures the server may get
// over. A definitive answer, such as a refused request or an unreadable
// response, waits the full cap instead.
func (p *Poller) retryDelay(err error) time.Duration {
	if !client.IsTransient(err) {
		return p.maxBackoff
	}
	return p.nextBackoff()
}

func (p *Poller) nextBackoff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, stop := p.backoff.Next()
	if stop || d <= 0 {
		return p.maxBackoff
	}
	return d
}

func (p *Poller) resetBackoff() {
	p.mu.Lock()
	p.backoff = p.newBackoff()
	p.mu.Unlock()
}

// Poll runs one fetch right away and publishes its update. It reports false,
// without fetching, when another poll is still in flight; skipping keeps a
// slow response from racing a newer one into the cache.
func (p *Poller) Poll(ctx context.Context) (Update, bool) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.skip()
		p.logger.Debug(ctx, "poll skipped, previous still in flight")
		return Update{}, false
	}
	defer p.inFlight.Store(false)

	start := p.now()
	s, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return Update{Kind: TransientError, Err: ctx.Err()}, true
	}

	u := Classify(s, err)
	u.At = p.now()
	p.metrics.observe(u, u.At.Sub(start).Seconds())

	p.publish(u)
	return u, true
}

// Subscribe returns a channel of updates and a function that closes it.
// Each channel holds at most one pending update; a slow reader sees the
// latest one. A new subscriber immediately receives the last update, if any.
func (p *Poller) Subscribe() (<-chan Update, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Update, 1)
	if p.last != nil {
		ch <- *p.last
	}
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

// Reset forgets the last update so new subscribers start clean, e.g. when
// the poller is reused for another session.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.last = nil
	p.mu.Unlock()
}

// Close stops the loop and closes every subscription.
func (p *Poller) Close() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// Notify publishes an update that did not come from a poll, such as a
// local write or the end of the session.
func (p *Poller) Notify(u Update) {
	if u.At.IsZero() {
		u.At = p.now()
	}
	p.publish(u)
}

func (p *Poller) publish(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = &u
	for _, ch := range p.subs {
		select {
		case ch <- u:
			continue
		default:
		}
		// full: drop the stale update and keep the newest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}
