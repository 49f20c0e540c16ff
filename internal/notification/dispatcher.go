package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Notification kinds, used as log fields and metric labels.
const (
	KindAccountCreated = "account_created"
	KindOrderConfirmed = "order_confirmed"
)

// ErrQueueFull is reported when the dispatcher cannot accept more work.
var ErrQueueFull = errors.New("notification queue is full")

// Recorder receives delivery results. *metrics.CheckoutMetrics satisfies it.
type Recorder interface {
	IncNotification(kind, result string)
}

type job struct {
	kind string
	send func(ctx context.Context) error
}

// DispatcherConfig tunes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// MaxElapsed bounds the total retry time of a single notification.
	MaxElapsed time.Duration
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
}

// Dispatcher is a Gateway backed by a bounded queue and worker goroutines.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	recorder Recorder
	logger   zerolog.Logger

	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	abandoned atomic.Int64
}

// NewDispatcher starts cfg.Workers workers draining a queue of cfg.QueueSize.
func NewDispatcher(notifier Notifier, cfg DispatcherConfig, recorder Recorder, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 2 * time.Minute
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.With().Str("component", "notification_dispatcher").Logger(),
		queue:    make(chan job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}

	return d
}

// AccountCreated schedules the temporary-password email for a new guest account.
func (d *Dispatcher) AccountCreated(email, tempPassword string) {
	d.enqueue(job{
		kind: KindAccountCreated,
		send: func(ctx context.Context) error {
			return d.notifier.NotifyAccountCreated(ctx, email, tempPassword)
		},
	})
}

// OrderConfirmed schedules the order confirmation email.
func (d *Dispatcher) OrderConfirmed(email string, order model.Order, items []model.OrderItem) {
	d.enqueue(job{
		kind: KindOrderConfirmed,
		send: func(ctx context.Context) error {
			return d.notifier.NotifyOrderConfirmed(ctx, email, order, items)
		},
	})
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Error().Str("kind", j.kind).Msg("dispatcher closed, notification dropped")
		d.record(j.kind, "dropped")
		return
	}

	select {
	case d.queue <- j:
	default:
		d.logger.Error().Err(ErrQueueFull).Str("kind", j.kind).Msg("notification dropped")
		d.record(j.kind, "dropped")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxElapsedTime = d.cfg.MaxElapsed

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return j.send(d.ctx)
	}, backoff.WithContext(b, d.ctx))

	if err != nil {
		if d.ctx.Err() != nil {
			d.abandoned.Add(1)
		}
		err = fmt.Errorf("%w: %s: %w", model.ErrNotificationFailed, j.kind, err)
		d.logger.Error().
			Err(err).
			Str("code", model.ErrCodeNotificationFailed).
			Str("kind", j.kind).
			Int("attempts", attempts).
			Msg("notification delivery failed")
		d.record(j.kind, "failed")
		return
	}

	d.logger.Debug().Str("kind", j.kind).Int("attempts", attempts).Msg("notification delivered")
	d.record(j.kind, "sent")
}

func (d *Dispatcher) record(kind, result string) {
	if d.recorder != nil {
		d.recorder.IncNotification(kind, result)
	}
}

// Close stops accepting work and waits for queued notifications until ctx is
// done, at which point in-flight retries are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		d.cancel()
		<-done
		err = multierr.Append(err, fmt.Errorf("notification drain interrupted: %w", ctx.Err()))
		if n := d.abandoned.Load(); n > 0 {
			err = multierr.Append(err, fmt.Errorf("%d notifications abandoned", n))
		}
	}
	d.cancel()

	return err
}
