package routine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PermanentError is a permanent error that stops a routine and triggers its onPermanentError callback.
type PermanentError struct{ Err error }

// Error implements the error interface.
func (e *PermanentError) Error() string { return fmt.Sprintf("permanent error: %v", e.Err) }

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error { return e.Err }

// Is is used by errors.Is() to match correctly.
func (e *PermanentError) Is(err error) bool {
	_, ok := err.(*PermanentError)
	return ok
}

// NewPermanentError instantiates and returns a new permanent error.
func NewPermanentError(message string, args ...any) *PermanentError {
	return &PermanentError{Err: fmt.Errorf(message, args...)}
}

// FN is a routine function.
type FN func(context.Context) error

// Routine runs a function in a loop on its own goroutine. Without a ticker or signal the function
// runs back to back; with one, each run waits for the next tick or signal. Failed runs are retried
// after the configured backoff.
type Routine struct {
	log *slog.Logger

	name             string
	fn               FN
	onPermanentError func(error)
	exited           chan struct{}
	startOnce        sync.Once
	closeOnce        sync.Once
	cancel           context.CancelFunc
	retryChannel     chan struct{}
	metrics          *routineMetrics

	timeout              time.Duration
	backOff              backoff.BackOff
	ticker               *time.Ticker
	signals              []reflect.SelectCase
	maxConsecutiveErrors int
}

// New instantiates and returns a new Routine.
func New(name string, fn FN, onPermanentError func(error)) *Routine {
	return &Routine{
		log:              slog.Default(),
		name:             name,
		fn:               fn,
		onPermanentError: onPermanentError,
		exited:           make(chan struct{}),
		retryChannel:     make(chan struct{}, 1), // non-blocking writes.
		metrics:          getMetrics(),
		backOff:          &backoff.ZeroBackOff{},
	}
}

func (r *Routine) WithLogger(logger *slog.Logger) *Routine {
	r.log = logger
	return r
}

// WithMaxConsecutiveErrors sets a max consecutive error threshold which, if reached, stops the routine.
func (r *Routine) WithMaxConsecutiveErrors(maxConsecutiveErrors int) *Routine {
	r.maxConsecutiveErrors = maxConsecutiveErrors
	return r
}

// WithTimeout bounds the context of each execution of the routine's FN.
func (r *Routine) WithTimeout(timeout time.Duration) *Routine { r.timeout = timeout; return r }

// WithTicker runs fn once per tick of the given interval.
func (r *Routine) WithTicker(interval time.Duration) *Routine {
	if r.ticker != nil {
		panic("WithTicker called twice")
	}
	r.ticker = time.NewTicker(interval)
	signal := reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(r.ticker.C)}
	r.signals = append(r.signals, signal)
	return r
}

// WithSignal allows a signal to trigger a run of the routine function.
func (r *Routine) WithSignal(channels ...<-chan struct{}) *Routine {
	for _, channel := range channels {
		signal := reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(channel)}
		r.signals = append(r.signals, signal)
	}
	return r
}

// WithConstantBackOff waits the given duration after each failed run.
func (r *Routine) WithConstantBackOff(interval time.Duration) *Routine {
	r.backOff = backoff.NewConstantBackOff(interval)
	return r
}

// WithExponentialBackOff grows the wait after consecutive failed runs up to max. A successful run resets it.
func (r *Routine) WithExponentialBackOff(initial, max time.Duration) *Routine {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = initial
	exponential.MaxInterval = max
	exponential.MaxElapsedTime = 0
	exponential.Reset()
	r.backOff = exponential
	return r
}

// Start the routine. Non-blocking call.
func (r *Routine) Start(ctx context.Context) *Routine {
	r.startOnce.Do(func() { r.start(ctx) })
	return r
}

func (r *Routine) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.log = r.log.With("routine", r.name)
	r.log.InfoContext(ctx, "started routine")
	r.metrics.running.WithLabelValues(r.name).Set(1)

	consecutiveErrors := 0
	fn := func(ctx context.Context) error {
		if err := r.execute(ctx); err != nil {
			consecutiveErrors++
			if r.maxConsecutiveErrors != 0 && consecutiveErrors >= r.maxConsecutiveErrors {
				return NewPermanentError("exceeded max consecutive errors (%d): %w", r.maxConsecutiveErrors, err)
			}
			return err
		}
		consecutiveErrors = 0
		r.backOff.Reset()
		return nil
	}

	// Fans the signals out into a single channel.
	signal := make(chan struct{}, 1)
	if len(r.signals) == 0 {
		// Every receive returns immediately: fn runs back to back.
		close(signal)
	} else {
		cases := append([]reflect.SelectCase{{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}}, r.signals...)
		go func() {
			for {
				chosen, _, _ := reflect.Select(cases)
				if chosen == 0 {
					return
				}
				select {
				case signal <- struct{}{}:
				default: // There is already an unconsumed signal in here.
				}
			}
		}()
	}

	go func() {
		defer func() {
			r.metrics.running.WithLabelValues(r.name).Set(0)
			close(r.exited)
		}()

		for {
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					r.log.InfoContext(ctx, "context done", "error", ctx.Err())
					return
				}
				if errors.Is(err, &PermanentError{}) {
					r.log.ErrorContext(ctx, "exiting due to permanent error", "error", err)
					if r.onPermanentError != nil {
						r.onPermanentError(err)
					}
					return
				}
				wait := r.backOff.NextBackOff()
				r.log.ErrorContext(ctx, "executing fn", "error", err, "retry_in", wait)
				if wait == backoff.Stop {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				select {
				case r.retryChannel <- struct{}{}:
				default:
				}
			}

			select {
			case <-ctx.Done():
				r.log.InfoContext(ctx, "context done", "error", ctx.Err())
				return
			case <-r.retryChannel:
				r.log.DebugContext(ctx, "retrying")
			case <-signal:
				r.log.DebugContext(ctx, "received signal")
			}
		}
	}()
}

// Close stops the routine. It blocks until the routine has exited its loop.
func (r *Routine) Close() {
	r.closeOnce.Do(func() {
		if r.cancel == nil {
			return
		}
		r.log.Info("closing")
		r.cancel()
		<-r.exited
		r.log.Info("closed")
		if r.ticker != nil {
			r.ticker.Stop()
		}
	})
}

// Done is closed once the routine has exited its loop.
func (r *Routine) Done() <-chan struct{} { return r.exited }

func (r *Routine) execute(ctx context.Context) (err error) {
	if r.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		status := statusSuccess
		if err != nil {
			status = statusError
		}
		r.metrics.executionsTotal.WithLabelValues(r.name, status).Inc()
		r.metrics.durationSeconds.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	}()
	return r.fn(ctx)
}

// CloseInParallel closes the routines concurrently and blocks until all have exited their loop.
func CloseInParallel(routines ...*Routine) {
	wg := sync.WaitGroup{}
	wg.Add(len(routines))
	for _, r := range routines {
		go func() { r.Close(); wg.Done() }()
	}
	wg.Wait()
}
