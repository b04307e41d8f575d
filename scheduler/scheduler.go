package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/logging"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("scheduler: closed")

// Options configures a Scheduler.
type Options struct {
	// QueueSize is the buffered capacity of the request queue. Submitters
	// block once the buffer is full, which provides natural backpressure.
	QueueSize int
	// Logger receives per-request debug/error entries. Defaults to NoOp.
	Logger logging.Logger
}

type request struct {
	ctx      context.Context
	role     string
	messages []core.Message
	opts     *core.CompletionOptions
	done     chan outcome
}

type outcome struct {
	result *core.CompletionResult
	err    error
}

// Scheduler is the process-wide completion queue. One worker goroutine
// executes requests strictly in submission order; every request, no matter
// which role or meeting issued it, runs only after every earlier-submitted
// request has finished, successes and failures alike.
type Scheduler struct {
	client core.CompletionClient
	logger logging.Logger

	queue chan *request

	// mu orders enqueues against Close: a submitter holds it across the
	// queue send, so once Close observes the lock no send can be in flight
	// and every queued request is resolved by the worker's drain.
	mu      sync.Mutex
	closing bool

	closed  chan struct{}
	drained chan struct{}
}

// New creates a scheduler around the given completion client and starts its
// worker loop.
func New(client core.CompletionClient, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		QueueSize: 64,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Scheduler{
		client:  client,
		logger:  opts.Logger,
		queue:   make(chan *request, opts.QueueSize),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	go s.worker()
	return s
}

// Submit enqueues a generation request and blocks until the worker has
// executed it (or the scheduler is closed, or the caller's context ends
// before the request was picked up). A failing call resolves this caller
// with the error and leaves the queue available for the next one.
func (s *Scheduler) Submit(ctx context.Context, role string, messages []core.Message, opts *core.CompletionOptions) (*core.CompletionResult, error) {
	req := &request{
		ctx:      ctx,
		role:     role,
		messages: messages,
		opts:     opts,
		done:     make(chan outcome, 1),
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	select {
	case s.queue <- req:
		s.mu.Unlock()
	case <-ctx.Done():
		s.mu.Unlock()
		return nil, ctx.Err()
	}

	// Once enqueued the worker always resolves the request, even on
	// cancellation, so waiting on done alone cannot deadlock.
	out := <-req.done
	return out.result, out.err
}

// Pending returns the number of requests waiting in the queue. Advisory
// only; the value is stale the moment it is read.
func (s *Scheduler) Pending() int { return len(s.queue) }

// Close stops the worker loop. Requests already in the queue are resolved
// with ErrClosed; later Submit calls are rejected before they can enqueue.
// Close blocks until the worker exits and is safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if !s.closing {
		s.closing = true
		close(s.closed)
	}
	s.mu.Unlock()
	<-s.drained
}

func (s *Scheduler) worker() {
	defer close(s.drained)
	for {
		select {
		case <-s.closed:
			s.rejectQueued()
			return
		case req := <-s.queue:
			s.execute(req)
		}
	}
}

func (s *Scheduler) execute(req *request) {
	if err := req.ctx.Err(); err != nil {
		req.done <- outcome{err: err}
		return
	}
	start := time.Now()
	res, err := s.client.Complete(req.ctx, req.role, req.messages, req.opts)
	if err != nil {
		s.logger.Error("completion request failed", "role", req.role, "duration", time.Since(start), "error", err)
		req.done <- outcome{err: err}
		return
	}
	s.logger.Debug("completion request resolved", "role", req.role, "duration", time.Since(start))
	req.done <- outcome{result: res}
}

func (s *Scheduler) rejectQueued() {
	for {
		select {
		case req := <-s.queue:
			req.done <- outcome{err: ErrClosed}
		default:
			return
		}
	}
}
