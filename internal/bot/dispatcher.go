package bot

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

const (
	defaultConcurrency = 4
	defaultQueueSize   = 16
	defaultIdleTimeout = 5 * time.Minute
)

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, u Update)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Concurrency caps updates handled at once across all chats.
	Concurrency int
	// QueueSize is the per-chat backlog before Submit blocks.
	QueueSize int
	// IdleTimeout stops a chat's worker after this long without updates.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// chatWorker owns the ordered queue of one chat.
// pending counts submitted updates not yet fully handled; guarded by
// Dispatcher.mu.
type chatWorker struct {
	jobs    chan Update
	pending int
}

// Dispatcher runs updates of the same chat sequentially and updates of
// different chats in parallel, bounded by a global semaphore.
type Dispatcher struct {
	ctx     context.Context
	handle  HandlerFunc
	sem     chan struct{}
	opts    DispatcherOptions
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
	workers map[int64]*chatWorker
	sending sync.WaitGroup
	running sync.WaitGroup
}

// NewDispatcher creates a dispatcher calling handle for every update.
// ctx is passed to handlers; it is not cancelled by Close so in-flight
// updates run to completion.
func NewDispatcher(ctx context.Context, handle HandlerFunc, opts DispatcherOptions) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		ctx:     ctx,
		handle:  handle,
		sem:     make(chan struct{}, opts.Concurrency),
		opts:    opts,
		logger:  opts.Logger,
		workers: make(map[int64]*chatWorker),
	}
}

// Submit queues an update behind earlier updates of the same chat. It blocks
// only while that chat's queue is full.
func (d *Dispatcher) Submit(ctx context.Context, u Update) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	w, ok := d.workers[u.ChatID]
	if !ok {
		w = &chatWorker{jobs: make(chan Update, d.opts.QueueSize)}
		d.workers[u.ChatID] = w
		d.running.Add(1)
		go d.run(u.ChatID, w)
	}
	w.pending++
	d.sending.Add(1)
	d.mu.Unlock()
	defer d.sending.Done()

	select {
	case w.jobs <- u:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		w.pending--
		d.mu.Unlock()
		return ctx.Err()
	}
}

// Close stops accepting updates, lets queued updates finish and waits for
// all workers to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.sending.Wait()

	d.mu.Lock()
	for id, w := range d.workers {
		close(w.jobs)
		delete(d.workers, id)
	}
	d.mu.Unlock()

	d.running.Wait()
}

// ActiveChats returns the number of chats with a running worker.
func (d *Dispatcher) ActiveChats() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

func (d *Dispatcher) run(chatID int64, w *chatWorker) {
	defer d.running.Done()

	idle := time.NewTimer(d.opts.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case u, ok := <-w.jobs:
			if !ok {
				return
			}
			d.process(u)
			d.mu.Lock()
			w.pending--
			d.mu.Unlock()
			idle.Reset(d.opts.IdleTimeout)

		case <-idle.C:
			d.mu.Lock()
			if w.pending == 0 && !d.closed {
				delete(d.workers, chatID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(d.opts.IdleTimeout)
		}
	}
}

func (d *Dispatcher) process(u Update) {
	d.sem <- struct{}{}
	defer func() { <-d.sem }()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("update handler panicked",
				"chat_id", u.ChatID,
				"update_id", u.UpdateID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()
	d.handle(d.ctx, u)
}
