package backend

import (
	"context"
	"sync"
	"time"
)

// Sender delivers reports. *Client implements it.
type Sender interface {
	ReportProgress(ctx context.Context, p Progress) error
	ReportScore(ctx context.Context, s Score) error
}

type job struct {
	progress *Progress
	score    *Score
}

// Reporter delivers reports in the background, at most once. Submitting
// never blocks: when the queue is full the report is dropped.
type Reporter struct {
	sender  Sender
	queue   chan job
	timeout time.Duration
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	statsMu   sync.Mutex
	sent      int
	failed    int
	dropped   int
	onDeliver func(p Progress, err error)
}

// ReporterStats counts report outcomes.
type ReporterStats struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}

// NewReporter starts a reporter with a queue of size buffer. Each delivery
// is bounded by timeout.
func NewReporter(sender Sender, buffer int, timeout time.Duration) *Reporter {
	if buffer <= 0 {
		buffer = 32
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Reporter{
		sender:  sender,
		queue:   make(chan job, buffer),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// OnDeliver registers a callback invoked after each progress delivery
// attempt. It must be set before the first Submit.
func (r *Reporter) OnDeliver(fn func(p Progress, err error)) {
	r.onDeliver = fn
}

// Submit queues a progress report. It reports false if the report was
// dropped.
func (r *Reporter) Submit(p Progress) bool {
	return r.enqueue(job{progress: &p})
}

// SubmitScore queues a score report.
func (r *Reporter) SubmitScore(s Score) bool {
	return r.enqueue(job{score: &s})
}

func (r *Reporter) enqueue(j job) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.countDrop()
		return false
	}
	select {
	case r.queue <- j:
		return true
	default:
		logger.Warnf("report queue full, dropping report")
		r.countDrop()
		return false
	}
}

func (r *Reporter) countDrop() {
	r.statsMu.Lock()
	r.dropped++
	r.statsMu.Unlock()
}

func (r *Reporter) run() {
	defer close(r.done)
	for j := range r.queue {
		r.deliver(j)
	}
}

func (r *Reporter) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var err error
	switch {
	case j.progress != nil:
		err = r.sender.ReportProgress(ctx, *j.progress)
	case j.score != nil:
		err = r.sender.ReportScore(ctx, *j.score)
	}

	r.statsMu.Lock()
	if err != nil {
		r.failed++
	} else {
		r.sent++
	}
	r.statsMu.Unlock()

	if err != nil {
		logger.Warnf("report failed: %v", err)
	}
	if j.progress != nil && r.onDeliver != nil {
		r.onDeliver(*j.progress, err)
	}
}

// Stats returns delivery counters.
func (r *Reporter) Stats() ReporterStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return ReporterStats{Sent: r.sent, Failed: r.failed, Dropped: r.dropped}
}

// Close stops accepting reports and waits for queued ones to be delivered or
// for ctx to expire.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
