package plugin

import (
	"context"
	"sync"
)

// Runner executes one plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// Dispatcher fans events out to subscribed plugins on a background worker.
// Notify never blocks the caller; failures are logged and dropped.
type Dispatcher struct {
	manager *Manager
	runner  Runner
	queue   chan Request
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	// configs holds per-plugin settings passed through in Request.Config.
	configs map[string][]byte
}

// NewDispatcher starts a dispatcher with a queue of size buffer.
func NewDispatcher(manager *Manager, runner Runner, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 16
	}
	d := &Dispatcher{
		manager: manager,
		runner:  runner,
		queue:   make(chan Request, buffer),
		done:    make(chan struct{}),
		configs: make(map[string][]byte),
	}
	go d.run()
	return d
}

// SetConfig sets the config blob sent to the named plugin.
func (d *Dispatcher) SetConfig(name string, config []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs[name] = append([]byte(nil), config...)
}

// Notify queues req. It reports false when the queue is full or closed.
func (d *Dispatcher) Notify(req Request) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- req:
		return true
	default:
		logger.Warnf("hook queue full, dropping %s event", req.Event)
		return false
	}
}

// NotifySelection queues a selection event.
func (d *Dispatcher) NotifySelection(s Selection) bool {
	return d.Notify(Request{Event: EventSelection, Selection: &s})
}

// NotifyGameOver queues a game-over event.
func (d *Dispatcher) NotifyGameOver(g GameOver) bool {
	return d.Notify(Request{Event: EventGameOver, GameOver: &g})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for req := range d.queue {
		d.dispatch(req)
	}
}

func (d *Dispatcher) dispatch(req Request) {
	for _, p := range d.manager.Subscribers(req.Event) {
		r := req
		d.mu.RLock()
		if cfg, ok := d.configs[p.Manifest.Name]; ok {
			r.Config = cfg
		}
		d.mu.RUnlock()

		resp, err := d.runner.Execute(context.Background(), p, &r)
		if err != nil {
			logger.Warnf("%s on %s: %v", p.Manifest.Name, req.Event, err)
			continue
		}
		if !resp.Success {
			logger.Warnf("%s on %s: %s", p.Manifest.Name, req.Event, resp.Error)
			continue
		}
		logger.Debugf("%s handled %s", p.Manifest.Name, req.Event)
	}
}

// Close stops accepting events and waits for queued ones until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
