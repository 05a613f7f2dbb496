// Package probe periodically checks whether AnkiConnect is reachable. The
// result only drives the connection banner; submissions never wait on it.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults match the form's banner refresh.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 2 * time.Second
)

// State is the last known reachability of AnkiConnect.
type State int

const (
	Unknown State = iota
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Banner returns the user-facing text for s.
func (s State) Banner() string {
	switch s {
	case Connected:
		return "Connected to Anki"
	case Disconnected:
		return "You are not connected to Anki"
	}
	return "Checking Anki connection..."
}

// Checker performs a single liveness request.
type Checker interface {
	Version(ctx context.Context, timeout time.Duration) (int, error)
}

// Config configures a Prober.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Prober runs liveness checks on a fixed interval.
type Prober struct {
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	onState  func(State)
}

// New creates a prober. onState is called with the result of every probe,
// from the probing goroutine. It may be nil.
func New(checker Checker, config *Config, onState func(State)) *Prober {
	p := &Prober{
		checker:  checker,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		onState:  onState,
	}
	if config != nil {
		if config.Interval > 0 {
			p.interval = config.Interval
		}
		if config.Timeout > 0 {
			p.timeout = config.Timeout
		}
		if config.Logger != nil {
			p.logger = config.Logger
		}
	}
	return p
}

// Check runs one probe and returns the resulting state.
func (p *Prober) Check(ctx context.Context) State {
	if _, err := p.checker.Version(ctx, p.timeout); err != nil {
		p.logger.Debug("probe: check failed", slog.String("error", err.Error()))
		return Disconnected
	}
	return Connected
}

// Handle controls a running prober.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state State
}

// Start probes once immediately and then every interval until ctx is done
// or the handle is stopped.
func (p *Prober) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, h)
	return h
}

func (p *Prober) run(ctx context.Context, h *Handle) {
	defer close(h.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, h)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, h)
		}
	}
}

func (p *Prober) tick(ctx context.Context, h *Handle) {
	state := p.Check(ctx)
	// A probe that was still in flight when the handle stopped is dropped.
	if ctx.Err() != nil {
		return
	}
	if prev := h.set(state); prev != state {
		p.logger.Info("probe: state changed",
			slog.String("from", prev.String()),
			slog.String("to", state.String()))
	}
	if p.onState != nil {
		p.onState(state)
	}
}

func (h *Handle) set(s State) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.state
	h.state = s
	return prev
}

// State returns the last observed state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Stop cancels the prober and waits for it to exit. No callback runs after
// Stop returns. Stop must not be called from the state callback.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the prober has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
