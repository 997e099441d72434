package reachability

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
)

// Options configures the reachability monitor.
type Options struct {
	// Endpoint is probed with a GET; a 204 response means online.
	Endpoint string
	// Interval between background probes.
	Interval time.Duration
	// Timeout for a single probe request.
	Timeout time.Duration
}

// DefaultOptions returns production-ready monitor options.
func DefaultOptions() Options {
	return Options{
		Endpoint: "https://connectivitycheck.gstatic.com/generate_204",
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Monitor probes a well-known endpoint to decide whether the network is
// reachable. State changes are published on Updates; probes triggered by
// callers are rate limited so a burst of UI activity cannot hammer the
// probe endpoint.
type Monitor struct {
	client   *resty.Client
	endpoint string
	interval time.Duration
	limiter  *rate.Limiter
	logger   *logging.Logger

	mu     sync.Mutex
	known  bool
	online bool

	updates chan bool
}

// NewMonitor creates a monitor. It reports nothing until the first probe
// completes.
func NewMonitor(opts Options, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	return &Monitor{
		client:   resty.New().SetTimeout(opts.Timeout),
		endpoint: opts.Endpoint,
		interval: opts.Interval,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 3),
		logger:   logger,
		updates:  make(chan bool, 4),
	}
}

// Run probes on the configured interval until ctx is canceled. The first
// probe fires immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// CheckNow forces a probe outside the regular interval, e.g. after a
// connection attempt failed. Returns the resulting online state. The
// rate limiter may skip the probe, in which case the last known state
// is returned.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	if m.limiter.Allow() {
		m.probe(ctx)
	}
	return m.IsOnline()
}

// IsOnline reports the last observed state. Before the first probe it
// optimistically reports true.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known {
		return true
	}
	return m.online
}

// Updates delivers the new state on every online/offline transition.
// The channel is buffered; if nobody drains it, updates are dropped
// rather than blocking the probe loop.
func (m *Monitor) Updates() <-chan bool {
	return m.updates
}

func (m *Monitor) probe(ctx context.Context) {
	resp, err := m.client.R().SetContext(ctx).Get(m.endpoint)
	online := err == nil && resp.StatusCode() < 400

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("network reachability changed", zap.Bool("online", online))
	select {
	case m.updates <- online:
	default:
	}
}
