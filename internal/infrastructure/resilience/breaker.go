package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker refuses a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures breaker behavior.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before allowing a
	// trial request.
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes.
	OnStateChange func(name string, from, to State)
}

func (s *Settings) applyDefaults() {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
}

// Breaker is a consecutive-failure circuit breaker. After
// FailureThreshold failures in a row it opens and refuses requests for
// Cooldown; the next request after the cooldown is a trial that closes
// the breaker on success or re-opens it on failure.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	nowFn    func() time.Time
}

// New creates a breaker with the given settings.
func New(name string, settings Settings) *Breaker {
	settings.applyDefaults()
	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.nowFn = now
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// Allow reports whether a request may proceed. An open breaker past its
// cooldown allows one trial request and moves to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		// One trial in flight is enough; refuse the rest.
		if b.failures < 0 {
			return ErrCircuitOpen
		}
		b.failures = -1
		return nil
	default:
		return nil
	}
}

// RecordSuccess notes a successful request and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.currentStateLocked()
	b.failures = 0
	if from != StateClosed {
		b.setStateLocked(from, StateClosed)
	}
}

// RecordFailure notes a failed request, tripping the breaker when the
// threshold is reached or the half-open trial fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.currentStateLocked()
	if from == StateHalfOpen {
		b.failures = b.settings.FailureThreshold
		b.openedAt = b.nowFn()
		b.setStateLocked(from, StateOpen)
		return
	}

	if b.failures < 0 {
		b.failures = 0
	}
	b.failures++
	if b.failures >= b.settings.FailureThreshold && from == StateClosed {
		b.openedAt = b.nowFn()
		b.setStateLocked(from, StateOpen)
	}
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.nowFn().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setStateLocked(StateOpen, StateHalfOpen)
		b.failures = 0
	}
	return b.state
}

func (b *Breaker) setStateLocked(from, to State) {
	if from == to {
		return
	}
	b.state = to
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
