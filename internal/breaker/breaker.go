// Package breaker implements a circuit breaker for outbound HTTP calls.
//
// The breaker sits between an API client and a longview server. After a
// run of consecutive failures it opens and rejects calls outright, then
// admits a limited number of probe calls once a cooldown has passed.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the position of the circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected without being attempted.
var ErrOpen = errors.New("circuit breaker is open")

// Config controls when the circuit opens and how it recovers.
type Config struct {
	Threshold int           // consecutive failures before the circuit opens
	Cooldown  time.Duration // how long the circuit stays open before probing
	Probes    int           // calls admitted while half-open
}

// Breaker tracks call outcomes and gates new calls. The zero value is
// not usable; construct one with New.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	probes    int

	mu       sync.Mutex
	state    State
	failures int
	inFlight int
	openedAt time.Time
}

// New returns a closed Breaker. Zero or negative Config fields fall
// back to 5 failures, a 30 second cooldown and a single probe.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	return &Breaker{
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		probes:    cfg.Probes,
	}
}

// State reports the circuit position, moving Open to HalfOpen once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advance(time.Now())
}

// Allow reports whether a call may proceed. Every admitted call must be
// followed by a Record so half-open probes settle the circuit.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.advance(time.Now()) {
	case Open:
		return ErrOpen
	case HalfOpen:
		if b.inFlight >= b.probes {
			return ErrOpen
		}
		b.inFlight++
	}
	return nil
}

// Record feeds the outcome of an admitted call back into the circuit.
func (b *Breaker) Record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Results landing after the circuit opened are stale.
	if b.state == Open {
		return
	}
	if ok {
		if b.state == HalfOpen {
			b.reset(Closed)
			return
		}
		b.failures = 0
		return
	}
	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.reset(Open)
		b.openedAt = time.Now()
	}
}

func (b *Breaker) advance(now time.Time) State {
	if b.state == Open && now.Sub(b.openedAt) >= b.cooldown {
		b.reset(HalfOpen)
	}
	return b.state
}

func (b *Breaker) reset(s State) {
	b.state = s
	b.failures = 0
	b.inFlight = 0
}
