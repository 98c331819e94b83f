package usbdev

import (
	"runtime"
	"time"
)

// Default timings
const (
	DefaultRetryDelay  = 250 * time.Millisecond
	DefaultSettleDelay = 1000 * time.Millisecond
)

// Capabilities selects which claim steps run on this platform.
type Capabilities struct {
	// DetachKernelDriver detaches a bound kernel driver before claiming.
	DetachKernelDriver bool
	// ExplicitClaim claims interface 0. Platforms where the HID stack keeps
	// the interface still accept control transfers without it.
	ExplicitClaim bool
}

// DefaultCapabilities resolves the claim steps for the running OS.
func DefaultCapabilities() Capabilities {
	return capabilitiesFor(runtime.GOOS)
}

func capabilitiesFor(goos string) Capabilities {
	return Capabilities{
		DetachKernelDriver: goos == "linux",
		ExplicitClaim:      goos != "darwin",
	}
}

// RetryPolicy bounds the discovery loop in Open. The zero value retries
// forever every DefaultRetryDelay.
type RetryPolicy struct {
	// MaxAttempts stops after this many failed attempts (0 = unlimited).
	MaxAttempts int
	// MaxDuration stops once this much time has passed (0 = unlimited).
	MaxDuration time.Duration
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// ConstantBackoff waits d between attempts.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return DefaultRetryDelay
	}
	return p.Backoff(attempt)
}

func (p RetryPolicy) exhausted(attempt int, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return true
	}
	return p.MaxDuration > 0 && elapsed >= p.MaxDuration
}

type config struct {
	caps   Capabilities
	retry  RetryPolicy
	settle time.Duration
	sleep  func(time.Duration)
	now    func() time.Time
}

func defaultConfig() config {
	return config{
		caps:   DefaultCapabilities(),
		settle: DefaultSettleDelay,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Option configures an Opener.
type Option func(*config)

// WithCapabilities overrides the platform claim steps.
func WithCapabilities(caps Capabilities) Option {
	return func(c *config) {
		c.caps = caps
	}
}

// WithRetryPolicy bounds or reshapes the discovery loop.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *config) {
		c.retry = p
	}
}

// WithSettleDelay changes the wait between release and close. The device
// needs the full default delay to re-enumerate after a reboot; only tests
// should shorten it.
func WithSettleDelay(d time.Duration) Option {
	return func(c *config) {
		c.settle = d
	}
}

// WithClock replaces time.Sleep and time.Now.
func WithClock(sleep func(time.Duration), now func() time.Time) Option {
	return func(c *config) {
		if sleep != nil {
			c.sleep = sleep
		}
		if now != nil {
			c.now = now
		}
	}
}
