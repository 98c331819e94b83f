package usbdev

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/bigbag/halfkay-flasher/internal/protocol"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateClaimed
	StateWriting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateClaimed:
		return "claimed"
	case StateWriting:
		return "writing"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Opener acquires HalfKay devices through a Transport.
type Opener struct {
	transport Transport
	cfg       config
}

// NewOpener creates an Opener for the given transport.
func NewOpener(t Transport, opts ...Option) *Opener {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Opener{transport: t, cfg: cfg}
}

// Session is an exclusively owned, claimed device.
type Session struct {
	dev     Device
	cfg     config
	claimed bool
	state   State
}

// Open waits for vid:pid to appear and claims it. Failures to find or claim
// the device are retried according to the retry policy; with the default
// policy Open only returns once the device is claimed.
func (o *Opener) Open(vid, pid uint16) (*Session, error) {
	start := o.cfg.now()

	for attempt := 1; ; attempt++ {
		s, err := o.tryOpen(vid, pid)
		if err == nil {
			glog.Infof("Opened %04x:%04x after %d attempt(s)", vid, pid, attempt)
			return s, nil
		}

		glog.V(1).Infof("Open %04x:%04x attempt %d: %v", vid, pid, attempt, err)

		if o.cfg.retry.exhausted(attempt, o.cfg.now().Sub(start)) {
			return nil, &exhaustedError{attempts: attempt, last: err}
		}
		o.cfg.sleep(o.cfg.retry.delay(attempt))
	}
}

func (o *Opener) tryOpen(vid, pid uint16) (*Session, error) {
	dev, err := o.transport.Find(vid, pid)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}

	s := &Session{dev: dev, cfg: o.cfg, state: StateOpening}

	if o.cfg.caps.DetachKernelDriver {
		if err := dev.DetachKernelDriver(); err != nil {
			dev.Close()
			return nil, &ClaimError{Op: "detach kernel driver", Err: err}
		}
	}
	if o.cfg.caps.ExplicitClaim {
		if err := dev.Claim(); err != nil {
			dev.Close()
			return nil, &ClaimError{Op: "claim interface", Err: err}
		}
		s.claimed = true
	}

	s.state = StateClaimed
	return s, nil
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Write sends one packet as a HID SET_REPORT control transfer. Errors are
// not retried.
func (s *Session) Write(packet []byte) error {
	if s.state != StateClaimed && s.state != StateWriting {
		return &TransferError{Addr: -1, Err: fmt.Errorf("session is %s", s.state)}
	}
	s.state = StateWriting

	addr := -1
	if !protocol.IsReboot(packet) && len(packet) > protocol.HeaderSize {
		addr, _ = protocol.DecodeAddress(packet)
	}

	n, err := s.dev.Control(protocol.RequestType, protocol.Request,
		protocol.RequestValue, protocol.RequestIndex, packet)
	if err != nil {
		return &TransferError{Addr: addr, Err: err}
	}
	if n != len(packet) {
		return &TransferError{Addr: addr, Err: fmt.Errorf("short write: %d of %d bytes", n, len(packet))}
	}

	return nil
}

// Close releases the interface, waits for the device to settle and closes
// it. Closing a closed session is a no-op.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosing

	var errs []error
	if s.claimed {
		if err := s.dev.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release interface: %w", err))
		}
		s.claimed = false
	}

	s.cfg.sleep(s.cfg.settle)

	if err := s.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	s.state = StateClosed
	glog.V(1).Info("Session closed")

	return errors.Join(errs...)
}
