package usbdev

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound is returned by a transport when no device matches, and
// by Open when a bounded retry policy runs out.
var ErrDeviceNotFound = errors.New("device not found")

// ClaimError indicates that the device was found but could not be taken
// over for this attempt.
type ClaimError struct {
	Op  string
	Err error
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("claim failed: %s: %v", e.Op, e.Err)
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}

// TransferError indicates a failed control transfer. The target is left
// partially programmed.
type TransferError struct {
	Addr int
	Err  error
}

func (e *TransferError) Error() string {
	if e.Addr < 0 {
		return fmt.Sprintf("control transfer failed: %v", e.Err)
	}
	return fmt.Sprintf("control transfer failed at 0x%04X: %v", e.Addr, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// exhaustedError is returned by Open once the retry policy gives up.
type exhaustedError struct {
	attempts int
	last     error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts (last error: %v)", ErrDeviceNotFound, e.attempts, e.last)
}

func (e *exhaustedError) Unwrap() []error {
	return []error{ErrDeviceNotFound, e.last}
}
