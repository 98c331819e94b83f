package flasher

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/bigbag/halfkay-flasher/internal/ihex"
	"github.com/bigbag/halfkay-flasher/internal/protocol"
	"github.com/bigbag/halfkay-flasher/internal/usbdev"
)

// ProgressCallback is called to report flash progress in bytes.
type ProgressCallback func(current, total int)

// Flasher uploads Intel-HEX images to HalfKay devices.
type Flasher struct {
	opener   *usbdev.Opener
	geometry protocol.Geometry
	progress ProgressCallback
	reboot   bool
}

// Option configures a Flasher.
type Option func(*Flasher)

// WithGeometry sets the target flash layout.
func WithGeometry(g protocol.Geometry) Option {
	return func(f *Flasher) {
		f.geometry = g
	}
}

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(f *Flasher) {
		f.progress = cb
	}
}

// WithReboot controls whether Upload ends with a reboot packet.
func WithReboot(reboot bool) Option {
	return func(f *Flasher) {
		f.reboot = reboot
	}
}

// New creates a Flasher that acquires devices through opener.
func New(opener *usbdev.Opener, opts ...Option) *Flasher {
	f := &Flasher{
		opener:   opener,
		geometry: protocol.DefaultGeometry(),
		reboot:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetProgressCallback sets the progress callback function.
func (f *Flasher) SetProgressCallback(cb ProgressCallback) {
	f.progress = cb
}

// reportProgress calls the progress callback if set.
func (f *Flasher) reportProgress(current, total int) {
	if f.progress != nil {
		f.progress(current, total)
	}
}

// Load parses the firmware at path for the configured geometry.
func (f *Flasher) Load(path string) (*ihex.Image, error) {
	if err := f.geometry.Validate(); err != nil {
		return nil, err
	}
	return ihex.Load(path, f.geometry.CodeSize)
}

// Open waits for the device and claims it.
func (f *Flasher) Open(vid, pid uint16) (*usbdev.Session, error) {
	return f.opener.Open(vid, pid)
}

// Upload flashes the firmware at path to the device vid:pid, reboots it and
// closes the session. The firmware is parsed before the device is touched.
func (f *Flasher) Upload(vid, pid uint16, path string) (err error) {
	img, err := f.Load(path)
	if err != nil {
		return err
	}

	s, err := f.Open(vid, pid)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close device: %w", cerr))
		}
	}()

	if err := f.WriteImage(s, img); err != nil {
		return err
	}

	if f.reboot {
		return f.Reboot(s)
	}
	return nil
}

// UploadSession flashes the firmware at path over an already open session.
// It neither reboots nor closes the session.
func (f *Flasher) UploadSession(s *usbdev.Session, path string) (*usbdev.Session, error) {
	img, err := f.Load(path)
	if err != nil {
		return s, err
	}
	return s, f.WriteImage(s, img)
}

// WriteImage sends every block of img that has to be programmed, in
// increasing address order. Block 0 always goes out; later blocks are
// skipped when blank.
func (f *Flasher) WriteImage(s *usbdev.Session, img protocol.Memory) error {
	g := f.geometry
	total := img.Len()
	limit := g.Limit(total)

	firstSent := false
	sent := 0
	for addr := 0; addr == 0 || addr < limit; addr += g.BlockSize {
		if !g.ShouldSend(img, addr, firstSent) {
			glog.V(2).Infof("Skipping blank block 0x%04X", addr)
			continue
		}

		f.reportProgress(addr, total)

		packet := g.EncodeBlock(img, addr)
		glog.V(2).Infof("Writing block 0x%04X (%d bytes)", addr, len(packet))
		if err := s.Write(packet); err != nil {
			return fmt.Errorf("write block 0x%04X failed: %w", addr, err)
		}
		firstSent = true
		sent++
	}

	f.reportProgress(total, total)
	glog.Infof("Wrote %d block(s) for %d byte image", sent, total)

	return nil
}

// Reboot makes the bootloader jump to the application. It must be the last
// packet of a session.
func (f *Flasher) Reboot(s *usbdev.Session) error {
	if err := s.Write(f.geometry.EncodeReboot()); err != nil {
		return fmt.Errorf("reboot failed: %w", err)
	}
	return nil
}

// RebootDevice opens vid:pid, sends the reboot packet and closes it.
func (f *Flasher) RebootDevice(vid, pid uint16) (err error) {
	s, err := f.Open(vid, pid)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close device: %w", cerr))
		}
	}()

	return f.Reboot(s)
}
