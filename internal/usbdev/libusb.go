package usbdev

import (
	"fmt"

	"github.com/google/gousb"
)

// LibUSB is a Transport backed by libusb through gousb.
type LibUSB struct {
	ctx *gousb.Context
}

// NewLibUSB creates a libusb context. Close it when done.
func NewLibUSB() *LibUSB {
	return &LibUSB{ctx: gousb.NewContext()}
}

// Close releases the libusb context.
func (l *LibUSB) Close() error {
	return l.ctx.Close()
}

// Find opens the first device with the given ids.
func (l *LibUSB) Find(vid, pid uint16) (Device, error) {
	dev, err := l.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to open %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	return &libusbDevice{dev: dev}, nil
}

type libusbDevice struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

// DetachKernelDriver lets libusb detach an active kernel driver from the
// interface on claim and reattach it on release.
func (d *libusbDevice) DetachKernelDriver() error {
	return d.dev.SetAutoDetach(true)
}

func (d *libusbDevice) Claim() error {
	cfg, err := d.dev.Config(1)
	if err != nil {
		return err
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return err
	}
	d.cfg = cfg
	d.intf = intf
	return nil
}

func (d *libusbDevice) Release() error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		err := d.cfg.Close()
		d.cfg = nil
		return err
	}
	return nil
}

func (d *libusbDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

func (d *libusbDevice) Close() error {
	return d.dev.Close()
}
