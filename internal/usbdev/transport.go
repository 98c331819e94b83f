package usbdev

// Transport finds HalfKay devices on the bus.
type Transport interface {
	// Find opens the first device matching vid:pid. It returns
	// ErrDeviceNotFound when none is attached.
	Find(vid, pid uint16) (Device, error)
}

// Device is an opened, not yet claimed, USB device.
type Device interface {
	DetachKernelDriver() error
	Claim() error
	Release() error
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	Close() error
}
