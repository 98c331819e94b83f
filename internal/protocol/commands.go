package protocol

// HalfKay USB identifiers
const (
	VendorID  = 0x16C0
	ProductID = 0x0478
)

// HID SET_REPORT control transfer used for every HalfKay packet
const (
	RequestType  = 0x21 // host-to-device, class, interface
	Request      = 0x09 // SET_REPORT
	RequestValue = 0x0200
	RequestIndex = 0x0000
)

// Packet layout
const (
	HeaderSize = 2
	BlankByte  = 0xFF
)

// Default geometry (ATmega32U4, Teensy 2.0)
const (
	DefaultCodeSize  = 32256
	DefaultBlockSize = 128
)

// MaxCodeSize is the largest code size a 2-byte address header can reach.
const MaxCodeSize = 0x10000
