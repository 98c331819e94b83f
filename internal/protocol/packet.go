package protocol

import (
	"encoding/binary"
	"fmt"
)

// Memory is a dense view of a firmware image. ByteAt must return BlankByte
// for addresses that hold no data.
type Memory interface {
	Len() int
	ByteAt(addr int) byte
}

// Geometry describes the flash layout of the target.
type Geometry struct {
	CodeSize  int
	BlockSize int
}

// DefaultGeometry returns the ATmega32U4 layout.
func DefaultGeometry() Geometry {
	return Geometry{
		CodeSize:  DefaultCodeSize,
		BlockSize: DefaultBlockSize,
	}
}

// Validate checks that the geometry can be expressed on the wire.
func (g Geometry) Validate() error {
	if g.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", g.BlockSize)
	}
	if g.CodeSize <= 0 {
		return fmt.Errorf("invalid code size: %d", g.CodeSize)
	}
	if g.CodeSize > MaxCodeSize {
		return fmt.Errorf("code size 0x%X exceeds 2-byte address range (max 0x%X)", g.CodeSize, MaxCodeSize)
	}
	return nil
}

// PacketSize returns the length of an in-range block packet.
func (g Geometry) PacketSize() int {
	return g.BlockSize + HeaderSize
}

// EncodeBlock builds the wire packet for the block at addr.
//
// Packet format:
// 0: address low byte
// 1: address high byte
// 2+: block data, 0xFF past the end of the image
//
// A block that does not fit in the code area is returned as BlockSize bytes
// of 0xFF without an address header.
func (g Geometry) EncodeBlock(mem Memory, addr int) []byte {
	if addr < 0 || addr+g.BlockSize > g.CodeSize {
		return fill(make([]byte, g.BlockSize), BlankByte)
	}

	packet := fill(make([]byte, g.PacketSize()), BlankByte)
	binary.LittleEndian.PutUint16(packet[0:HeaderSize], uint16(addr))

	for i := addr; i < addr+g.BlockSize && i < g.CodeSize; i++ {
		packet[i-addr+HeaderSize] = mem.ByteAt(i)
	}

	return packet
}

// EncodeReboot builds the packet that makes HalfKay jump to the application.
// The 0xFF marker spans three bytes, one past the address header.
func (g Geometry) EncodeReboot() []byte {
	packet := make([]byte, g.PacketSize())
	packet[0] = 0xFF
	packet[1] = 0xFF
	packet[2] = 0xFF
	return packet
}

// DecodeAddress extracts the block address from an encoded packet.
func DecodeAddress(packet []byte) (int, error) {
	if len(packet) < HeaderSize {
		return 0, fmt.Errorf("packet too short: %d bytes", len(packet))
	}
	return int(binary.LittleEndian.Uint16(packet[0:HeaderSize])), nil
}

// IsReboot reports whether packet is a reboot packet.
func IsReboot(packet []byte) bool {
	return len(packet) > HeaderSize && packet[0] == 0xFF && packet[1] == 0xFF && packet[2] == 0xFF
}

func fill(b []byte, v byte) []byte {
	for i := range b {
		b[i] = v
	}
	return b
}
