package protocol

import (
	"bytes"
	"testing"
)

// denseMem is a Memory backed by a byte slice; gaps are 0xFF.
type denseMem []byte

func (m denseMem) Len() int { return len(m) }

func (m denseMem) ByteAt(addr int) byte {
	if addr < 0 || addr >= len(m) {
		return BlankByte
	}
	return m[addr]
}

func blankMem(n int) denseMem {
	return denseMem(bytes.Repeat([]byte{BlankByte}, n))
}

func TestDefaultGeometry(t *testing.T) {
	g := DefaultGeometry()
	if g.CodeSize != 32256 {
		t.Errorf("DefaultGeometry().CodeSize = %d, want 32256", g.CodeSize)
	}
	if g.BlockSize != 128 {
		t.Errorf("DefaultGeometry().BlockSize = %d, want 128", g.BlockSize)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("DefaultGeometry().Validate() = %v, want nil", err)
	}
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"default", DefaultGeometry(), false},
		{"max code size", Geometry{CodeSize: MaxCodeSize, BlockSize: 256}, false},
		{"zero block size", Geometry{CodeSize: 256, BlockSize: 0}, true},
		{"negative code size", Geometry{CodeSize: -1, BlockSize: 128}, true},
		{"code size beyond header", Geometry{CodeSize: MaxCodeSize + 1, BlockSize: 128}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeBlock_Header(t *testing.T) {
	g := DefaultGeometry()
	mem := blankMem(g.CodeSize)

	for addr := 0; addr < g.CodeSize; addr += g.BlockSize {
		packet := g.EncodeBlock(mem, addr)
		if len(packet) != g.BlockSize+2 {
			t.Fatalf("EncodeBlock(%d) length = %d, want %d", addr, len(packet), g.BlockSize+2)
		}
		if packet[0] != byte(addr&0xFF) {
			t.Errorf("EncodeBlock(%d)[0] = 0x%02X, want 0x%02X", addr, packet[0], addr&0xFF)
		}
		if packet[1] != byte((addr>>8)&0xFF) {
			t.Errorf("EncodeBlock(%d)[1] = 0x%02X, want 0x%02X", addr, packet[1], (addr>>8)&0xFF)
		}
	}
}

func TestEncodeBlock_RoundTrip(t *testing.T) {
	for _, g := range []Geometry{DefaultGeometry(), {CodeSize: 64512, BlockSize: 256}} {
		mem := blankMem(0)
		for addr := 0; addr < g.CodeSize; addr += g.BlockSize {
			got, err := DecodeAddress(g.EncodeBlock(mem, addr))
			if err != nil {
				t.Fatalf("DecodeAddress() error = %v", err)
			}
			if got != addr {
				t.Errorf("DecodeAddress(EncodeBlock(%d)) = %d", addr, got)
			}
		}
	}
}

func TestEncodeBlock_Data(t *testing.T) {
	g := Geometry{CodeSize: 256, BlockSize: 128}
	mem := make(denseMem, 200)
	for i := range mem {
		mem[i] = byte(i)
	}

	packet := g.EncodeBlock(mem, 128)

	if !bytes.Equal(packet[:2], []byte{0x80, 0x00}) {
		t.Errorf("EncodeBlock header = %v, want [128 0]", packet[:2])
	}
	// 128..199 come from the image, 200..255 are past its end
	for i := 0; i < 128; i++ {
		want := byte(BlankByte)
		if 128+i < 200 {
			want = byte(128 + i)
		}
		if packet[2+i] != want {
			t.Fatalf("EncodeBlock data[%d] = 0x%02X, want 0x%02X", i, packet[2+i], want)
		}
	}
}

func TestEncodeBlock_ScenarioA(t *testing.T) {
	g := Geometry{CodeSize: 256, BlockSize: 128}
	mem := denseMem{0x01}

	packet := g.EncodeBlock(mem, 0)

	expected := append([]byte{0x00, 0x00, 0x01}, bytes.Repeat([]byte{0xFF}, 127)...)
	if !bytes.Equal(packet, expected) {
		t.Errorf("EncodeBlock(0) = %v, want %v", packet, expected)
	}
}

func TestEncodeBlock_OutOfRange(t *testing.T) {
	g := Geometry{CodeSize: 256, BlockSize: 128}
	mem := make(denseMem, 512)

	tests := []struct {
		name string
		addr int
	}{
		{"negative", -128},
		{"past code size", 256},
		{"straddles code size", 192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := g.EncodeBlock(mem, tt.addr)
			if len(packet) != g.BlockSize {
				t.Fatalf("EncodeBlock(%d) length = %d, want %d (no header)", tt.addr, len(packet), g.BlockSize)
			}
			for i, b := range packet {
				if b != 0xFF {
					t.Fatalf("EncodeBlock(%d)[%d] = 0x%02X, want 0xFF", tt.addr, i, b)
				}
			}
		})
	}
}

func TestEncodeReboot(t *testing.T) {
	g := DefaultGeometry()
	packet := g.EncodeReboot()

	if len(packet) != g.BlockSize+2 {
		t.Fatalf("EncodeReboot() length = %d, want %d", len(packet), g.BlockSize+2)
	}
	if !bytes.Equal(packet[:3], []byte{0xFF, 0xFF, 0xFF}) {
		t.Errorf("EncodeReboot()[:3] = %v, want [255 255 255]", packet[:3])
	}
	for i := 3; i < len(packet); i++ {
		if packet[i] != 0x00 {
			t.Fatalf("EncodeReboot()[%d] = 0x%02X, want 0x00", i, packet[i])
		}
	}
	if !IsReboot(packet) {
		t.Error("IsReboot(EncodeReboot()) = false, want true")
	}
}

func TestIsReboot_DataPacket(t *testing.T) {
	g := DefaultGeometry()
	if IsReboot(g.EncodeBlock(blankMem(g.CodeSize), 0)) {
		t.Error("IsReboot(block 0) = true, want false")
	}
}

func TestDecodeAddress_TooShort(t *testing.T) {
	if _, err := DecodeAddress([]byte{0x01}); err == nil {
		t.Error("DecodeAddress() with 1 byte should return error")
	}
}
