package detect

import (
	"fmt"

	"github.com/google/gousb"

	"github.com/bigbag/halfkay-flasher/internal/protocol"
	"github.com/bigbag/halfkay-flasher/internal/serial"
)

// Mode tells how a detected board is currently attached.
type Mode string

const (
	ModeBootloader Mode = "bootloader"
	ModeSerial     Mode = "serial"
)

// Result represents a detected board.
type Result struct {
	Mode    Mode
	VID     uint16
	PID     uint16
	Bus     int
	Address int
	Port    string
	Serial  string
}

func (r Result) String() string {
	if r.Mode == ModeSerial {
		return fmt.Sprintf("%04x:%04x %s (serial %s)", r.VID, r.PID, r.Port, r.Serial)
	}
	return fmt.Sprintf("%04x:%04x bus %03d device %03d", r.VID, r.PID, r.Bus, r.Address)
}

// ListBootloaders scans the USB bus for boards waiting in HalfKay.
func ListBootloaders(vid, pid uint16) ([]Result, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var results []Result
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if r, ok := matchBootloader(desc, vid, pid); ok {
			results = append(results, r)
		}
		// Only the descriptor is needed.
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan USB bus: %w", err)
	}

	return results, nil
}

func matchBootloader(desc *gousb.DeviceDesc, vid, pid uint16) (Result, bool) {
	if desc.Vendor != gousb.ID(vid) || desc.Product != gousb.ID(pid) {
		return Result{}, false
	}
	return Result{
		Mode:    ModeBootloader,
		VID:     vid,
		PID:     pid,
		Bus:     desc.Bus,
		Address: desc.Address,
	}, true
}

// ListSerial returns Teensy boards running a USB serial sketch; these can be
// soft rebooted into the bootloader.
func ListSerial() ([]Result, error) {
	ports, err := serial.ListTeensyPorts()
	if err != nil {
		return nil, err
	}
	return serialResults(ports), nil
}

func serialResults(ports []serial.PortInfo) []Result {
	results := make([]Result, 0, len(ports))
	for _, p := range ports {
		results = append(results, Result{
			Mode:   ModeSerial,
			VID:    protocol.VendorID,
			PID:    0x0483,
			Port:   p.Name,
			Serial: p.SerialNumber,
		})
	}
	return results
}

// ListDevices returns every board found, bootloaders first. A failing
// serial scan does not hide bootloaders that were found.
func ListDevices(vid, pid uint16) ([]Result, error) {
	results, err := ListBootloaders(vid, pid)
	if err != nil {
		return nil, err
	}

	serialBoards, err := ListSerial()
	if err != nil {
		return results, fmt.Errorf("failed to list serial ports: %w", err)
	}

	return append(results, serialBoards...), nil
}
