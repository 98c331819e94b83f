package serial

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SoftRebootBaud is the magic line rate that makes a running Teensy sketch
// jump into its bootloader.
const SoftRebootBaud = 134

// Teensy USB serial identifiers
const (
	TeensyVID       = "16C0"
	TeensySerialPID = "0483"
)

// PortInfo describes a serial port.
type PortInfo struct {
	Name         string
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// IsTeensy reports whether the port belongs to a Teensy running USB serial.
func (p PortInfo) IsTeensy() bool {
	return strings.EqualFold(p.VID, TeensyVID) && strings.EqualFold(p.PID, TeensySerialPID)
}

// SoftReboot asks the Teensy on portName to enter HalfKay by opening the
// port at 134 baud. The device drops off the bus right after.
func SoftReboot(portName string) error {
	mode := &serial.Mode{
		BaudRate: SoftRebootBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	// Give the firmware time to see the line coding change before the
	// port goes away underneath us.
	time.Sleep(100 * time.Millisecond)
	glog.V(1).Infof("Sent soft reboot on %s", portName)

	// Closing may fail once the device has already disconnected.
	if err := port.Close(); err != nil {
		glog.V(1).Infof("Close %s after soft reboot: %v", portName, err)
	}
	return nil
}

// ListDetailedPorts returns the available ports with their USB identity.
func ListDetailedPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{Name: d.Name}
		if d.IsUSB {
			info.VID = d.VID
			info.PID = d.PID
			info.SerialNumber = d.SerialNumber
			info.Product = d.Product
		}
		ports = append(ports, info)
	}
	return ports, nil
}

// ListTeensyPorts returns the ports that belong to a Teensy.
func ListTeensyPorts() ([]PortInfo, error) {
	ports, err := ListDetailedPorts()
	if err != nil {
		return nil, err
	}
	return filterTeensy(ports), nil
}

func filterTeensy(ports []PortInfo) []PortInfo {
	var teensy []PortInfo
	for _, p := range ports {
		if p.IsTeensy() {
			teensy = append(teensy, p)
		}
	}
	return teensy
}

// ListOtherPorts returns the ports that do not belong to a Teensy.
func ListOtherPorts() ([]PortInfo, error) {
	ports, err := ListDetailedPorts()
	if err != nil {
		return nil, err
	}
	return filterOther(ports), nil
}

func filterOther(ports []PortInfo) []PortInfo {
	var other []PortInfo
	for _, p := range ports {
		if !p.IsTeensy() {
			other = append(other, p)
		}
	}
	return other
}

// Describe returns a one-line summary of the port for listings.
func (p PortInfo) Describe() string {
	if p.VID == "" {
		return p.Name
	}
	desc := fmt.Sprintf("%s (%s:%s", p.Name, strings.ToLower(p.VID), strings.ToLower(p.PID))
	if p.Product != "" {
		desc += " " + p.Product
	}
	return desc + ")"
}

// FindTeensyPort returns the single Teensy serial port on the system.
func FindTeensyPort() (string, error) {
	ports, err := ListTeensyPorts()
	if err != nil {
		return "", err
	}
	return pickTeensy(ports)
}

func pickTeensy(ports []PortInfo) (string, error) {
	switch len(ports) {
	case 0:
		return "", fmt.Errorf("no Teensy serial port found")
	case 1:
		return ports[0].Name, nil
	default:
		names := make([]string, len(ports))
		for i, p := range ports {
			names[i] = p.Name
		}
		return "", fmt.Errorf("more than one Teensy serial port found: %s", strings.Join(names, ", "))
	}
}
