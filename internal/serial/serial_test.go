package serial

import (
	"strings"
	"testing"
)

func TestPortInfo_IsTeensy(t *testing.T) {
	tests := []struct {
		name string
		port PortInfo
		want bool
	}{
		{"teensy upper", PortInfo{VID: "16C0", PID: "0483"}, true},
		{"teensy lower", PortInfo{VID: "16c0", PID: "0483"}, true},
		{"halfkay pid", PortInfo{VID: "16C0", PID: "0478"}, false},
		{"other vendor", PortInfo{VID: "2341", PID: "8036"}, false},
		{"not usb", PortInfo{Name: "/dev/ttyS0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.port.IsTeensy(); got != tt.want {
				t.Errorf("IsTeensy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterTeensy(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", VID: "16C0", PID: "0483"},
		{Name: "/dev/ttyACM1", VID: "2341", PID: "8036"},
	}

	got := filterTeensy(ports)
	if len(got) != 1 || got[0].Name != "/dev/ttyACM0" {
		t.Errorf("filterTeensy() = %v, want [/dev/ttyACM0]", got)
	}
}

func TestPickTeensy(t *testing.T) {
	if _, err := pickTeensy(nil); err == nil {
		t.Error("pickTeensy(nil) should return error")
	}

	name, err := pickTeensy([]PortInfo{{Name: "/dev/ttyACM0"}})
	if err != nil || name != "/dev/ttyACM0" {
		t.Errorf("pickTeensy(one) = %q, %v", name, err)
	}

	_, err = pickTeensy([]PortInfo{{Name: "/dev/ttyACM0"}, {Name: "/dev/ttyACM1"}})
	if err == nil || !strings.Contains(err.Error(), "/dev/ttyACM1") {
		t.Errorf("pickTeensy(two) error = %v, want both names listed", err)
	}
}

func TestFilterOther(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", VID: "16C0", PID: "0483"},
		{Name: "/dev/ttyACM1", VID: "2341", PID: "8036"},
	}

	got := filterOther(ports)
	if len(got) != 2 || got[0].Name != "/dev/ttyS0" || got[1].Name != "/dev/ttyACM1" {
		t.Errorf("filterOther() = %v, want [/dev/ttyS0 /dev/ttyACM1]", got)
	}
}

func TestPortInfo_Describe(t *testing.T) {
	tests := []struct {
		port PortInfo
		want string
	}{
		{PortInfo{Name: "/dev/ttyS0"}, "/dev/ttyS0"},
		{PortInfo{Name: "/dev/ttyACM1", VID: "2341", PID: "8036"}, "/dev/ttyACM1 (2341:8036)"},
		{PortInfo{Name: "COM3", VID: "16C0", PID: "0483", Product: "USB Serial"}, "COM3 (16c0:0483 USB Serial)"},
	}

	for _, tt := range tests {
		if got := tt.port.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}
