package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// MCU describes a HalfKay target part.
type MCU struct {
	Name     string
	Board    string
	Geometry Geometry
}

var mcus = map[string]MCU{
	"at90usb162": {
		Name:     "at90usb162",
		Board:    "Teensy 1.0",
		Geometry: Geometry{CodeSize: 15872, BlockSize: 128},
	},
	"atmega32u4": {
		Name:     "atmega32u4",
		Board:    "Teensy 2.0",
		Geometry: Geometry{CodeSize: DefaultCodeSize, BlockSize: DefaultBlockSize},
	},
	"at90usb646": {
		Name:     "at90usb646",
		Board:    "Teensy++ 1.0",
		Geometry: Geometry{CodeSize: 64512, BlockSize: 256},
	},
}

// DefaultMCU is the part assumed when none is given.
const DefaultMCU = "atmega32u4"

// LookupMCU returns the preset for name (case-insensitive).
func LookupMCU(name string) (MCU, error) {
	m, ok := mcus[strings.ToLower(name)]
	if !ok {
		return MCU{}, fmt.Errorf("unknown MCU %q (supported: %s)", name, strings.Join(MCUNames(), ", "))
	}
	return m, nil
}

// MCUNames returns the supported part names, sorted.
func MCUNames() []string {
	names := make([]string, 0, len(mcus))
	for name := range mcus {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MCUs returns all presets sorted by name.
func MCUs() []MCU {
	list := make([]MCU, 0, len(mcus))
	for _, name := range MCUNames() {
		list = append(list, mcus[name])
	}
	return list
}
