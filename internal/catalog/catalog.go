// Package catalog defines the part/port data model and the static table of
// known parts. The table is read-only at runtime; ids the assistant references
// that are not in the table are synthesized as virtual placeholder parts.
package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PortType classifies the physical nature of a connector.
type PortType string

const (
	PortMechanical PortType = "MECHANICAL"
	PortElectrical PortType = "ELECTRICAL"
	PortData       PortType = "DATA"
	PortFluid      PortType = "FLUID"
)

// PortGender determines which port pairs can physically mate.
type PortGender string

const (
	GenderMale    PortGender = "MALE"
	GenderFemale  PortGender = "FEMALE"
	GenderNeutral PortGender = "NEUTRAL"
)

// Port is a typed, gendered connector declared on a part. Spec is an opaque
// connector-family token; two ports mate iff their specs are equal and their
// genders are compatible.
type Port struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   PortType   `json:"type"`
	Gender PortGender `json:"gender"`
	Spec   string     `json:"spec"`
}

// Mateable reports whether two ports can physically connect: identical spec
// tokens, and MALE↔FEMALE or either side NEUTRAL.
func Mateable(a, b Port) bool {
	if a.Spec == "" || a.Spec != b.Spec {
		return false
	}
	if a.Gender == GenderNeutral || b.Gender == GenderNeutral {
		return true
	}
	return (a.Gender == GenderMale && b.Gender == GenderFemale) ||
		(a.Gender == GenderFemale && b.Gender == GenderMale)
}

// Part is a catalog entry or a synthesized virtual part.
type Part struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Ports       []Port  `json:"ports"`
	Virtual     bool    `json:"virtual,omitempty"`
}

// Lookup resolves a part id against the static table.
func Lookup(id string) (Part, bool) {
	p, ok := parts[id]
	return p, ok
}

// Search returns parts whose name, category, or SKU contains the query,
// case-insensitively. An empty query returns the whole table.
func Search(query string) []Part {
	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]Part, 0, len(order))
	for _, id := range order {
		p := parts[id]
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) {
			results = append(results, p)
		}
	}
	return results
}

// Synthesize builds a virtual placeholder part for an id absent from the
// table: title-cased name from the kebab-case id, deterministic SKU, zero
// price, no declared ports.
func Synthesize(id string) Part {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		// Upper-case the first rune, not the first byte.
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return Part{
		ID:          id,
		SKU:         "VIRT-" + strings.ToUpper(id),
		Name:        strings.Join(words, " "),
		Category:    "Inferred",
		Price:       0,
		Description: "Assistant-inferred part pending catalog data.",
		Virtual:     true,
	}
}

// order preserves a stable listing order for Search.
var order = []string{
	"kb-pcb-1", "kb-sw-1", "kb-cap-1", "kb-case-1", "kb-plate-1", "kb-cable-1",
	"drone-fc-1", "drone-motor-1", "drone-esc-1", "drone-frame-1", "drone-prop-1", "drone-batt-1",
	"pi-zero-2", "cam-module-3", "oled-128", "pump-12v", "tube-6mm",
}

var parts = map[string]Part{
	"kb-pcb-1": {
		ID: "kb-pcb-1", SKU: "PCB-68K-HS", Name: "68-Key Hotswap PCB", Category: "Keyboard",
		Brand: "KeebWorks", Price: 45.00,
		Description: "65% hotswap PCB with south-facing sockets and USB-C.",
		Ports: []Port{
			{ID: "p1", Name: "Switch sockets", Type: PortElectrical, Gender: GenderFemale, Spec: "mx-socket"},
			{ID: "p2", Name: "USB-C port", Type: PortData, Gender: GenderFemale, Spec: "usb-c"},
			{ID: "p3", Name: "Plate mount", Type: PortMechanical, Gender: GenderNeutral, Spec: "kb-65-mount"},
		},
	},
	"kb-sw-1": {
		ID: "kb-sw-1", SKU: "SW-LIN-RED", Name: "Linear Switch (Red)", Category: "Keyboard",
		Brand: "Gateron", Price: 0.25,
		Description: "Linear mechanical switch, 45g actuation, MX pin layout.",
		Ports: []Port{
			{ID: "p1", Name: "MX pins", Type: PortElectrical, Gender: GenderMale, Spec: "mx-socket"},
			{ID: "p2", Name: "Stem", Type: PortMechanical, Gender: GenderMale, Spec: "mx-stem"},
		},
	},
	"kb-cap-1": {
		ID: "kb-cap-1", SKU: "CAP-PBT-68", Name: "PBT Keycap Set", Category: "Keyboard",
		Brand: "KeebWorks", Price: 35.00,
		Description: "Dye-sub PBT keycaps, MX stem mount.",
		Ports: []Port{
			{ID: "p1", Name: "Stem mount", Type: PortMechanical, Gender: GenderFemale, Spec: "mx-stem"},
		},
	},
	"kb-case-1": {
		ID: "kb-case-1", SKU: "CASE-AL-65", Name: "Aluminum 65% Case", Category: "Keyboard",
		Brand: "KeebWorks", Price: 110.00,
		Description: "CNC aluminum case with gasket mount for 65% plates.",
		Ports: []Port{
			{ID: "p1", Name: "Plate mount", Type: PortMechanical, Gender: GenderNeutral, Spec: "kb-65-mount"},
		},
	},
	"kb-plate-1": {
		ID: "kb-plate-1", SKU: "PLT-BRASS-65", Name: "Brass Switch Plate", Category: "Keyboard",
		Brand: "KeebWorks", Price: 28.00,
		Description: "1.5mm brass plate, 65% layout.",
		Ports: []Port{
			{ID: "p1", Name: "Case mount", Type: PortMechanical, Gender: GenderNeutral, Spec: "kb-65-mount"},
		},
	},
	"kb-cable-1": {
		ID: "kb-cable-1", SKU: "CBL-USBC-15", Name: "Coiled USB-C Cable", Category: "Keyboard",
		Brand: "CableCo", Price: 18.00,
		Description: "1.5m coiled USB-C to USB-A cable.",
		Ports: []Port{
			{ID: "p1", Name: "USB-C plug", Type: PortData, Gender: GenderMale, Spec: "usb-c"},
		},
	},
	"drone-fc-1": {
		ID: "drone-fc-1", SKU: "FC-F7-30", Name: "F7 Flight Controller", Category: "Drone",
		Brand: "AeroLab", Price: 52.00,
		Description: "F7 flight controller, 30.5mm mount, 8-pin ESC header.",
		Ports: []Port{
			{ID: "p1", Name: "ESC header", Type: PortElectrical, Gender: GenderFemale, Spec: "esc-8pin"},
			{ID: "p2", Name: "Frame mount", Type: PortMechanical, Gender: GenderNeutral, Spec: "m3-30.5"},
			{ID: "p3", Name: "USB-C port", Type: PortData, Gender: GenderFemale, Spec: "usb-c"},
		},
	},
	"drone-motor-1": {
		ID: "drone-motor-1", SKU: "MTR-2306-1900", Name: "2306 Brushless Motor", Category: "Drone",
		Brand: "AeroLab", Price: 19.50,
		Description: "2306 1900KV brushless motor, 3-phase bullet leads.",
		Ports: []Port{
			{ID: "p1", Name: "Phase leads", Type: PortElectrical, Gender: GenderMale, Spec: "bullet-3.5"},
			{ID: "p2", Name: "Prop shaft", Type: PortMechanical, Gender: GenderMale, Spec: "m5-shaft"},
		},
	},
	"drone-esc-1": {
		ID: "drone-esc-1", SKU: "ESC-4IN1-45", Name: "45A 4-in-1 ESC", Category: "Drone",
		Brand: "AeroLab", Price: 64.00,
		Description: "45A BLHeli_32 4-in-1 ESC with 8-pin FC harness.",
		Ports: []Port{
			{ID: "p1", Name: "FC harness", Type: PortElectrical, Gender: GenderMale, Spec: "esc-8pin"},
			{ID: "p2", Name: "Motor pads", Type: PortElectrical, Gender: GenderFemale, Spec: "bullet-3.5"},
			{ID: "p3", Name: "Battery lead", Type: PortElectrical, Gender: GenderMale, Spec: "xt60"},
		},
	},
	"drone-frame-1": {
		ID: "drone-frame-1", SKU: "FRM-5IN-CF", Name: "5-inch Carbon Frame", Category: "Drone",
		Brand: "AeroLab", Price: 42.00,
		Description: "5-inch freestyle carbon frame, 30.5mm stack mount.",
		Ports: []Port{
			{ID: "p1", Name: "Stack mount", Type: PortMechanical, Gender: GenderNeutral, Spec: "m3-30.5"},
		},
	},
	"drone-prop-1": {
		ID: "drone-prop-1", SKU: "PRP-51466", Name: "5.1-inch Propeller Set", Category: "Drone",
		Brand: "AeroLab", Price: 3.75,
		Description: "51466 tri-blade props, M5 shaft mount, set of 4.",
		Ports: []Port{
			{ID: "p1", Name: "Shaft mount", Type: PortMechanical, Gender: GenderFemale, Spec: "m5-shaft"},
		},
	},
	"drone-batt-1": {
		ID: "drone-batt-1", SKU: "BAT-6S-1300", Name: "6S 1300mAh LiPo", Category: "Drone",
		Brand: "VoltCell", Price: 32.00,
		Description: "6S 1300mAh 100C LiPo with XT60 connector.",
		Ports: []Port{
			{ID: "p1", Name: "XT60 plug", Type: PortElectrical, Gender: GenderFemale, Spec: "xt60"},
		},
	},
	"pi-zero-2": {
		ID: "pi-zero-2", SKU: "SBC-PIZ2W", Name: "Raspberry Pi Zero 2 W", Category: "Electronics",
		Brand: "Raspberry Pi", Price: 15.00,
		Description: "Quad-core SBC with 40-pin GPIO and CSI camera port.",
		Ports: []Port{
			{ID: "p1", Name: "GPIO header", Type: PortElectrical, Gender: GenderMale, Spec: "gpio-40"},
			{ID: "p2", Name: "CSI port", Type: PortData, Gender: GenderFemale, Spec: "csi-22"},
		},
	},
	"cam-module-3": {
		ID: "cam-module-3", SKU: "CAM-M3-12MP", Name: "Camera Module 3", Category: "Electronics",
		Brand: "Raspberry Pi", Price: 25.00,
		Description: "12MP autofocus camera with CSI ribbon.",
		Ports: []Port{
			{ID: "p1", Name: "CSI ribbon", Type: PortData, Gender: GenderMale, Spec: "csi-22"},
		},
	},
	"oled-128": {
		ID: "oled-128", SKU: "DSP-OLED-128", Name: "128x64 OLED Display", Category: "Electronics",
		Brand: "Adafruit", Price: 12.50,
		Description: "I2C OLED display on a 4-pin GPIO breakout.",
		Ports: []Port{
			{ID: "p1", Name: "GPIO pins", Type: PortElectrical, Gender: GenderFemale, Spec: "gpio-40"},
		},
	},
	"pump-12v": {
		ID: "pump-12v", SKU: "PMP-12V-240", Name: "12V Diaphragm Pump", Category: "Fluid",
		Brand: "FlowTech", Price: 21.00,
		Description: "12V self-priming pump with 6mm barb fittings.",
		Ports: []Port{
			{ID: "p1", Name: "Outlet barb", Type: PortFluid, Gender: GenderMale, Spec: "barb-6mm"},
			{ID: "p2", Name: "Inlet barb", Type: PortFluid, Gender: GenderMale, Spec: "barb-6mm"},
		},
	},
	"tube-6mm": {
		ID: "tube-6mm", SKU: "TUB-SIL-6MM", Name: "6mm Silicone Tubing", Category: "Fluid",
		Brand: "FlowTech", Price: 4.50,
		Description: "1m food-grade silicone tubing, 6mm ID.",
		Ports: []Port{
			{ID: "p1", Name: "Tube end", Type: PortFluid, Gender: GenderFemale, Spec: "barb-6mm"},
			{ID: "p2", Name: "Tube end", Type: PortFluid, Gender: GenderFemale, Spec: "barb-6mm"},
		},
	},
}
