package models

import (
	"math"
)

// Fixed saturation and brightness used for every colored command
const (
	Saturation uint8 = 255
	Brightness uint8 = 100
)

// NamedColor is a color that can be requested by name
type NamedColor struct {
	Name string
	// Hue: 0-65535 (maps to 0-360 degrees)
	Hue uint16
}

// Colors lists every color accepted by the wrapper
var Colors = []NamedColor{
	{Name: "RED", Hue: 0},
	{Name: "GREEN", Hue: 25500},
	{Name: "BLUE", Hue: 46920},
	{Name: "YELLOW", Hue: 12750},
}

// LookupColor finds a color by its exact name
func LookupColor(name string) (NamedColor, bool) {
	for _, c := range Colors {
		if c.Name == name {
			return c, true
		}
	}
	return NamedColor{}, false
}

// ColorName returns the name of a known hue, or "" if it has none
func ColorName(hue uint16) string {
	for _, c := range Colors {
		if c.Hue == hue {
			return c.Name
		}
	}
	return ""
}

// RGB returns the color as RGB values (0-255 each) at full saturation and value
func (c NamedColor) RGB() (r, g, b uint8) {
	return hsvToRGB(c.Hue, 1, 1)
}

// hsvToRGB converts HSV to RGB
// Hue: 0-65535 -> 0-360, s and v: 0-1
func hsvToRGB(hue uint16, s, v float64) (r, g, b uint8) {
	h := float64(hue) / 65535.0 * 360.0

	if s == 0 {
		// Achromatic (gray)
		val := uint8(v * 255)
		return val, val, val
	}

	h = math.Mod(h, 360)
	h /= 60
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var rf, gf, bf float64
	switch int(i) {
	case 0:
		rf, gf, bf = v, t, p
	case 1:
		rf, gf, bf = q, v, p
	case 2:
		rf, gf, bf = p, v, t
	case 3:
		rf, gf, bf = p, q, v
	case 4:
		rf, gf, bf = t, p, v
	default:
		rf, gf, bf = v, p, q
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

// HexString returns the color as a hex string (e.g., "#FF0000")
func (c NamedColor) HexString() string {
	r, g, b := c.RGB()
	return "#" + hexByte(r) + hexByte(g) + hexByte(b)
}

func hexByte(b uint8) string {
	const hex = "0123456789ABCDEF"
	return string([]byte{hex[b>>4], hex[b&0x0F]})
}

// NextColor returns the color following the named one in Colors, wrapping around
func NextColor(name string) NamedColor {
	for i, c := range Colors {
		if c.Name == name {
			return Colors[(i+1)%len(Colors)]
		}
	}
	return Colors[0]
}
