package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupColor(t *testing.T) {
	tests := []struct {
		name    string
		wantHue uint16
		wantOK  bool
	}{
		{name: "RED", wantHue: 0, wantOK: true},
		{name: "GREEN", wantHue: 25500, wantOK: true},
		{name: "BLUE", wantHue: 46920, wantOK: true},
		{name: "YELLOW", wantHue: 12750, wantOK: true},
		{name: "red", wantOK: false},
		{name: "PURPLE", wantOK: false},
		{name: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := LookupColor(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantHue, c.Hue)
				assert.Equal(t, tt.name, c.Name)
			}
		})
	}
}

func TestColorName(t *testing.T) {
	assert.Equal(t, "RED", ColorName(0))
	assert.Equal(t, "BLUE", ColorName(46920))
	assert.Equal(t, "", ColorName(1234))
}

func TestNamedColorRGB(t *testing.T) {
	red, _ := LookupColor("RED")
	assert.Equal(t, "#FF0000", red.HexString())

	// Green and blue hues are not the pure primaries, only check dominance
	green, _ := LookupColor("GREEN")
	r, g, b := green.RGB()
	assert.Greater(t, g, r)
	assert.Greater(t, g, b)

	blue, _ := LookupColor("BLUE")
	r, g, b = blue.RGB()
	assert.Greater(t, b, r)
	assert.Greater(t, b, g)

	yellow, _ := LookupColor("YELLOW")
	r, g, b = yellow.RGB()
	assert.Greater(t, r, b)
	assert.Greater(t, g, b)
}

func TestHSVToRGBAchromatic(t *testing.T) {
	r, g, b := hsvToRGB(12345, 0, 1)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, r, g)
	assert.Equal(t, r, b)
}

func TestNextColor(t *testing.T) {
	assert.Equal(t, "GREEN", NextColor("RED").Name)
	assert.Equal(t, "RED", NextColor("YELLOW").Name)
	assert.Equal(t, "RED", NextColor("unknown").Name)
}

func TestPlatformFind(t *testing.T) {
	p := Platform{Lights: []LightSnapshot{
		{ID: "1", Name: "START", Status: StatusOn},
		{ID: "2", Name: "FINISH", Status: StatusBlinking},
	}}

	l, ok := p.Find("FINISH")
	assert.True(t, ok)
	assert.Equal(t, "2", l.ID)
	assert.True(t, l.IsOn())

	_, ok = p.Find("PIT")
	assert.False(t, ok)
}
