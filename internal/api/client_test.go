package api

import (
	"context"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHuegoState(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  huego.State
	}{
		{
			name:  "on green",
			state: OnState(25500),
			want:  huego.State{On: true, Bri: 100, Sat: 255, Hue: 25500},
		},
		{
			name:  "on red keeps a non-zero hue",
			state: OnState(0),
			want:  huego.State{On: true, Bri: 100, Sat: 255, Hue: 65535},
		},
		{
			name:  "off",
			state: OffState(),
			want:  huego.State{On: false},
		},
		{
			name:  "alert",
			state: AlertState(),
			want:  huego.State{On: true, Alert: "select"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toHuegoState(tt.state))
		})
	}
}

func TestToDeviceLight(t *testing.T) {
	l := toDeviceLight(huego.Light{
		ID:    7,
		Name:  "FINISH",
		State: &huego.State{On: true, Reachable: true},
	})
	assert.Equal(t, "7", l.ID)
	assert.Equal(t, "FINISH", l.Name)
	assert.True(t, l.On)
	assert.True(t, l.Reachable)

	// Lights without a reported state are treated as off and unreachable
	l = toDeviceLight(huego.Light{ID: 8, Name: "PIT"})
	assert.False(t, l.On)
	assert.False(t, l.Reachable)
}

func TestSetLightStateInvalidID(t *testing.T) {
	b := NewHueBridge("127.0.0.1", "user", time.Second)
	err := b.SetLightState(context.Background(), "abc", OffState())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLightID))
}

func TestNewHueBridgeDefaults(t *testing.T) {
	b := NewHueBridge("192.168.1.100", "user-key", 0)
	assert.Equal(t, "192.168.1.100", b.Host())
	assert.Equal(t, "user-key", b.Username())
	assert.Equal(t, DefaultTimeout, b.timeout)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "on bri=100 sat=255 hue=46920", OnState(46920).String())
	assert.Equal(t, "off", OffState().String())
	assert.Equal(t, "alert=select", AlertState().String())
}
