package api

import (
	"context"
	"fmt"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// AlertSelect makes the light perform one breathe cycle
const AlertSelect = "select"

// State is a device command pushed to a single light
type State struct {
	On    bool
	Bri   uint8
	Sat   uint8
	Hue   uint16
	Alert string
}

// OnState turns a light on at full saturation with the given hue
func OnState(hue uint16) State {
	return State{On: true, Bri: models.Brightness, Sat: models.Saturation, Hue: hue}
}

// OffState turns a light off
func OffState() State {
	return State{On: false}
}

// AlertState flashes a light once. The on flag is always sent with a
// state, so an alert also asserts on.
func AlertState() State {
	return State{On: true, Alert: AlertSelect}
}

// String renders the state for logs
func (s State) String() string {
	switch {
	case s.Alert != "":
		return fmt.Sprintf("alert=%s", s.Alert)
	case s.On:
		return fmt.Sprintf("on bri=%d sat=%d hue=%d", s.Bri, s.Sat, s.Hue)
	default:
		return "off"
	}
}

// BridgeClient defines the interface for interacting with a Hue bridge.
// This abstraction allows for both real bridge connections and demo mode.
type BridgeClient interface {
	// Lights enumerates every light known to the bridge
	Lights(ctx context.Context) ([]models.DeviceLight, error)

	// SetLightState pushes a state to one light
	SetLightState(ctx context.Context, lightID string, state State) error

	// FullState returns the raw bridge configuration and state
	FullState(ctx context.Context) (map[string]interface{}, error)

	// Metadata
	Host() string
	Username() string
}

// Compile-time check that both bridges implement BridgeClient
var (
	_ BridgeClient = (*HueBridge)(nil)
	_ BridgeClient = (*DemoBridge)(nil)
)
