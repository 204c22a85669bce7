package api

import (
	"context"
	"strconv"
	"time"

	"github.com/amimof/huego"
	"github.com/pkg/errors"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// DefaultTimeout bounds every bridge call when no timeout is configured
const DefaultTimeout = 10 * time.Second

// ErrInvalidLightID is returned for light IDs the v1 API cannot address
var ErrInvalidLightID = errors.New("invalid light id")

// HueBridge represents a connection to a Philips Hue bridge
type HueBridge struct {
	bridge  *huego.Bridge
	timeout time.Duration
}

// NewHueBridge creates a new bridge client. Every call is bounded by timeout.
func NewHueBridge(host, username string, timeout time.Duration) *HueBridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HueBridge{
		bridge:  huego.New(host, username),
		timeout: timeout,
	}
}

// Host returns the bridge host
func (b *HueBridge) Host() string {
	return b.bridge.Host
}

// Username returns the whitelisted user the bridge is accessed with
func (b *HueBridge) Username() string {
	return b.bridge.User
}

// Lights retrieves all lights from the bridge
func (b *HueBridge) Lights(ctx context.Context) ([]models.DeviceLight, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lights, err := b.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lights")
	}

	result := make([]models.DeviceLight, len(lights))
	for i, l := range lights {
		result[i] = toDeviceLight(l)
	}
	return result, nil
}

func toDeviceLight(l huego.Light) models.DeviceLight {
	light := models.DeviceLight{
		ID:   strconv.Itoa(l.ID),
		Name: l.Name,
	}
	if l.State != nil {
		light.On = l.State.On
		light.Reachable = l.State.Reachable
	}
	return light
}

// SetLightState pushes a state to a single light
func (b *HueBridge) SetLightState(ctx context.Context, lightID string, state State) error {
	id, err := strconv.Atoi(lightID)
	if err != nil {
		return errors.Wrapf(ErrInvalidLightID, "light %q", lightID)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if _, err := b.bridge.SetLightStateContext(ctx, id, toHuegoState(state)); err != nil {
		return errors.Wrapf(err, "failed to set light %s to %s", lightID, state)
	}
	return nil
}

// toHuegoState converts a command to the v1 wire state. Zero values are
// omitted on the wire, so hue 0 is sent as 65535, the same point on the
// colour wheel.
func toHuegoState(s State) huego.State {
	hs := huego.State{
		On:    s.On,
		Bri:   s.Bri,
		Sat:   s.Sat,
		Hue:   s.Hue,
		Alert: s.Alert,
	}
	if s.On && s.Alert == "" && s.Sat > 0 && s.Hue == 0 {
		hs.Hue = 65535
	}
	return hs
}

// FullState returns the raw bridge datastore
func (b *HueBridge) FullState(ctx context.Context) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	state, err := b.bridge.GetFullStateContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bridge state")
	}
	return state, nil
}

// Connect returns a client for the bridge at host, or for the single bridge
// found on the network when host is empty.
func Connect(ctx context.Context, host, username string, timeout time.Duration) (*HueBridge, error) {
	if host == "" {
		found, err := DiscoverOne(ctx, timeout)
		if err != nil {
			return nil, err
		}
		host = found.Host
	}
	return NewHueBridge(host, username, timeout), nil
}
