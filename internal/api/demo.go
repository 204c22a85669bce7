package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// Call records one SetLightState call received by a DemoBridge
type Call struct {
	LightID string
	State   State
}

// DemoBridge implements BridgeClient for demo mode without a real Hue bridge.
// All state changes are maintained in memory.
type DemoBridge struct {
	lights   []*models.DeviceLight
	byID     map[string]*models.DeviceLight
	calls    []Call
	failures map[string]error
	latency  time.Duration
	mu       sync.RWMutex
}

// NewDemoBridge creates a demo bridge with sample data
func NewDemoBridge() *DemoBridge {
	return NewDemoBridgeWithLights(
		models.DeviceLight{ID: "1", Name: "START", Reachable: true},
		models.DeviceLight{ID: "2", Name: "FINISH", Reachable: true, On: true},
		models.DeviceLight{ID: "3", Name: "PITLANE", Reachable: false},
	)
}

// NewDemoBridgeWithLights creates a demo bridge serving the given lights
func NewDemoBridgeWithLights(lights ...models.DeviceLight) *DemoBridge {
	d := &DemoBridge{
		byID:     make(map[string]*models.DeviceLight),
		failures: make(map[string]error),
	}
	for _, l := range lights {
		light := l
		d.lights = append(d.lights, &light)
		d.byID[light.ID] = &light
	}
	return d
}

// Host returns the demo bridge host
func (d *DemoBridge) Host() string {
	return "demo-bridge.local"
}

// Username returns the demo bridge user
func (d *DemoBridge) Username() string {
	return "demo-user"
}

// Lights returns copies of the demo lights
func (d *DemoBridge) Lights(ctx context.Context) ([]models.DeviceLight, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.failures[""]; err != nil {
		return nil, err
	}

	lights := make([]models.DeviceLight, len(d.lights))
	for i, l := range d.lights {
		lights[i] = *l
	}
	return lights, nil
}

// SetLightState records the call and applies the on flag to the demo light
func (d *DemoBridge) SetLightState(ctx context.Context, lightID string, state State) error {
	d.mu.RLock()
	latency := d.latency
	d.mu.RUnlock()

	// Simulate network delay
	if latency > 0 {
		time.Sleep(latency)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, Call{LightID: lightID, State: state})

	if err := d.failures[lightID]; err != nil {
		return err
	}
	light, ok := d.byID[lightID]
	if !ok {
		return fmt.Errorf("resource, /lights/%s, not available", lightID)
	}
	light.On = state.On
	return nil
}

// FullState returns a small datastore shaped like the bridge's
func (d *DemoBridge) FullState(ctx context.Context) (map[string]interface{}, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lights := make(map[string]interface{}, len(d.lights))
	for _, l := range d.lights {
		lights[l.ID] = map[string]interface{}{
			"name": l.Name,
			"state": map[string]interface{}{
				"on":        l.On,
				"reachable": l.Reachable,
			},
		}
	}
	return map[string]interface{}{
		"lights": lights,
		"config": map[string]interface{}{
			"name":      "Demo bridge",
			"ipaddress": d.Host(),
		},
	}, nil
}

// Fail makes every call to the light fail with err; nil clears the failure.
// An empty lightID makes Lights fail.
func (d *DemoBridge) Fail(lightID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		delete(d.failures, lightID)
		return
	}
	d.failures[lightID] = err
}

// SetLatency delays every SetLightState call
func (d *DemoBridge) SetLatency(latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
}

// Calls returns every SetLightState call received so far
func (d *DemoBridge) Calls() []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Call(nil), d.calls...)
}

// CallsFor returns the SetLightState calls received for one light
func (d *DemoBridge) CallsFor(lightID string) []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var calls []Call
	for _, c := range d.calls {
		if c.LightID == lightID {
			calls = append(calls, c)
		}
	}
	return calls
}

// AlertCount returns how many alerts the light received
func (d *DemoBridge) AlertCount(lightID string) int {
	count := 0
	for _, c := range d.CallsFor(lightID) {
		if c.State.Alert != "" {
			count++
		}
	}
	return count
}
