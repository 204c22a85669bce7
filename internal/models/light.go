package models

// Status is the logical state tracked for a light
type Status string

const (
	StatusOff      Status = "OFF"
	StatusOn       Status = "ON"
	StatusBlinking Status = "BLINKING"
)

// DeviceLight is a light as reported by the bridge during enumeration
type DeviceLight struct {
	// Opaque identifier assigned by the bridge
	ID string
	// User-friendly name, used as the registry key
	Name string
	// Whether the bridge can currently reach the light
	Reachable bool
	// Current on/off flag reported by the bridge
	On bool
}

// LightSnapshot is a point-in-time copy of a light's tracked state
type LightSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
	Status    Status `json:"status"`
	// Color name when the light is ON or BLINKING with a known color
	Color string `json:"color,omitempty"`
}

// IsOn returns true if the light is emitting (steady or blinking)
func (l LightSnapshot) IsOn() bool {
	return l.Status == StatusOn || l.Status == StatusBlinking
}

// BridgeInfo describes the bridge connection
type BridgeInfo struct {
	IP   string `json:"ip"`
	User string `json:"user"`
}

// Platform is the snapshot of the whole registry
type Platform struct {
	Bridge BridgeInfo      `json:"bridge"`
	Lights []LightSnapshot `json:"lights"`
}

// Find returns the snapshot of the light with the given name
func (p *Platform) Find(name string) (LightSnapshot, bool) {
	for _, l := range p.Lights {
		if l.Name == name {
			return l, true
		}
	}
	return LightSnapshot{}, false
}
