package messages

import (
	"github.com/iotracing/hue-wrapper/internal/events"
	"github.com/iotracing/hue-wrapper/internal/models"
)

// PlatformFetchedMsg contains the bridge info and every light
type PlatformFetchedMsg struct {
	Platform models.Platform
}

// ChangesMsg carries light changes received from the change feed
type ChangesMsg struct {
	Changes []events.Change
}

// CommandDoneMsg indicates the service accepted a command. Message is set
// when the light was already in the requested state.
type CommandDoneMsg struct {
	Target  string
	Op      string
	Message string
}

// ErrorMsg indicates an error occurred
type ErrorMsg struct {
	Err error
}

// RefreshMsg requests a data refresh
type RefreshMsg struct{}
