package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New(false, nil).GetLevel())
	assert.Equal(t, logrus.DebugLevel, New(true, nil).GetLevel())
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := New(true, &buf)

	Component(log, Hue).Debug("Looking for Hue Bridges...")

	out := buf.String()
	assert.Contains(t, out, "component=HUE")
	assert.Contains(t, out, "Looking for Hue Bridges...")
}

func TestVerboseHidesDebugWhenOff(t *testing.T) {
	var buf bytes.Buffer
	log := New(false, &buf)

	Component(log, Process).Debug("hidden")
	Component(log, Process).Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
