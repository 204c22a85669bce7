package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Component names, attached to every entry as the "component" field
const (
	Process = "PROCESS"
	Hue     = "HUE"
	HTTP    = "HTTP"
	MQTT    = "MQTT"
)

// New creates the process logger. Verbose enables debug output.
func New(verbose bool, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Component returns an entry tagged with the given component name
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything, for tests and embedding
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
