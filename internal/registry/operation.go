package registry

import (
	"github.com/pkg/errors"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// All targets every registered light
const All = "ALL"

// Operation is a command a light can be asked to perform
type Operation string

const (
	OpOn        Operation = "ON"
	OpOff       Operation = "OFF"
	OpBlink     Operation = "BLINK"
	OpBlinkOnce Operation = "BLINKONCE"
)

var (
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrMissingColor         = errors.New("missing color")
	ErrLightNotFound        = errors.New("light not registered")
	ErrBridgeUnavailable    = errors.New("API unavailable")
)

// ParseOperation validates an operation name. Names are case-sensitive.
func ParseOperation(name string) (Operation, error) {
	switch op := Operation(name); op {
	case OpOn, OpOff, OpBlink:
		return op, nil
	case OpBlinkOnce:
		return "", errors.Wrapf(ErrUnsupportedOperation, "Operation '%s' is not valid", name)
	default:
		return "", errors.Wrapf(ErrInvalidOperation, "Operation '%s' is not valid", name)
	}
}

// NeedsColor returns true unless the operation is OFF
func (op Operation) NeedsColor() bool {
	return op != OpOff
}

// Command asks one light, or All, to perform an operation
type Command struct {
	Target string
	Op     Operation
	// Required unless Op is OFF
	Color *models.NamedColor
}

// Validate checks the command has what its operation needs
func (c Command) Validate() error {
	if _, err := ParseOperation(string(c.Op)); err != nil {
		return err
	}
	if c.Op.NeedsColor() && c.Color == nil {
		return ErrMissingColor
	}
	return nil
}
