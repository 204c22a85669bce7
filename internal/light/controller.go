package light

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iotracing/hue-wrapper/internal/api"
	"github.com/iotracing/hue-wrapper/internal/logging"
	"github.com/iotracing/hue-wrapper/internal/models"
)

// ErrRetired is returned by operations on a controller that was replaced
// by a registry reset or shut down.
var ErrRetired = errors.New("light controller retired")

// Result is the outcome of an operation that did not fail. An empty
// message means the light changed; otherwise nothing needed doing and
// Message says why.
type Result struct {
	Message string
}

// Changed returns true if the operation changed the light
func (r Result) Changed() bool {
	return r.Message == ""
}

func noop(format string, args ...interface{}) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// ChangeFunc is called after every status or color change. err is set
// when the change was forced by a failing blink.
type ChangeFunc func(snap models.LightSnapshot, err error)

// Option configures a Controller
type Option func(*Controller)

// WithBlinkInterval sets the period between alert commands while blinking
func WithBlinkInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOnChange registers a change hook
func WithOnChange(fn ChangeFunc) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller tracks the logical state of one light and drives it through
// the bridge. Transitions on one light are serialized; different lights
// never share a lock.
type Controller struct {
	bridge    api.BridgeClient
	id        string
	name      string
	reachable bool
	interval  time.Duration
	log       *logrus.Entry
	onChange  ChangeFunc

	// held for a whole transition, device calls included
	opMu sync.Mutex

	// guards the fields below; never held across a device call
	mu      sync.Mutex
	status  models.Status
	color   *uint16
	blinker *blinker
	retired bool
}

// New creates a controller for a light reported by the bridge. The initial
// status follows the reported on flag; the color is unknown.
func New(bridge api.BridgeClient, l models.DeviceLight, opts ...Option) *Controller {
	c := &Controller{
		bridge:    bridge,
		id:        l.ID,
		name:      l.Name,
		reachable: l.Reachable,
		interval:  DefaultBlinkInterval,
		status:    models.StatusOff,
	}
	if l.On {
		c.status = models.StatusOn
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Component(nil, logging.Hue)
	}
	c.log = c.log.WithField("light", c.name)
	return c
}

// ID returns the bridge identifier of the light
func (c *Controller) ID() string {
	return c.id
}

// Name returns the light name
func (c *Controller) Name() string {
	return c.name
}

// Reachable returns the reachability reported at discovery
func (c *Controller) Reachable() bool {
	return c.reachable
}

// Snapshot returns the current tracked state
func (c *Controller) Snapshot() models.LightSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.LightSnapshot {
	snap := models.LightSnapshot{
		ID:        c.id,
		Name:      c.name,
		Reachable: c.reachable,
		Status:    c.status,
	}
	if c.color != nil {
		snap.Color = models.ColorName(*c.color)
	}
	return snap
}

// TurnOn sets the light steady on the given hue
func (c *Controller) TurnOn(ctx context.Context, hue uint16) (Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isRetired() {
		return Result{}, ErrRetired
	}
	c.log.Debugf("ON request for %s on %d", c.name, hue)
	return c.turnOn(ctx, hue)
}

// TurnOff switches the light off, stopping any blink first
func (c *Controller) TurnOff(ctx context.Context) (Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isRetired() {
		return Result{}, ErrRetired
	}
	c.log.Debugf("OFF request for %s", c.name)
	return c.turnOff(ctx)
}

// Blink makes the light flash on the given hue until another operation
// replaces it. The request resolves once the light is on the requested
// color and the blinker is running.
func (c *Controller) Blink(ctx context.Context, hue uint16) (Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isRetired() {
		return Result{}, ErrRetired
	}
	c.log.Debugf("BLINK request for %s on %d", c.name, hue)
	return c.blink(ctx, hue)
}

// Close waits for the running transition, stops the blinker and retires
// the controller. It is safe to call more than once.
func (c *Controller) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.retired {
		c.mu.Unlock()
		return
	}
	c.retired = true
	b := c.blinker
	c.blinker = nil
	if b != nil {
		// last state the device acknowledged
		c.status = models.StatusOn
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if b != nil {
		b.stop()
		c.notify(snap, nil)
	}
}

// The lowercase transitions below run with opMu held.

func (c *Controller) turnOn(ctx context.Context, hue uint16) (Result, error) {
	if !c.reachable {
		return noop("Light '%s' not reachable", c.name), nil
	}

	status, color := c.state()
	if status == models.StatusOn && color != nil && *color == hue {
		return noop("Light '%s' ON and already on requested color, nothing to do.", c.name), nil
	}
	if status == models.StatusBlinking {
		c.log.Debug("Stopping blinking first...")
		c.stopBlinking(models.StatusOff, nil)
	}

	if err := c.bridge.SetLightState(ctx, c.id, api.OnState(hue)); err != nil {
		return Result{}, errors.Wrapf(err, "turning on light '%s'", c.name)
	}
	c.setState(models.StatusOn, &hue)
	return Result{}, nil
}

func (c *Controller) turnOff(ctx context.Context) (Result, error) {
	if !c.reachable {
		return noop("Light '%s' not reachable", c.name), nil
	}

	status, color := c.state()
	if status == models.StatusOff {
		return noop("Light '%s' already OFF, nothing to do.", c.name), nil
	}
	if status == models.StatusBlinking {
		c.log.Debug("Stopping blinking first...")
		c.stopBlinking(models.StatusOn, color)
	}

	if err := c.bridge.SetLightState(ctx, c.id, api.OffState()); err != nil {
		return Result{}, errors.Wrapf(err, "turning off light '%s'", c.name)
	}
	c.setState(models.StatusOff, nil)
	return Result{}, nil
}

func (c *Controller) blink(ctx context.Context, hue uint16) (Result, error) {
	if !c.reachable {
		return noop("Light '%s' not reachable", c.name), nil
	}

	status, color := c.state()
	if status == models.StatusBlinking {
		if color != nil && *color == hue {
			return noop("Light '%s' already blinking on the requested color, nothing to do.", c.name), nil
		}
		c.stopBlinking(models.StatusOff, nil)
	}

	// ON on another (or unknown) color goes through OFF first
	if status, color = c.state(); status == models.StatusOn && (color == nil || *color != hue) {
		if _, err := c.turnOff(ctx); err != nil {
			return Result{}, err
		}
	}
	if status, _ = c.state(); status == models.StatusOff {
		if _, err := c.turnOn(ctx, hue); err != nil {
			return Result{}, err
		}
	}
	if status, color = c.state(); status == models.StatusOn && color != nil && *color == hue {
		c.startBlinking(hue)
	}
	return Result{}, nil
}

func (c *Controller) startBlinking(hue uint16) {
	b := newBlinker()

	c.mu.Lock()
	c.blinker = b
	c.status = models.StatusBlinking
	c.color = &hue
	snap := c.snapshotLocked()
	c.mu.Unlock()

	go b.run(c.interval, c.alert, func(err error) { c.blinkFailed(b, err) })
	c.notify(snap, nil)
}

// stopBlinking leaves BLINKING for the given state, then waits for the
// blinker goroutine to exit.
func (c *Controller) stopBlinking(status models.Status, color *uint16) {
	c.mu.Lock()
	b := c.blinker
	c.blinker = nil
	c.status = status
	c.color = color
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if b != nil {
		b.stop()
	}
	c.notify(snap, nil)
}

// alert is issued from the blinker goroutine; a request's context may be
// long gone by then.
func (c *Controller) alert() error {
	return c.bridge.SetLightState(context.Background(), c.id, api.AlertState())
}

// blinkFailed runs on the blinker goroutine. It only takes mu, so a
// transition waiting in stop() cannot deadlock with it.
func (c *Controller) blinkFailed(b *blinker, err error) {
	c.mu.Lock()
	if c.blinker != b {
		// already being stopped by a transition
		c.mu.Unlock()
		return
	}
	c.blinker = nil
	c.status = models.StatusOn
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.WithError(err).Errorf("Blinking stopped for light '%s'", c.name)
	c.notify(snap, errors.Wrapf(err, "blinking light '%s'", c.name))
}

func (c *Controller) state() (models.Status, *uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.color
}

func (c *Controller) isRetired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retired
}

// setState records an acknowledged state and reports it if it changed
func (c *Controller) setState(status models.Status, color *uint16) {
	c.mu.Lock()
	same := c.status == status && sameColor(c.color, color)
	c.status = status
	c.color = color
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if !same {
		c.notify(snap, nil)
	}
}

func (c *Controller) notify(snap models.LightSnapshot, err error) {
	if c.onChange != nil {
		c.onChange(snap, err)
	}
}

func sameColor(a, b *uint16) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
