package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iotracing/hue-wrapper/internal/api"
	"github.com/iotracing/hue-wrapper/internal/light"
	"github.com/iotracing/hue-wrapper/internal/logging"
	"github.com/iotracing/hue-wrapper/internal/models"
)

// Connector locates the bridge, from a manual address or by discovery
type Connector func(ctx context.Context) (api.BridgeClient, error)

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithLightOptions sets the options every new light controller is built with
func WithLightOptions(opts ...light.Option) Option {
	return func(r *Registry) {
		r.lightOpts = append(r.lightOpts, opts...)
	}
}

// Registry holds the controllers of every light behind the bridge and
// dispatches commands to them. Its contents are only ever replaced as a
// whole by Discover.
type Registry struct {
	connect   Connector
	log       *logrus.Entry
	lightOpts []light.Option

	// serializes Discover and Shutdown
	resetMu sync.Mutex

	mu     sync.RWMutex
	bridge api.BridgeClient
	lights map[string]*light.Controller
	names  []string

	// ALL dispatches still running
	fanout sync.WaitGroup
}

// New creates an empty registry. Call Discover to populate it.
func New(connect Connector, opts ...Option) *Registry {
	r := &Registry{
		connect: connect,
		lights:  make(map[string]*light.Controller),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.Component(nil, logging.Hue)
	}
	return r
}

// Discover retires every known light, connects to the bridge and builds
// one controller per light it reports. On failure the registry is left
// empty.
func (r *Registry) Discover(ctx context.Context) error {
	r.resetMu.Lock()
	defer r.resetMu.Unlock()

	r.retire(r.install(nil, nil, nil))

	r.log.Debug("Looking for Hue Bridges...")
	bridge, err := r.connect(ctx)
	if err != nil {
		return errors.Wrap(err, "locating bridge")
	}

	r.log.Debug("Looking for registered lights...")
	found, err := bridge.Lights(ctx)
	if err != nil {
		return errors.Wrap(err, "Error getting registered lights")
	}

	lights := make(map[string]*light.Controller, len(found))
	names := make([]string, 0, len(found))
	for _, l := range found {
		if _, dup := lights[l.Name]; dup {
			r.log.Warnf("Ignoring light %s: name '%s' already registered", l.ID, l.Name)
			continue
		}
		c := light.New(bridge, l, r.lightOpts...)
		lights[l.Name] = c
		names = append(names, l.Name)

		snap := c.Snapshot()
		r.log.Debugf("id: %s, name: %s, online: %t, status: %s", snap.ID, snap.Name, snap.Reachable, snap.Status)
	}

	r.install(bridge, lights, names)
	r.log.Infof("Registered %d lights from bridge %s", len(names), bridge.Host())
	return nil
}

// install swaps in a new registry content and returns the previous controllers
func (r *Registry) install(bridge api.BridgeClient, lights map[string]*light.Controller, names []string) []*light.Controller {
	if lights == nil {
		lights = make(map[string]*light.Controller)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := make([]*light.Controller, 0, len(r.names))
	for _, name := range r.names {
		old = append(old, r.lights[name])
	}
	r.bridge = bridge
	r.lights = lights
	r.names = names
	return old
}

func (r *Registry) retire(controllers []*light.Controller) {
	var wg sync.WaitGroup
	for _, c := range controllers {
		wg.Add(1)
		go func(c *light.Controller) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()
}

// Resolve returns the controller of the named light
func (r *Registry) Resolve(name string) (*light.Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.lights[name]
	if !ok {
		return nil, errors.Wrapf(ErrLightNotFound, "light '%s'", name)
	}
	return c, nil
}

// Controllers returns every controller in discovery order
func (r *Registry) Controllers() []*light.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	controllers := make([]*light.Controller, 0, len(r.names))
	for _, name := range r.names {
		controllers = append(controllers, r.lights[name])
	}
	return controllers
}

// Dispatch runs a command. A single light returns its own result. All
// starts the operation on every light and returns at once; failures are
// only logged.
//
// Device calls are never cancelled, so ctx only carries values.
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (light.Result, error) {
	if err := cmd.Validate(); err != nil {
		return light.Result{}, err
	}
	ctx = context.WithoutCancel(ctx)

	if cmd.Target == All {
		r.dispatchAll(ctx, cmd)
		return light.Result{}, nil
	}

	c, err := r.Resolve(cmd.Target)
	if err != nil {
		return light.Result{}, err
	}
	return apply(ctx, c, cmd)
}

func (r *Registry) dispatchAll(ctx context.Context, cmd Command) {
	for _, c := range r.Controllers() {
		r.fanout.Add(1)
		go func(c *light.Controller) {
			defer r.fanout.Done()

			res, err := apply(ctx, c, cmd)
			if err != nil {
				r.log.WithError(err).Errorf("%s on %s failed", cmd.Op, c.Name())
				return
			}
			if !res.Changed() {
				r.log.Debug(res.Message)
			}
		}(c)
	}
}

func apply(ctx context.Context, c *light.Controller, cmd Command) (light.Result, error) {
	switch cmd.Op {
	case OpOn:
		return c.TurnOn(ctx, cmd.Color.Hue)
	case OpOff:
		return c.TurnOff(ctx)
	case OpBlink:
		return c.Blink(ctx, cmd.Color.Hue)
	default:
		return light.Result{}, errors.Wrapf(ErrInvalidOperation, "Operation '%s' is not valid", cmd.Op)
	}
}

// Status returns the snapshot of one light
func (r *Registry) Status(name string) (models.LightSnapshot, error) {
	c, err := r.Resolve(name)
	if err != nil {
		return models.LightSnapshot{}, err
	}
	return c.Snapshot(), nil
}

// Platform returns the bridge connection and the snapshot of every light
func (r *Registry) Platform() models.Platform {
	r.mu.RLock()
	bridge := r.bridge
	r.mu.RUnlock()

	p := models.Platform{Lights: []models.LightSnapshot{}}
	if bridge != nil {
		p.Bridge = models.BridgeInfo{IP: bridge.Host(), User: bridge.Username()}
	}
	for _, c := range r.Controllers() {
		p.Lights = append(p.Lights, c.Snapshot())
	}
	return p
}

// Ping returns the raw bridge state
func (r *Registry) Ping(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	bridge := r.bridge
	r.mu.RUnlock()

	if bridge == nil {
		return nil, ErrBridgeUnavailable
	}
	return bridge.FullState(ctx)
}

// Shutdown retires every light and waits for pending ALL dispatches
func (r *Registry) Shutdown() {
	r.resetMu.Lock()
	defer r.resetMu.Unlock()

	r.retire(r.install(nil, nil, nil))
	r.fanout.Wait()
}
