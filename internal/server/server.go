// Package server exposes the light registry over HTTP.
//
// The endpoints, all under /hue, are:
//
//	GET  /hue/                       - help, 204
//	GET  /hue/status                 - bridge info and every light
//	GET  /hue/status/{id}            - one light, 404 if unknown
//	PUT  /hue/{id}/{op}/{color}      - op is ON, OFF or BLINK; id may be ALL
//	GET  /hue/ping                   - raw bridge state
//	POST /hue/reset                  - rediscover the bridge and its lights
//	GET  /hue/events                 - websocket stream of light changes
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iotracing/hue-wrapper/internal/events"
	"github.com/iotracing/hue-wrapper/internal/light"
	"github.com/iotracing/hue-wrapper/internal/logging"
	"github.com/iotracing/hue-wrapper/internal/models"
	"github.com/iotracing/hue-wrapper/internal/registry"
)

// BasePath prefixes every route
const BasePath = "/hue"

// DefaultListen is the default listen address
const DefaultListen = ":3378"

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Registry is the part of registry.Registry the HTTP surface drives
type Registry interface {
	Discover(ctx context.Context) error
	Dispatch(ctx context.Context, cmd registry.Command) (light.Result, error)
	Status(name string) (models.LightSnapshot, error)
	Platform() models.Platform
	Ping(ctx context.Context) (map[string]interface{}, error)
}

var _ Registry = (*registry.Registry)(nil)

// Server serves the REST API and the change feed
type Server struct {
	registry Registry
	bus      *events.Bus
	log      *logrus.Entry
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a server. A nil bus gets an empty one.
func New(reg Registry, bus *events.Bus, log *logrus.Entry) *Server {
	if bus == nil {
		bus = events.NewBus()
	}
	if log == nil {
		log = logging.Component(nil, logging.HTTP)
	}
	return &Server{
		registry: reg,
		bus:      bus,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// Handler returns the routes wrapped in logging and panic recovery
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router()
	handler = recoveryHandler{handler: handler, log: s.log}
	handler = loggingHandler{handler: handler, log: s.log}
	return handler
}

// Close ends every open change feed
func (s *Server) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *Server) router() *mux.Router {
	// light names may contain '/', clients send it as %2F
	router := mux.NewRouter().UseEncodedPath()
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.Path(BasePath).Methods(http.MethodGet).HandlerFunc(s.help)
	router.Path(BasePath + "/").Methods(http.MethodGet).HandlerFunc(s.help)
	router.Path(BasePath + "/status").Methods(http.MethodGet).HandlerFunc(s.platformStatus)
	router.Path(BasePath + "/status/{id}").Methods(http.MethodGet).HandlerFunc(s.lightStatus)
	router.Path(BasePath + "/ping").Methods(http.MethodGet).HandlerFunc(s.ping)
	router.Path(BasePath + "/reset").Methods(http.MethodPost).HandlerFunc(s.reset)
	router.Path(BasePath + "/events").Methods(http.MethodGet).HandlerFunc(s.events)
	router.Path(BasePath + "/{id}/{op}").Methods(http.MethodPut).HandlerFunc(s.lightOp)
	router.Path(BasePath + "/{id}/{op}/{color}").Methods(http.MethodPut).HandlerFunc(s.lightOp)
	return router
}

// pathVars returns the route variables decoded
func pathVars(r *http.Request) map[string]string {
	vars := mux.Vars(r)
	decoded := make(map[string]string, len(vars))
	for k, v := range vars {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
		decoded[k] = v
	}
	return decoded
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, http.StatusMethodNotAllowed, "Method %s not allowed on %s", r.Method, r.URL.Path)
}

func jsonResponse(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		logging.Component(nil, logging.HTTP).WithError(err).Warn("Writing response")
	}
}

func errorResponse(w http.ResponseWriter, status int, format string, args ...interface{}) {
	http.Error(w, fmt.Sprintf(format, args...), status)
}

func (s *Server) help(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("HELP")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) platformStatus(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("STATUS")
	jsonResponse(w, http.StatusOK, s.registry.Platform())
}

func (s *Server) lightStatus(w http.ResponseWriter, r *http.Request) {
	id := pathVars(r)["id"]
	s.log.Debugf("STATUS: %s", id)

	snap, err := s.registry.Status(id)
	if err != nil {
		errorResponse(w, http.StatusNotFound, "Light Id '%s' is not registered in current Hue Bridge", id)
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) lightOp(w http.ResponseWriter, r *http.Request) {
	vars := pathVars(r)
	id, opName, colorName := vars["id"], vars["op"], vars["color"]
	s.log.Debugf("LIGHTOP: %v", vars)

	var color *models.NamedColor
	if colorName != "" {
		c, ok := models.LookupColor(colorName)
		if !ok {
			errorResponse(w, http.StatusBadRequest, "Color '%s' is not valid", colorName)
			return
		}
		color = &c
	}
	if id != registry.All {
		if _, err := s.registry.Status(id); err != nil {
			errorResponse(w, http.StatusBadRequest, "Light Id '%s' is not registered in current Hue Bridge", id)
			return
		}
	}
	if opName != string(registry.OpOff) && color == nil {
		errorResponse(w, http.StatusBadRequest, "Missing color")
		return
	}
	op, err := registry.ParseOperation(opName)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Operation '%s' is not valid", opName)
		return
	}

	res, err := s.registry.Dispatch(r.Context(), registry.Command{Target: id, Op: op, Color: color})
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrLightNotFound), errors.Is(err, light.ErrRetired):
		// reset between validation and dispatch
		errorResponse(w, http.StatusBadRequest, "Light Id '%s' is not registered in current Hue Bridge", id)
		return
	case errors.Is(err, registry.ErrInvalidOperation), errors.Is(err, registry.ErrUnsupportedOperation):
		errorResponse(w, http.StatusBadRequest, "Operation '%s' is not valid", opName)
		return
	case errors.Is(err, registry.ErrMissingColor):
		errorResponse(w, http.StatusBadRequest, "Missing color")
		return
	default:
		s.log.WithError(err).Debug("Light operation failed")
		errorResponse(w, http.StatusInternalServerError, "%s", err)
		return
	}

	if !res.Changed() {
		s.log.Debug(res.Message)
		jsonResponse(w, http.StatusOK, map[string]string{"message": res.Message})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("PING")

	state, err := s.registry.Ping(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Ping failed")
		if errors.Is(err, registry.ErrBridgeUnavailable) {
			errorResponse(w, http.StatusInternalServerError, "API unavailable")
			return
		}
		errorResponse(w, http.StatusInternalServerError, "%s", err)
		return
	}
	jsonResponse(w, http.StatusOK, state)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("RESET")

	// a client hanging up must not leave the registry half rebuilt
	if err := s.registry.Discover(context.WithoutCancel(r.Context())); err != nil {
		s.log.WithError(err).Error("Reset failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// events streams light changes to a websocket client, starting with the
// current state of every light.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	changes, cancel := s.bus.Subscribe(32)
	defer cancel()

	// the client never sends anything; reading detects it leaving
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(change events.Change) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(change)
	}

	now := time.Now()
	for _, snap := range s.registry.Platform().Lights {
		if err := write(events.Change{Light: snap, Time: now}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.quit:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := write(change); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
