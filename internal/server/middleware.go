package server

import (
	"bufio"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// statusRecorder remembers the status written by a handler. It keeps the
// underlying writer hijackable for websocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	// a hijacked connection is reported as switching protocols
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type loggingHandler struct {
	handler http.Handler
	log     *logrus.Entry
}

func (h loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	h.handler.ServeHTTP(rec, req)

	entry := h.log.WithFields(logrus.Fields{
		"request_id": id,
		"status":     rec.status,
		"duration":   time.Since(start),
	})
	if rec.status >= http.StatusInternalServerError {
		entry.Warnf("%s %s", req.Method, req.RequestURI)
		return
	}
	entry.Debugf("%s %s", req.Method, req.RequestURI)
}

// recoveryHandler keeps the process alive when a handler panics
type recoveryHandler struct {
	handler http.Handler
	log     *logrus.Entry
}

func (h recoveryHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		if err == http.ErrAbortHandler {
			panic(err)
		}
		h.log.Errorf("Uncaught Exception: %v", err)
		h.log.Errorf("Uncaught Exception: %s", debug.Stack())
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}()
	h.handler.ServeHTTP(w, req)
}
