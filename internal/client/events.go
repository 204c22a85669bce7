package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/iotracing/hue-wrapper/internal/events"
)

const (
	// the service pings every 30s
	feedReadWait  = 60 * time.Second
	feedWriteWait = 10 * time.Second
)

// ChangeHandler is called with batches of light changes
type ChangeHandler func(changes []events.Change)

// EventSubscription follows the service change feed, reconnecting when it
// drops. Changes arriving close together are delivered as one batch.
type EventSubscription struct {
	url     string
	handler ChangeHandler
	retry   time.Duration
	window  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe creates a subscription to the change feed. Call Start to
// begin receiving.
func (c *Client) Subscribe(handler ChangeHandler) *EventSubscription {
	return &EventSubscription{
		url:     c.eventsURL(),
		handler: handler,
		retry:   5 * time.Second,
		window:  50 * time.Millisecond,
	}
}

// Start begins listening for changes until ctx is done or Stop is called
func (s *EventSubscription) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

// Stop closes the feed and waits for the subscription to wind down
func (s *EventSubscription) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *EventSubscription) run(ctx context.Context) {
	defer close(s.done)

	changes := make(chan events.Change, 64)
	go s.deliver(ctx, changes)

	for ctx.Err() == nil {
		if err := s.listen(ctx, changes); err == nil || ctx.Err() != nil {
			continue
		}
		select {
		case <-time.After(s.retry):
		case <-ctx.Done():
		}
	}
}

// listen reads one connection until it fails
func (s *EventSubscription) listen(ctx context.Context, out chan<- events.Change) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to connect to change feed")
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetReadDeadline(time.Now().Add(feedReadWait)); err != nil {
		return err
	}
	conn.SetPingHandler(func(data string) error {
		if err := conn.SetReadDeadline(time.Now().Add(feedReadWait)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(feedWriteWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "change feed closed")
		}
		change, ok := parseMessage(message)
		if !ok {
			continue
		}
		select {
		case out <- change:
		case <-ctx.Done():
			return nil
		}
	}
}

// deliver hands changes to the handler, at most one batch per window
func (s *EventSubscription) deliver(ctx context.Context, in <-chan events.Change) {
	var (
		batch []events.Change
		flush <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-in:
			batch = append(batch, change)
			if flush == nil {
				flush = time.After(s.window)
			}
		case <-flush:
			if s.handler != nil {
				s.handler(batch)
			}
			batch, flush = nil, nil
		}
	}
}

// parseMessage parses one websocket message into a change
func parseMessage(message []byte) (events.Change, bool) {
	var change events.Change
	if err := json.Unmarshal(message, &change); err != nil {
		return events.Change{}, false
	}
	if change.Light.Name == "" {
		return events.Change{}, false
	}
	return change, true
}
