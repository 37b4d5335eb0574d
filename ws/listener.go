// Package ws delivers plan-update notifications over a websocket. Messages
// only prompt the engine to refresh its view; they never mutate state.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fwojciec/planreview"
)

// Compile-time interface verification.
var _ planreview.Notifier = (*Listener)(nil)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Listener subscribes to a topic on a websocket endpoint and delivers each
// message to a callback.
type Listener struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// Option configures a Listener.
type Option func(*Listener)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(l *Listener) { l.dialer = d }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// NewListener creates a Listener for the given websocket URL.
func NewListener(url string, opts ...Option) *Listener {
	l := &Listener{url: url, dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// subscribeFrame is the frame sent after connecting to select a topic.
type subscribeFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Listen connects, subscribes to the topic, and invokes fn for each message
// until the context is cancelled or the connection fails. Cancellation
// returns ctx.Err().
func (l *Listener) Listen(ctx context.Context, topic string, fn func(message []byte)) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return &planreview.TransportError{Op: "listen", Err: err}
	}
	defer conn.Close()

	sub, err := json.Marshal(subscribeFrame{Action: "subscribe", Topic: topic})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return &planreview.TransportError{Op: "listen", Err: err}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Pings keep the connection alive; context cancellation tears it down,
	// which unblocks the read loop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			l.logger.Warn("plan update stream closed", "topic", topic, "error", err)
			return &planreview.TransportError{Op: "listen", Err: err}
		}
		fn(message)
	}
}
