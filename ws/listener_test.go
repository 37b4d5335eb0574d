package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/ws"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var upgrader = websocket.Upgrader{}

// wsURL converts an httptest server URL to its websocket form.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestListener_Listen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// The first frame selects the topic.
		_, sub, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}
		require.NoError(t, json.Unmarshal(sub, &frame))
		assert.Equal(t, "subscribe", frame.Action)
		assert.Equal(t, "plan-1", frame.Topic)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"plan_updated"}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"plan_updated"}`)))
		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	}))
	defer srv.Close()

	var messages [][]byte
	listener := ws.NewListener(wsURL(srv), ws.WithLogger(discard))
	err := listener.Listen(context.Background(), "plan-1", func(message []byte) {
		messages = append(messages, message)
	})

	require.NoError(t, err, "a normal close ends the stream cleanly")
	require.Len(t, messages, 2)
	assert.JSONEq(t, `{"event":"plan_updated"}`, string(messages[0]))
}

func TestListener_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	listener := ws.NewListener(wsURL(srv), ws.WithLogger(discard))
	go func() {
		errc <- listener.Listen(ctx, "plan-1", func([]byte) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}

func TestListener_DialFailure(t *testing.T) {
	t.Parallel()

	listener := ws.NewListener("ws://127.0.0.1:1", ws.WithLogger(discard))
	err := listener.Listen(context.Background(), "plan-1", func([]byte) {})

	var terr *planreview.TransportError
	require.ErrorAs(t, err, &terr)
}

func TestListener_AbnormalClose(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Drop the connection without a close handshake.
		conn.Close()
	}))
	defer srv.Close()

	listener := ws.NewListener(wsURL(srv), ws.WithLogger(discard))
	err := listener.Listen(context.Background(), "plan-1", func([]byte) {})

	var terr *planreview.TransportError
	require.ErrorAs(t, err, &terr)
}
