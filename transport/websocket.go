// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alcove-foundation/alcove/channel"
)

// websocketWriteWait bounds a single frame write so a stalled peer
// cannot wedge the writer forever.
const websocketWriteWait = 10 * time.Second

// WebSocket carries frames as websocket text messages. Construct with
// NewWebSocket around an accepted or dialed connection; the transport
// owns the connection from then on.
type WebSocket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	frames  chan []byte

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocket wraps an established websocket connection and starts
// its read pump. The Frames stream closes when the connection drops.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{
		conn:   conn,
		frames: make(chan []byte, memoryBuffer),
	}
	go w.readPump()
	return w
}

// Dial connects to a websocket endpoint and wraps it. The content
// side of an out-of-process embedding dials the host's listener.
func Dial(ctx context.Context, url string) (*WebSocket, error) {
	conn, response, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	if response != nil && response.Body != nil {
		response.Body.Close()
	}
	return NewWebSocket(conn), nil
}

// Upgrade accepts an inbound websocket handshake and wraps it.
// checkOrigin is the caller-supplied origin policy; nil accepts every
// origin, which is only safe behind an authenticating proxy.
func Upgrade(w http.ResponseWriter, r *http.Request, checkOrigin func(*http.Request) bool) (*WebSocket, error) {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: upgrade: %w", err)
	}
	return NewWebSocket(conn), nil
}

// Send implements channel.Transport. Writes are serialized; the
// websocket protocol forbids concurrent writers.
func (w *WebSocket) Send(ctx context.Context, frame []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(websocketWriteWait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// Frames implements channel.Transport.
func (w *WebSocket) Frames() <-chan []byte { return w.frames }

// Close implements channel.Transport. It sends a close frame
// best-effort, then tears the connection down, which ends the read
// pump and closes the Frames stream.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		deadline := time.Now().Add(websocketWriteWait)
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage, message, deadline)
		w.writeMu.Unlock()
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

// readPump drains the connection into the frames stream until the
// connection fails or closes.
func (w *WebSocket) readPump() {
	defer close(w.frames)
	for {
		messageType, frame, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		w.frames <- frame
	}
}

var _ channel.Transport = (*WebSocket)(nil)
