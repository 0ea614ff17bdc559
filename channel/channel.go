// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alcove-foundation/alcove/lib/clock"
	"github.com/alcove-foundation/alcove/lib/ref"
)

// DefaultTimeout bounds the wait for a peer response. Absent it, a
// silently dropped response would hang a caller forever.
const DefaultTimeout = 10 * time.Second

// RequestHandler receives inbound requests that survived the frame
// decision tree. Called from the channel's reader goroutine; handlers
// that block should dispatch to their own goroutine.
type RequestHandler func(request *Envelope)

// Options configures a Channel.
type Options struct {
	// Direction is the api tag this side stamps on its own requests.
	// The host uses ToContent, the content FromContent. Required.
	Direction Direction

	// WidgetID presets the sender identity and must parse as a
	// ref.WidgetID. The content side sets its own ID here; the host
	// side may leave it empty and let the channel bind to the first
	// inbound request's sender.
	WidgetID string

	// Timeout bounds each outstanding request. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// Clock drives request timeouts. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives debug records for dropped frames. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// OnRequest surfaces inbound requests. Optional; without it
	// inbound requests are dropped (and logged).
	OnRequest RequestHandler
}

// channelState tracks the start/stop lifecycle. A stopped channel
// never restarts.
type channelState int

const (
	stateIdle channelState = iota
	stateStarted
	stateStopped
)

// Channel is the correlated request/response transport. Safe for
// concurrent use: any number of goroutines may send while the reader
// goroutine settles responses.
type Channel struct {
	transport Transport
	direction Direction
	timeout   time.Duration
	clock     clock.Clock
	logger    *slog.Logger
	onRequest RequestHandler

	mu       sync.Mutex
	state    channelState
	widgetID string // bound peer identity, immutable once set
	pending  map[string]*pendingRequest
	stop     chan struct{}
}

// pendingRequest is owned exclusively by the channel that created it.
// It is removed on settle, on timeout, and on channel stop.
type pendingRequest struct {
	action string
	result chan settledResponse // capacity 1
	timer  *clock.Timer
}

type settledResponse struct {
	envelope *Envelope
	err      error
}

// New creates a Channel over the given transport. The channel does
// not listen until Start.
func New(transport Transport, options Options) (*Channel, error) {
	if !options.Direction.valid() {
		return nil, fmt.Errorf("channel: invalid direction %q", options.Direction)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.WidgetID != "" {
		if _, err := ref.ParseWidgetID(options.WidgetID); err != nil {
			return nil, fmt.Errorf("channel: invalid widget ID: %w", err)
		}
	}
	return &Channel{
		transport: transport,
		direction: options.Direction,
		timeout:   options.Timeout,
		clock:     options.Clock,
		logger:    options.Logger,
		onRequest: options.OnRequest,
		widgetID:  options.WidgetID,
		pending:   make(map[string]*pendingRequest),
		stop:      make(chan struct{}),
	}, nil
}

// Start begins listening for inbound frames and marks the channel
// ready to send. Starting an already started channel is a no-op;
// starting a stopped channel returns ErrStopped.
func (c *Channel) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateStarted:
		return nil
	case stateStopped:
		return ErrStopped
	}
	c.state = stateStarted
	go c.readLoop()
	return nil
}

// Stop marks the channel not-ready and rejects every pending request
// with ErrStopped. Inbound frames still physically arriving are
// ignored. Stop does not close the underlying transport — the caller
// owns that. Idempotent.
func (c *Channel) Stop() {
	c.mu.Lock()
	if c.state == stateStopped {
		c.mu.Unlock()
		return
	}
	c.state = stateStopped
	close(c.stop)
	cancelled := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for id, request := range cancelled {
		request.timer.Stop()
		request.result <- settledResponse{err: fmt.Errorf("%w: request %q (%s) cancelled", ErrStopped, id, request.action)}
	}
}

// BoundWidgetID returns the bound peer identity, or "" while unbound.
func (c *Channel) BoundWidgetID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widgetID
}

// Direction returns the api tag this side stamps on its requests.
func (c *Channel) Direction() Direction { return c.direction }

// Send performs a request round trip and returns the peer's response
// payload. See SendComplete for the full envelope.
func (c *Channel) Send(ctx context.Context, action string, data any) (json.RawMessage, error) {
	envelope, err := c.SendComplete(ctx, action, data)
	if err != nil {
		return nil, err
	}
	return envelope.Response, nil
}

// SendComplete performs a request round trip and returns the peer's
// full response envelope. It fails immediately when the channel is
// not started or no peer identity is bound, with ErrTimeout when no
// response arrives within the configured timeout, with ErrStopped
// when the channel stops while waiting, and with a *RemoteError when
// the peer answers with an error payload.
func (c *Channel) SendComplete(ctx context.Context, action string, data any) (*Envelope, error) {
	payload, err := marshalPayload(data)
	if err != nil {
		return nil, fmt.Errorf("channel: marshal %q request: %w", action, err)
	}

	c.mu.Lock()
	switch c.state {
	case stateIdle:
		c.mu.Unlock()
		return nil, ErrNotStarted
	case stateStopped:
		c.mu.Unlock()
		return nil, ErrStopped
	}
	widgetID := c.widgetID
	if widgetID == "" {
		c.mu.Unlock()
		return nil, ErrNoPeer
	}

	requestID := c.newRequestIDLocked()
	request := &pendingRequest{
		action: action,
		result: make(chan settledResponse, 1),
	}
	c.pending[requestID] = request
	timeout := c.timeout
	request.timer = c.clock.AfterFunc(timeout, func() {
		c.settle(requestID, nil, fmt.Errorf("%w: no response to %q within %v", ErrTimeout, action, timeout))
	})
	c.mu.Unlock()

	frame, err := json.Marshal(&Envelope{
		API:       c.direction,
		RequestID: requestID,
		Action:    action,
		WidgetID:  widgetID,
		Data:      payload,
	})
	if err != nil {
		c.abandon(requestID)
		return nil, fmt.Errorf("channel: marshal %q frame: %w", action, err)
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		c.abandon(requestID)
		return nil, fmt.Errorf("channel: send %q: %w", action, err)
	}

	select {
	case settled := <-request.result:
		if settled.err != nil {
			return nil, settled.err
		}
		return settled.envelope, nil
	case <-ctx.Done():
		c.abandon(requestID)
		return nil, ctx.Err()
	}
}

// Reply transmits a success response correlated to the original
// request. No further reply is expected.
func (c *Channel) Reply(ctx context.Context, original *Envelope, response any) error {
	payload, err := marshalPayload(response)
	if err != nil {
		return fmt.Errorf("channel: marshal %q response: %w", original.Action, err)
	}
	return c.sendResponse(ctx, original, payload)
}

// ReplyError transmits an error response correlated to the original
// request, carrying the message and any extra detail fields.
func (c *Channel) ReplyError(ctx context.Context, original *Envelope, message string, detail map[string]any) error {
	payload, err := MarshalErrorResponse(message, detail)
	if err != nil {
		return err
	}
	return c.sendResponse(ctx, original, payload)
}

// sendResponse echoes the original frame with the response payload
// attached — the response carries the same api tag, request ID,
// action, sender identity, and data as its request.
func (c *Channel) sendResponse(ctx context.Context, original *Envelope, payload json.RawMessage) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	switch state {
	case stateIdle:
		return ErrNotStarted
	case stateStopped:
		return ErrStopped
	}

	response := *original
	response.Response = payload
	frame, err := json.Marshal(&response)
	if err != nil {
		return fmt.Errorf("channel: marshal %q response frame: %w", original.Action, err)
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		return fmt.Errorf("channel: reply to %q: %w", original.Action, err)
	}
	return nil
}

// newRequestIDLocked generates a request ID that is not currently in
// flight. UUIDs do not collide in practice; the loop guards the
// invariant anyway since the pending table is keyed by ID.
func (c *Channel) newRequestIDLocked() string {
	for {
		id := uuid.NewString()
		if _, inFlight := c.pending[id]; !inFlight {
			return id
		}
	}
}

// settle resolves or rejects a pending request. Returns false when
// the request is unknown (already settled, timed out, or never ours).
func (c *Channel) settle(requestID string, envelope *Envelope, err error) bool {
	c.mu.Lock()
	request, found := c.pending[requestID]
	if !found {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, requestID)
	c.mu.Unlock()

	request.timer.Stop()
	request.result <- settledResponse{envelope: envelope, err: err}
	return true
}

// abandon forgets a pending request without settling it, for paths
// where the caller already has its error (send failure, context
// cancellation).
func (c *Channel) abandon(requestID string) {
	c.mu.Lock()
	request, found := c.pending[requestID]
	delete(c.pending, requestID)
	c.mu.Unlock()
	if found {
		request.timer.Stop()
	}
}

// readLoop drains the transport until the channel stops or the
// transport closes.
func (c *Channel) readLoop() {
	frames := c.transport.Frames()
	for {
		select {
		case <-c.stop:
			return
		case frame, open := <-frames:
			if !open {
				return
			}
			c.handleFrame(frame)
		}
	}
}

// handleFrame runs the inbound decision tree. First match wins; every
// drop is silent on the wire and logged at debug level.
func (c *Channel) handleFrame(frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		c.logger.Debug("channel: dropping undecodable frame", "error", err)
		return
	}
	if !envelope.wellFormed() {
		c.logger.Debug("channel: dropping malformed frame", "action", envelope.Action)
		return
	}

	if !envelope.IsResponse() {
		c.handleInboundRequest(&envelope)
		return
	}
	c.handleInboundResponse(&envelope)
}

func (c *Channel) handleInboundRequest(envelope *Envelope) {
	if envelope.API != c.direction.Inverse() {
		c.logger.Debug("channel: dropping request with wrong direction",
			"action", envelope.Action, "api", string(envelope.API))
		return
	}

	c.mu.Lock()
	if c.state != stateStarted {
		c.mu.Unlock()
		return
	}
	if c.widgetID == "" {
		if _, err := ref.ParseWidgetID(envelope.WidgetID); err != nil {
			c.mu.Unlock()
			c.logger.Debug("channel: dropping request with invalid sender identity",
				"action", envelope.Action, "error", err)
			return
		}
		// First valid request wins: the identity locks for the
		// channel's lifetime.
		c.widgetID = envelope.WidgetID
	} else if c.widgetID != envelope.WidgetID {
		c.mu.Unlock()
		c.logger.Debug("channel: dropping request from unbound sender",
			"action", envelope.Action, "sender", envelope.WidgetID)
		return
	}
	handler := c.onRequest
	c.mu.Unlock()

	if handler == nil {
		c.logger.Debug("channel: no request handler, dropping request", "action", envelope.Action)
		return
	}
	handler(envelope)
}

func (c *Channel) handleInboundResponse(envelope *Envelope) {
	c.mu.Lock()
	bound := c.widgetID
	c.mu.Unlock()
	if bound == "" || envelope.WidgetID != bound {
		c.logger.Debug("channel: dropping response from unbound sender",
			"action", envelope.Action, "sender", envelope.WidgetID)
		return
	}
	if envelope.API != c.direction {
		c.logger.Debug("channel: dropping response with wrong direction",
			"action", envelope.Action, "api", string(envelope.API))
		return
	}

	if remote, isError := ParseErrorResponse(envelope.Response); isError {
		if !c.settle(envelope.RequestID, nil, remote) {
			c.logger.Debug("channel: dropping error response for unknown request",
				"action", envelope.Action, "requestId", envelope.RequestID)
		}
		return
	}
	if !c.settle(envelope.RequestID, envelope, nil) {
		c.logger.Debug("channel: dropping response for unknown request",
			"action", envelope.Action, "requestId", envelope.RequestID)
	}
}

// marshalPayload encodes a request or response body. A nil body
// becomes the empty object, never JSON null.
func marshalPayload(data any) (json.RawMessage, error) {
	if data == nil {
		return json.RawMessage(`{}`), nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
