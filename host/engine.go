// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/clock"
	"github.com/alcove-foundation/alcove/lib/dispatch"
	"github.com/alcove-foundation/alcove/lib/flow"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// State is the engine's position in the session lifecycle.
type State string

const (
	// StateAwaitingContent: started, no sign of the content yet.
	StateAwaitingContent State = "awaiting_content"

	// StateAwaitingReadySignal: the surface has loaded and the engine
	// is waiting for the content's explicit ready signal.
	StateAwaitingReadySignal State = "awaiting_ready_signal"

	// StateNegotiating: capability negotiation is in flight.
	StateNegotiating State = "negotiating_capabilities"

	// StateReady: negotiation finished, actions are dispatched.
	StateReady State = "ready"

	// StateStopped is terminal.
	StateStopped State = "stopped"
)

// Lifecycle topics published on the engine's notification table. Every
// dispatched action is additionally published under its action name.
const (
	TopicReady        = "ready"
	TopicCapabilities = "capabilities"
)

// DefaultReadySignalTimeout bounds the wait for the content's ready
// signal before the engine logs a warning. The session is not torn
// down on expiry; it simply never reaches Ready.
const DefaultReadySignalTimeout = 30 * time.Second

// DefaultStickyFreshness is how long a sticky overlay entry counts as
// fresh when the embedder does not configure its own duration.
const DefaultStickyFreshness = 5 * time.Minute

// Options configures an Engine.
type Options struct {
	// Driver supplies the real effect of each permitted action.
	// Required.
	Driver Driver

	// WidgetID presets the content identity the embedder created the
	// surface for. When empty, the channel binds to the first inbound
	// request's sender instead, and the engine cannot initiate
	// negotiation before the content sends something.
	WidgetID string

	// WaitForReadySignal makes the engine hold negotiation until the
	// content sends its ready signal, instead of negotiating as soon
	// as the surface has loaded.
	WaitForReadySignal bool

	// ReadySignalTimeout bounds the wait for the ready signal.
	// Defaults to DefaultReadySignalTimeout.
	ReadySignalTimeout time.Duration

	// StickyFreshness is the sticky overlay freshness window.
	// Defaults to DefaultStickyFreshness.
	StickyFreshness time.Duration

	// RequestTimeout bounds each outbound request to the content.
	// Defaults to channel.DefaultTimeout.
	RequestTimeout time.Duration

	// Clock drives timeouts and overlay staleness. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger receives engine records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the host-side protocol state machine.
type Engine struct {
	driver  Driver
	channel *channel.Channel
	clock   clock.Clock
	logger  *slog.Logger
	caps    *capability.Set
	overlay *StickyOverlay
	events  *dispatch.Table[*channel.Envelope]

	waitForReadySignal bool
	readySignalTimeout time.Duration

	// ctx covers background work spawned by the engine and is
	// cancelled on Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	readyTimer *clock.Timer
	watch      flow.Cursor[schema.Credential]
}

// New builds an Engine over the given transport. The engine owns the
// host end of the channel; Start begins reading.
func New(transport channel.Transport, options Options) (*Engine, error) {
	if options.Driver == nil {
		return nil, fmt.Errorf("host: options.Driver is required")
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	freshness := options.StickyFreshness
	if freshness <= 0 {
		freshness = DefaultStickyFreshness
	}
	readyTimeout := options.ReadySignalTimeout
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadySignalTimeout
	}

	engine := &Engine{
		driver:             options.Driver,
		clock:              clk,
		logger:             logger,
		caps:               capability.NewSet(),
		overlay:            NewStickyOverlay(clk, freshness),
		events:             dispatch.NewTable[*channel.Envelope](),
		waitForReadySignal: options.WaitForReadySignal,
		readySignalTimeout: readyTimeout,
		state:              StateAwaitingContent,
	}
	engine.ctx, engine.cancel = context.WithCancel(context.Background())

	ch, err := channel.New(transport, channel.Options{
		Direction: channel.ToContent,
		WidgetID:  options.WidgetID,
		Timeout:   options.RequestTimeout,
		Clock:     clk,
		Logger:    logger,
		OnRequest: engine.handleRequest,
	})
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	engine.channel = ch
	return engine, nil
}

// Start begins reading the channel. The engine stays in
// StateAwaitingContent until the content announces itself, either by
// sending its ready signal or via ContentReady.
func (e *Engine) Start() error {
	if err := e.channel.Start(); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	return nil
}

// Stop tears the session down: the channel rejects all pending
// requests, later frames are ignored, background flows are cancelled,
// and an active credential watch is closed. In-flight Driver calls are
// not unwound; their late replies are discarded by the stopped
// channel.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	if e.readyTimer != nil {
		e.readyTimer.Stop()
		e.readyTimer = nil
	}
	watch := e.watch
	e.watch = nil
	e.mu.Unlock()

	if watch != nil {
		if err := watch.Close(); err != nil {
			e.logger.Debug("closing credential watch", "error", err)
		}
	}
	e.cancel()
	e.channel.Stop()
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// HasCapability reports whether the capability has been granted this
// session.
func (e *Engine) HasCapability(c capability.Capability) bool {
	return e.caps.Has(c)
}

// Capabilities returns the granted set. The set only grows; a
// renegotiation adds deltas, never removes prior grants.
func (e *Engine) Capabilities() []capability.Capability {
	return e.caps.List()
}

// Overlay returns the engine's sticky overlay state. The embedder
// records matching events as they arrive; the content reads the fresh
// entries through the overlay action.
func (e *Engine) Overlay() *StickyOverlay {
	return e.overlay
}

// Subscribe registers a notification callback for a lifecycle topic or
// an action name. Callbacks run synchronously in subscription order on
// the goroutine that dispatched the action.
func (e *Engine) Subscribe(topic string, fn func(*channel.Envelope)) (cancel func()) {
	return e.events.Subscribe(topic, fn)
}

// ContentReady tells the engine the embedded surface has loaded, for
// embeddings that observe load out-of-band instead of relying on the
// content's own signal. Depending on configuration the engine either
// negotiates immediately or starts the bounded wait for the ready
// signal.
func (e *Engine) ContentReady() {
	e.mu.Lock()
	if e.state != StateAwaitingContent {
		e.mu.Unlock()
		return
	}
	if !e.waitForReadySignal {
		e.mu.Unlock()
		e.beginNegotiation()
		return
	}
	e.state = StateAwaitingReadySignal
	e.readyTimer = e.clock.AfterFunc(e.readySignalTimeout, e.readySignalExpired)
	e.mu.Unlock()
}

func (e *Engine) readySignalExpired() {
	e.mu.Lock()
	expired := e.state == StateAwaitingReadySignal
	e.mu.Unlock()
	if expired {
		e.logger.Warn("content never sent its ready signal",
			"waited", e.readySignalTimeout.String())
	}
}

// contentSignaledReady handles the content's own ready signal. Valid
// from AwaitingContent (content raced ahead of the embedder) and
// AwaitingReadySignal; a duplicate signal in later states is just
// acknowledged by the caller.
func (e *Engine) contentSignaledReady() {
	e.mu.Lock()
	switch e.state {
	case StateAwaitingContent, StateAwaitingReadySignal:
		if e.readyTimer != nil {
			e.readyTimer.Stop()
			e.readyTimer = nil
		}
		e.mu.Unlock()
		e.beginNegotiation()
		return
	}
	e.mu.Unlock()
}

// beginNegotiation runs the capability exchange and moves the engine
// to Ready. A failed exchange rolls back so a later ready signal can
// start it again; a successful one never repeats.
func (e *Engine) beginNegotiation() {
	e.mu.Lock()
	if e.state != StateAwaitingContent && e.state != StateAwaitingReadySignal {
		e.mu.Unlock()
		return
	}
	e.state = StateNegotiating
	e.mu.Unlock()

	go e.negotiate()
}

func (e *Engine) negotiate() {
	raw, err := e.channel.Send(e.ctx, channel.ActionCapabilities, struct{}{})
	if err != nil {
		e.logger.Error("capability request failed", "error", err)
		e.abortNegotiation()
		return
	}
	var desired schema.CapabilitiesResponse
	if err := json.Unmarshal(raw, &desired); err != nil {
		e.logger.Error("capability response malformed", "error", err)
		e.abortNegotiation()
		return
	}

	requested := capability.FromStrings(desired.Capabilities)
	approved := e.approve(requested)
	e.notifyCapabilities(requested, approved)

	e.mu.Lock()
	if e.state != StateNegotiating {
		e.mu.Unlock()
		return
	}
	e.state = StateReady
	e.mu.Unlock()

	e.events.Publish(TopicReady, nil)
	if _, err := e.channel.Send(e.ctx, channel.ActionNotifyReady, struct{}{}); err != nil {
		e.logger.Debug("ready notice not acknowledged", "error", err)
	}
}

// abortNegotiation rolls a failed exchange back to AwaitingContent so
// a later ready signal (or ContentReady) can start it again.
func (e *Engine) abortNegotiation() {
	e.mu.Lock()
	if e.state == StateNegotiating {
		e.state = StateAwaitingContent
	}
	e.mu.Unlock()
}

// approve runs the Driver's capability decision and unions the result
// into the granted set. A validation failure grants nothing; the
// session continues with whatever was granted before.
func (e *Engine) approve(requested []capability.Capability) []capability.Capability {
	if len(requested) == 0 {
		return nil
	}
	approved, err := e.driver.ValidateCapabilities(e.ctx, requested)
	if err != nil {
		e.logger.Error("capability validation failed", "error", err)
		return nil
	}
	return e.caps.AddAll(approved)
}

// notifyCapabilities pushes the approved notice to the content.
// Best-effort: a failure is logged, never fatal.
func (e *Engine) notifyCapabilities(requested, approved []capability.Capability) {
	notice := schema.NotifyCapabilitiesRequest{
		Requested: capability.Strings(requested),
		Approved:  capability.Strings(approved),
	}
	if _, err := e.channel.Send(e.ctx, channel.ActionNotifyCapabilities, notice); err != nil {
		e.logger.Warn("capability notice not delivered", "error", err)
	}
	e.events.Publish(TopicCapabilities, nil)
}

// renegotiate handles a mid-session request for additional
// capabilities: only the never-before-granted delta is validated, and
// the content is notified even when the delta is empty.
func (e *Engine) renegotiate(requested []capability.Capability) {
	delta := e.caps.Delta(requested)
	approved := e.approve(delta)
	e.notifyCapabilities(delta, approved)
}

// ForwardEvent pushes a room event to the content. The receive
// capability for the event's type and the timeline capability for its
// room are checked against the grant set as it stands right now;
// grants obtained after an earlier check never retroactively authorize
// a push.
func (e *Engine) ForwardEvent(ctx context.Context, event schema.Event) error {
	if !e.allowsEventReceive(event) {
		return fmt.Errorf("host: content lacks receive capability for %q", event.Type)
	}
	if event.RoomID != "" && !e.allowsTimeline(ctx, event.RoomID) {
		return fmt.Errorf("host: content lacks timeline access to %q", event.RoomID)
	}
	if _, err := e.channel.Send(ctx, channel.ActionSendEvent, event); err != nil {
		return fmt.Errorf("host: forwarding event: %w", err)
	}
	return nil
}

// PushState pushes changed room state, filtered down to the entries
// the content currently holds receive capabilities for. Entries the
// content cannot observe are silently dropped from the push.
func (e *Engine) PushState(ctx context.Context, state []schema.Event) error {
	allowed := make([]schema.Event, 0, len(state))
	for _, event := range state {
		if e.allowsEventReceive(event) {
			allowed = append(allowed, event)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	push := schema.UpdateStateRequest{State: allowed}
	if _, err := e.channel.Send(ctx, channel.ActionUpdateState, push); err != nil {
		return fmt.Errorf("host: pushing state: %w", err)
	}
	return nil
}

// UpdateVisibility tells the content whether its surface is visible.
func (e *Engine) UpdateVisibility(ctx context.Context, visible bool) error {
	push := schema.UpdateVisibilityRequest{Visible: visible}
	if _, err := e.channel.Send(ctx, channel.ActionUpdateVisibility, push); err != nil {
		return fmt.Errorf("host: pushing visibility: %w", err)
	}
	return nil
}

// allowsEventReceive checks the receive capability for one event,
// using the state key or message subtype as the secondary key.
func (e *Engine) allowsEventReceive(event schema.Event) bool {
	kind := capability.KindEvent
	key := ""
	hasKey := false
	if event.StateKey != nil {
		kind = capability.KindState
		key = *event.StateKey
		hasKey = true
	} else if msgType, ok := event.MsgType(); ok {
		key = msgType
		hasKey = true
	}
	return e.caps.AllowsEvent(capability.Receive, kind, event.Type, key, hasKey)
}

// allowsTimeline checks timeline access to a room. An exact grant
// answers immediately; the wildcard grant resolves against the
// Driver's known-rooms set.
func (e *Engine) allowsTimeline(ctx context.Context, roomID string) bool {
	if e.caps.AllowsTimeline(roomID, false) {
		return true
	}
	if !e.caps.Has(capability.Timeline(capability.WildcardRoom)) {
		return false
	}
	rooms, err := e.driver.KnownRooms(ctx)
	if err != nil {
		e.logger.Debug("known-rooms lookup failed during timeline check", "error", err)
		return false
	}
	for _, known := range rooms {
		if known == roomID {
			return true
		}
	}
	return false
}
