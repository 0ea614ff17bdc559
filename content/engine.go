// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/clock"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// ErrUnsupported marks an action the host's negotiated version set
// does not cover. Returned before any round trip is attempted.
var ErrUnsupported = errors.New("content: action not supported")

// ErrStarted is returned by operations only valid before Start.
var ErrStarted = errors.New("content: engine already started")

// ErrNotStarted is returned by operations that need the version cache.
var ErrNotStarted = errors.New("content: engine not started")

// Handler processes one inbound host request and returns the reply
// payload. Returning an error sends an error reply with the error's
// message instead.
type Handler func(ctx context.Context, request *channel.Envelope) (any, error)

// Options configures an Engine.
type Options struct {
	// WidgetID is this content instance's identity, stamped on every
	// outbound message. Required.
	WidgetID string

	// RequestTimeout bounds each outbound request. Defaults to
	// channel.DefaultTimeout.
	RequestTimeout time.Duration

	// Clock drives request timeouts. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives engine records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the content-side protocol state machine.
type Engine struct {
	channel *channel.Channel
	logger  *slog.Logger
	granted *capability.Set

	mu       sync.Mutex
	started  bool
	declared []capability.Capability
	versions map[string]bool
	handlers map[string]Handler
}

// New builds an Engine over the given transport.
func New(transport channel.Transport, options Options) (*Engine, error) {
	if options.WidgetID == "" {
		return nil, fmt.Errorf("content: options.WidgetID is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		logger:   logger,
		granted:  capability.NewSet(),
		handlers: make(map[string]Handler),
	}
	ch, err := channel.New(transport, channel.Options{
		Direction: channel.FromContent,
		WidgetID:  options.WidgetID,
		Timeout:   options.RequestTimeout,
		Clock:     options.Clock,
		Logger:    logger,
		OnRequest: engine.handleRequest,
	})
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	engine.channel = ch
	return engine, nil
}

// DeclareCapabilities adds to the set the engine will answer the
// host's capability request with. Valid only before Start; declaring
// afterwards is a programmer error and fails immediately.
func (e *Engine) DeclareCapabilities(capabilities ...capability.Capability) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrStarted
	}
	e.declared = append(e.declared, capabilities...)
	return nil
}

// Handle registers a handler for an inbound host action, replacing any
// previous one. Actions without a handler are acknowledged
// generically.
func (e *Engine) Handle(action string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = handler
}

// Start begins the session: the channel starts reading and the host's
// supported protocol versions are queried once and cached; they are
// never re-queried. Start can only succeed once.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrStarted
	}
	e.started = true
	e.mu.Unlock()

	if err := e.channel.Start(); err != nil {
		return fmt.Errorf("content: %w", err)
	}

	raw, err := e.channel.Send(ctx, channel.ActionSupportedAPIVersions, struct{}{})
	if err != nil {
		return fmt.Errorf("content: querying supported versions: %w", err)
	}
	var response schema.SupportedVersionsResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("content: decoding supported versions: %w", err)
	}

	versions := make(map[string]bool, len(response.SupportedVersions))
	for _, v := range response.SupportedVersions {
		versions[v] = true
	}
	e.mu.Lock()
	e.versions = versions
	e.mu.Unlock()
	return nil
}

// Stop tears the session down; all pending requests reject and later
// frames are ignored.
func (e *Engine) Stop() {
	e.channel.Stop()
}

// NegotiatedVersions returns the cached version set, or nil before
// Start completed.
func (e *Engine) NegotiatedVersions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.versions == nil {
		return nil
	}
	out := make([]string, 0, len(e.versions))
	for v := range e.versions {
		out = append(out, v)
	}
	return out
}

// HasCapability reports whether the host approved the capability.
func (e *Engine) HasCapability(c capability.Capability) bool {
	return e.granted.Has(c)
}

// Granted returns the capabilities the host has approved so far.
func (e *Engine) Granted() []capability.Capability {
	return e.granted.List()
}

// supports checks the cached version set against the action's
// required version. Ungated actions only need the session started.
func (e *Engine) supports(action string) error {
	e.mu.Lock()
	versions := e.versions
	e.mu.Unlock()
	if versions == nil {
		return ErrNotStarted
	}
	required, gated := channel.RequiredVersion(action)
	if !gated || versions[required] {
		return nil
	}
	return fmt.Errorf("%w: %s not supported by the host", ErrUnsupported, action)
}

// roundTrip gates, sends, and decodes one outbound action.
func (e *Engine) roundTrip(ctx context.Context, action string, data, out any) error {
	if err := e.supports(action); err != nil {
		return err
	}
	raw, err := e.channel.Send(ctx, action, data)
	if err != nil {
		return fmt.Errorf("content: %s: %w", action, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("content: decoding %s response: %w", action, err)
	}
	return nil
}

// ContentLoaded signals the host that this content finished loading.
// Hosts configured to wait use it to begin capability negotiation.
func (e *Engine) ContentLoaded(ctx context.Context) error {
	return e.roundTrip(ctx, channel.ActionContentLoaded, struct{}{}, nil)
}

// Renegotiate asks the host for additional capabilities mid-session.
// The approval arrives asynchronously as a capability notice.
func (e *Engine) Renegotiate(ctx context.Context, capabilities ...capability.Capability) error {
	request := schema.RenegotiateRequest{Capabilities: capability.Strings(capabilities)}
	return e.roundTrip(ctx, channel.ActionRenegotiate, request, nil)
}

// SendEvent asks the host to send a room event, immediate or
// deferred.
func (e *Engine) SendEvent(ctx context.Context, request schema.SendEventRequest) (*schema.SendEventResponse, error) {
	var response schema.SendEventResponse
	if err := e.roundTrip(ctx, channel.ActionSendEvent, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UpdateDelayedEvent cancels, restarts, or fires a deferred action.
func (e *Engine) UpdateDelayedEvent(ctx context.Context, delayID, action string) error {
	request := schema.UpdateDelayedEventRequest{DelayID: delayID, Action: action}
	return e.roundTrip(ctx, channel.ActionUpdateDelayedEvent, request, nil)
}

// SendToDevice asks the host to send a to-device message batch.
func (e *Engine) SendToDevice(ctx context.Context, request schema.SendToDeviceRequest) error {
	return e.roundTrip(ctx, channel.ActionSendToDevice, request, nil)
}

// ReadEvents asks the host for recent room events.
func (e *Engine) ReadEvents(ctx context.Context, request schema.ReadEventsRequest) ([]schema.Event, error) {
	var response schema.ReadEventsResponse
	if err := e.roundTrip(ctx, channel.ActionReadEvents, request, &response); err != nil {
		return nil, err
	}
	return response.Events, nil
}

// ReadState asks the host for current room state entries.
func (e *Engine) ReadState(ctx context.Context, request schema.ReadStateRequest) ([]schema.Event, error) {
	var response schema.ReadStateResponse
	if err := e.roundTrip(ctx, channel.ActionReadState, request, &response); err != nil {
		return nil, err
	}
	return response.Events, nil
}

// ReadRelations asks the host for one page of related events.
func (e *Engine) ReadRelations(ctx context.Context, request schema.ReadRelationsRequest) (*schema.ReadRelationsResponse, error) {
	var response schema.ReadRelationsResponse
	if err := e.roundTrip(ctx, channel.ActionReadRelations, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ReadRoomAccountData asks the host for per-room account data entries.
func (e *Engine) ReadRoomAccountData(ctx context.Context, request schema.ReadRoomAccountDataRequest) ([]schema.Event, error) {
	var response schema.ReadRoomAccountDataResponse
	if err := e.roundTrip(ctx, channel.ActionReadRoomAccountData, request, &response); err != nil {
		return nil, err
	}
	return response.Events, nil
}

// ReadStickyOverlay asks the host for a room's fresh overlay entries.
func (e *Engine) ReadStickyOverlay(ctx context.Context, roomID string) ([]schema.StickyEvent, error) {
	request := schema.ReadStickyOverlayRequest{RoomID: roomID}
	var response schema.ReadStickyOverlayResponse
	if err := e.roundTrip(ctx, channel.ActionReadStickyOverlay, request, &response); err != nil {
		return nil, err
	}
	return response.Events, nil
}

// KnownRooms asks the host which rooms it reveals to this content.
func (e *Engine) KnownRooms(ctx context.Context) ([]string, error) {
	var response schema.KnownRoomsResponse
	if err := e.roundTrip(ctx, channel.ActionKnownRooms, struct{}{}, &response); err != nil {
		return nil, err
	}
	return response.Rooms, nil
}

// GetOpenID starts the identity-verification exchange. A pending
// state means the verdict arrives later as a pushed
// openid_credentials message correlated by this request's id; register
// a handler for that action to receive it.
func (e *Engine) GetOpenID(ctx context.Context) (*schema.OpenIDState, error) {
	var state schema.OpenIDState
	if err := e.roundTrip(ctx, channel.ActionGetOpenID, struct{}{}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// WatchCredentials starts the streaming credential refresh; each fresh
// credential arrives as a pushed update_credentials message.
func (e *Engine) WatchCredentials(ctx context.Context) error {
	return e.roundTrip(ctx, channel.ActionWatchCredentials, struct{}{}, nil)
}

// UnwatchCredentials stops the streaming credential refresh.
func (e *Engine) UnwatchCredentials(ctx context.Context) error {
	return e.roundTrip(ctx, channel.ActionUnwatchCredentials, struct{}{}, nil)
}

// Navigate asks the host to open a permalink in its own UI.
func (e *Engine) Navigate(ctx context.Context, uri string) error {
	return e.roundTrip(ctx, channel.ActionNavigate, schema.NavigateRequest{URI: uri}, nil)
}

// SearchUsers queries the host's user directory.
func (e *Engine) SearchUsers(ctx context.Context, searchTerm string, limit int) (*schema.UserDirectorySearchResponse, error) {
	request := schema.UserDirectorySearchRequest{SearchTerm: searchTerm}
	if limit > 0 {
		request.Limit = &limit
	}
	var response schema.UserDirectorySearchResponse
	if err := e.roundTrip(ctx, channel.ActionUserDirectorySearch, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// MediaConfig reads the host's media limits.
func (e *Engine) MediaConfig(ctx context.Context) (*schema.MediaConfig, error) {
	var config schema.MediaConfig
	if err := e.roundTrip(ctx, channel.ActionGetMediaConfig, struct{}{}, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// UploadFile stores a base64-encoded file with the host.
func (e *Engine) UploadFile(ctx context.Context, request schema.UploadFileRequest) (*schema.UploadFileResponse, error) {
	var response schema.UploadFileResponse
	if err := e.roundTrip(ctx, channel.ActionUploadFile, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// DownloadFile fetches a stored file from the host.
func (e *Engine) DownloadFile(ctx context.Context, request schema.DownloadFileRequest) (*schema.DownloadFileResponse, error) {
	var response schema.DownloadFileResponse
	if err := e.roundTrip(ctx, channel.ActionDownloadFile, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
