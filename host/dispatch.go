// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"fmt"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/ref"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// Error messages sent back to the content. Validation failures use
// the "Invalid request - <reason>" form; capability failures have
// fixed, type-specific messages.
const (
	errMissingCapability = "Missing capability"
	errNotReady          = "Session is not ready"
	errNoCredentials     = "no credentials available"
)

func errUnknownAction(action string) string {
	return fmt.Sprintf("Unknown action: %s", action)
}

func errInvalidRequest(reason string) string {
	return fmt.Sprintf("Invalid request - %s", reason)
}

func errTimelineAccess(roomID string) string {
	return fmt.Sprintf("Unable to access room timeline: %s", roomID)
}

// handleRequest is the channel's inbound-request callback. Each
// request dispatches on its own goroutine; correlation is by request
// id, so out-of-order completion is expected and safe.
func (e *Engine) handleRequest(request *channel.Envelope) {
	go e.dispatch(request)
}

// Actions dispatched before the engine reaches Ready. Everything else
// is rejected with a not-ready error.
var preReadyActions = map[string]bool{
	channel.ActionSupportedAPIVersions: true,
	channel.ActionContentLoaded:        true,
}

type handlerFunc func(*Engine, context.Context, *channel.Envelope) error

// handlers is the pure lookup table keyed by action name. A handler
// returns an error only for reply-delivery failures; protocol and
// Driver failures are answered inside the handler.
var handlers = map[string]handlerFunc{
	channel.ActionSupportedAPIVersions: (*Engine).handleSupportedVersions,
	channel.ActionContentLoaded:        (*Engine).handleContentLoaded,
	channel.ActionRenegotiate:          (*Engine).handleRenegotiate,
	channel.ActionSendEvent:            (*Engine).handleSendEvent,
	channel.ActionUpdateDelayedEvent:   (*Engine).handleUpdateDelayedEvent,
	channel.ActionSendToDevice:         (*Engine).handleSendToDevice,
	channel.ActionReadEvents:           (*Engine).handleReadEvents,
	channel.ActionReadState:            (*Engine).handleReadState,
	channel.ActionReadRelations:        (*Engine).handleReadRelations,
	channel.ActionReadRoomAccountData:  (*Engine).handleReadRoomAccountData,
	channel.ActionReadStickyOverlay:    (*Engine).handleReadStickyOverlay,
	channel.ActionKnownRooms:           (*Engine).handleKnownRooms,
	channel.ActionGetOpenID:            (*Engine).handleGetOpenID,
	channel.ActionWatchCredentials:     (*Engine).handleWatchCredentials,
	channel.ActionUnwatchCredentials:   (*Engine).handleUnwatchCredentials,
	channel.ActionNavigate:             (*Engine).handleNavigate,
	channel.ActionUserDirectorySearch:  (*Engine).handleUserDirectorySearch,
	channel.ActionGetMediaConfig:       (*Engine).handleGetMediaConfig,
	channel.ActionUploadFile:           (*Engine).handleUploadFile,
	channel.ActionDownloadFile:         (*Engine).handleDownloadFile,
}

func (e *Engine) dispatch(request *channel.Envelope) {
	ctx := e.ctx

	handler, known := handlers[request.Action]
	if !known {
		e.replyError(ctx, request, errUnknownAction(request.Action), nil)
		return
	}
	if !preReadyActions[request.Action] && e.State() != StateReady {
		e.replyError(ctx, request, errNotReady, nil)
		return
	}

	if err := handler(e, ctx, request); err != nil {
		e.logger.Debug("reply not delivered",
			"action", request.Action, "requestId", request.RequestID, "error", err)
		return
	}
	e.events.Publish(request.Action, request)
}

// reply helpers

func (e *Engine) reply(ctx context.Context, request *channel.Envelope, response any) error {
	return e.channel.Reply(ctx, request, response)
}

func (e *Engine) replyError(ctx context.Context, request *channel.Envelope, message string, detail map[string]any) {
	if err := e.channel.ReplyError(ctx, request, message, detail); err != nil {
		e.logger.Debug("error reply not delivered",
			"action", request.Action, "requestId", request.RequestID, "error", err)
	}
}

// replyDriverError translates a Driver failure into an error reply:
// the fixed contextual message plus whatever detail the Driver's own
// extractor produces. Raw Driver errors never propagate further.
func (e *Engine) replyDriverError(ctx context.Context, request *channel.Envelope, message string, err error) {
	e.logger.Debug("driver call failed",
		"action", request.Action, "requestId", request.RequestID, "error", err)
	e.replyError(ctx, request, message, e.driver.ErrorDetail(err))
}

// checkRoomID parses a request's room ID field, answering the request
// with a validation error when it is missing or malformed. Returns
// false when the request was already answered.
func (e *Engine) checkRoomID(ctx context.Context, request *channel.Envelope, raw string) bool {
	if raw == "" {
		e.replyError(ctx, request, errInvalidRequest("missing room ID"), nil)
		return false
	}
	if _, err := ref.ParseRoomID(raw); err != nil {
		e.replyError(ctx, request, errInvalidRequest(fmt.Sprintf("malformed room ID: %s", raw)), nil)
		return false
	}
	return true
}

// lifecycle actions

func (e *Engine) handleSupportedVersions(ctx context.Context, request *channel.Envelope) error {
	response := schema.SupportedVersionsResponse{SupportedVersions: channel.SupportedVersions()}
	return e.reply(ctx, request, response)
}

func (e *Engine) handleContentLoaded(ctx context.Context, request *channel.Envelope) error {
	e.contentSignaledReady()
	return e.reply(ctx, request, struct{}{})
}

func (e *Engine) handleRenegotiate(ctx context.Context, request *channel.Envelope) error {
	var body schema.RenegotiateRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed capability list"), nil)
		return nil
	}
	e.renegotiate(capability.FromStrings(body.Capabilities))
	return e.reply(ctx, request, struct{}{})
}

// event actions

func (e *Engine) handleSendEvent(ctx context.Context, request *channel.Envelope) error {
	var body schema.SendEventRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed send body"), nil)
		return nil
	}
	if body.Type == "" {
		e.replyError(ctx, request, errInvalidRequest("missing event type"), nil)
		return nil
	}
	if !e.checkRoomID(ctx, request, body.RoomID) {
		return nil
	}
	if body.Delay != nil && *body.Delay < 0 {
		e.replyError(ctx, request, errInvalidRequest("negative delay"), nil)
		return nil
	}

	if !e.allowsTimeline(ctx, body.RoomID) {
		e.replyError(ctx, request, errTimelineAccess(body.RoomID), nil)
		return nil
	}
	if !e.allowsSend(body) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	if body.Delayed() {
		if !e.caps.Has(capability.SendDelayedEvent) {
			e.replyError(ctx, request, errMissingCapability, nil)
			return nil
		}
		response, err := e.driver.SendDelayedEvent(ctx,
			body.Delay, body.ParentDelayID, body.Type, body.Content, body.StateKey, body.RoomID)
		if err != nil {
			e.replyDriverError(ctx, request, "Failed to send delayed event", err)
			return nil
		}
		return e.reply(ctx, request, response)
	}

	response, err := e.driver.SendEvent(ctx, body.Type, body.Content, body.StateKey, body.RoomID)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to send event", err)
		return nil
	}
	return e.reply(ctx, request, response)
}

// allowsSend checks the send capability for one outgoing event, using
// the state key or message subtype as the secondary key.
func (e *Engine) allowsSend(body schema.SendEventRequest) bool {
	kind := capability.KindEvent
	key := ""
	hasKey := false
	if body.StateKey != nil {
		kind = capability.KindState
		key = *body.StateKey
		hasKey = true
	} else if raw, ok := body.Content["msgtype"]; ok {
		if s, isString := raw.(string); isString {
			key = s
			hasKey = true
		}
	}
	return e.caps.AllowsEvent(capability.Send, kind, body.Type, key, hasKey)
}

func (e *Engine) handleUpdateDelayedEvent(ctx context.Context, request *channel.Envelope) error {
	var body schema.UpdateDelayedEventRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed update body"), nil)
		return nil
	}
	if body.DelayID == "" {
		e.replyError(ctx, request, errInvalidRequest("missing delay ID"), nil)
		return nil
	}
	switch body.Action {
	case schema.DelayedActionCancel, schema.DelayedActionRestart, schema.DelayedActionFire:
	default:
		e.replyError(ctx, request,
			errInvalidRequest(fmt.Sprintf("unsupported delayed event action: %s", body.Action)), nil)
		return nil
	}
	if !e.caps.Has(capability.SendDelayedEvent) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	if err := e.driver.UpdateDelayedEvent(ctx, body.DelayID, body.Action); err != nil {
		e.replyDriverError(ctx, request, "Failed to update delayed event", err)
		return nil
	}
	return e.reply(ctx, request, struct{}{})
}

func (e *Engine) handleSendToDevice(ctx context.Context, request *channel.Envelope) error {
	var body schema.SendToDeviceRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed to-device body"), nil)
		return nil
	}
	if body.Type == "" {
		e.replyError(ctx, request, errInvalidRequest("missing message type"), nil)
		return nil
	}
	if len(body.Messages) == 0 {
		e.replyError(ctx, request, errInvalidRequest("no messages to send"), nil)
		return nil
	}
	for target := range body.Messages {
		if _, err := ref.ParseUserID(target); err != nil {
			e.replyError(ctx, request, errInvalidRequest(fmt.Sprintf("malformed target user ID: %s", target)), nil)
			return nil
		}
	}
	if !e.caps.AllowsEvent(capability.Send, capability.KindToDevice, body.Type, "", false) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	if err := e.driver.SendToDevice(ctx, &body); err != nil {
		e.replyDriverError(ctx, request, "Failed to send to-device message", err)
		return nil
	}
	return e.reply(ctx, request, struct{}{})
}

// read actions

func (e *Engine) handleReadEvents(ctx context.Context, request *channel.Envelope) error {
	var body schema.ReadEventsRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed read body"), nil)
		return nil
	}
	if body.Type == "" {
		e.replyError(ctx, request, errInvalidRequest("missing event type"), nil)
		return nil
	}
	key := ""
	hasKey := false
	if body.MsgType != nil {
		key = *body.MsgType
		hasKey = true
	}
	if !e.caps.AllowsEvent(capability.Receive, capability.KindEvent, body.Type, key, hasKey) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}
	for _, roomID := range body.RoomIDs {
		if !e.checkRoomID(ctx, request, roomID) {
			return nil
		}
		if !e.allowsTimeline(ctx, roomID) {
			e.replyError(ctx, request, errTimelineAccess(roomID), nil)
			return nil
		}
	}

	events, err := e.driver.ReadEvents(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to read events", err)
		return nil
	}
	return e.reply(ctx, request, schema.ReadEventsResponse{Events: emptyAsList(events)})
}

func (e *Engine) handleReadState(ctx context.Context, request *channel.Envelope) error {
	var body schema.ReadStateRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed read body"), nil)
		return nil
	}
	if body.Type == "" {
		e.replyError(ctx, request, errInvalidRequest("missing event type"), nil)
		return nil
	}
	key := ""
	hasKey := false
	if body.StateKey != nil {
		key = *body.StateKey
		hasKey = true
	}
	if !e.caps.AllowsEvent(capability.Receive, capability.KindState, body.Type, key, hasKey) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}
	for _, roomID := range body.RoomIDs {
		if !e.checkRoomID(ctx, request, roomID) {
			return nil
		}
		if !e.allowsTimeline(ctx, roomID) {
			e.replyError(ctx, request, errTimelineAccess(roomID), nil)
			return nil
		}
	}

	events, err := e.driver.ReadState(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to read state", err)
		return nil
	}
	return e.reply(ctx, request, schema.ReadStateResponse{Events: emptyAsList(events)})
}

func (e *Engine) handleReadRelations(ctx context.Context, request *channel.Envelope) error {
	var body schema.ReadRelationsRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed relations body"), nil)
		return nil
	}
	if body.EventID == "" {
		e.replyError(ctx, request, errInvalidRequest("missing event ID"), nil)
		return nil
	}
	if !e.checkRoomID(ctx, request, body.RoomID) {
		return nil
	}
	if !e.allowsTimeline(ctx, body.RoomID) {
		e.replyError(ctx, request, errTimelineAccess(body.RoomID), nil)
		return nil
	}

	response, err := e.driver.ReadRelations(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to read relations", err)
		return nil
	}
	// Related events still go through the receive filter one by one.
	filtered := &schema.ReadRelationsResponse{
		Chunk:     make([]schema.Event, 0, len(response.Chunk)),
		NextBatch: response.NextBatch,
	}
	for _, event := range response.Chunk {
		if e.allowsEventReceive(event) {
			filtered.Chunk = append(filtered.Chunk, event)
		}
	}
	return e.reply(ctx, request, filtered)
}

func (e *Engine) handleReadRoomAccountData(ctx context.Context, request *channel.Envelope) error {
	var body schema.ReadRoomAccountDataRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed account data body"), nil)
		return nil
	}
	if body.Type == "" {
		e.replyError(ctx, request, errInvalidRequest("missing event type"), nil)
		return nil
	}
	if !e.caps.AllowsEvent(capability.Receive, capability.KindAccountData, body.Type, "", false) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	events, err := e.driver.ReadRoomAccountData(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to read account data", err)
		return nil
	}
	return e.reply(ctx, request, schema.ReadRoomAccountDataResponse{Events: emptyAsList(events)})
}

func (e *Engine) handleReadStickyOverlay(ctx context.Context, request *channel.Envelope) error {
	var body schema.ReadStickyOverlayRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed overlay body"), nil)
		return nil
	}
	if !e.checkRoomID(ctx, request, body.RoomID) {
		return nil
	}
	if !e.allowsTimeline(ctx, body.RoomID) {
		e.replyError(ctx, request, errTimelineAccess(body.RoomID), nil)
		return nil
	}

	entries := e.overlay.Fresh(body.RoomID)
	filtered := make([]schema.StickyEvent, 0, len(entries))
	for _, entry := range entries {
		if e.allowsEventReceive(entry.Event) {
			filtered = append(filtered, entry)
		}
	}
	return e.reply(ctx, request, schema.ReadStickyOverlayResponse{Events: filtered})
}

func (e *Engine) handleKnownRooms(ctx context.Context, request *channel.Envelope) error {
	if !e.caps.Has(capability.KnownRooms) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}
	rooms, err := e.driver.KnownRooms(ctx)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to list rooms", err)
		return nil
	}
	if rooms == nil {
		rooms = []string{}
	}
	return e.reply(ctx, request, schema.KnownRoomsResponse{Rooms: rooms})
}

// host services

func (e *Engine) handleNavigate(ctx context.Context, request *channel.Envelope) error {
	var body schema.NavigateRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed navigate body"), nil)
		return nil
	}
	if body.URI == "" {
		e.replyError(ctx, request, errInvalidRequest("missing URI"), nil)
		return nil
	}
	if !e.caps.Has(capability.Navigate) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	if err := e.driver.Navigate(ctx, body.URI); err != nil {
		e.replyDriverError(ctx, request, "Failed to navigate", err)
		return nil
	}
	return e.reply(ctx, request, struct{}{})
}

func (e *Engine) handleUserDirectorySearch(ctx context.Context, request *channel.Envelope) error {
	var body schema.UserDirectorySearchRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed search body"), nil)
		return nil
	}
	if !e.caps.Has(capability.SearchUsers) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	limit := 0
	if body.Limit != nil {
		limit = *body.Limit
	}
	response, err := e.driver.SearchUsers(ctx, body.SearchTerm, limit)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to search user directory", err)
		return nil
	}
	return e.reply(ctx, request, response)
}

func (e *Engine) handleGetMediaConfig(ctx context.Context, request *channel.Envelope) error {
	if !e.caps.Has(capability.MediaConfig) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}
	config, err := e.driver.MediaConfig(ctx)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to read media config", err)
		return nil
	}
	return e.reply(ctx, request, config)
}

func (e *Engine) handleUploadFile(ctx context.Context, request *channel.Envelope) error {
	var body schema.UploadFileRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed upload body"), nil)
		return nil
	}
	if !e.caps.Has(capability.UploadFile) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	response, err := e.driver.UploadFile(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to upload file", err)
		return nil
	}
	return e.reply(ctx, request, response)
}

func (e *Engine) handleDownloadFile(ctx context.Context, request *channel.Envelope) error {
	var body schema.DownloadFileRequest
	if err := request.DecodeData(&body); err != nil {
		e.replyError(ctx, request, errInvalidRequest("malformed download body"), nil)
		return nil
	}
	if body.ContentURI == "" {
		e.replyError(ctx, request, errInvalidRequest("missing content URI"), nil)
		return nil
	}
	if !e.caps.Has(capability.DownloadFile) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	response, err := e.driver.DownloadFile(ctx, &body)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to download file", err)
		return nil
	}
	return e.reply(ctx, request, response)
}

// emptyAsList normalizes nil slices so the reply carries [] instead of
// null.
func emptyAsList(events []schema.Event) []schema.Event {
	if events == nil {
		return []schema.Event{}
	}
	return events
}
