// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"context"
	"fmt"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// knownPushes are the host actions the engine acknowledges generically
// when the application has not registered its own handler. Anything
// outside this set without a handler is an unknown action.
var knownPushes = map[string]bool{
	channel.ActionNotifyReady:       true,
	channel.ActionUpdateVisibility:  true,
	channel.ActionSendEvent:         true,
	channel.ActionUpdateState:       true,
	channel.ActionOpenIDCredentials: true,
	channel.ActionUpdateCredentials: true,
}

// handleRequest is the channel's inbound-request callback. Negotiation
// actions have built-in handling; everything else goes to the
// registered handler or the generic acknowledgment.
func (e *Engine) handleRequest(request *channel.Envelope) {
	go func() {
		ctx := context.Background()
		switch request.Action {
		case channel.ActionSupportedAPIVersions:
			e.replyOrLog(ctx, request,
				schema.SupportedVersionsResponse{SupportedVersions: channel.SupportedVersions()})
			return
		case channel.ActionCapabilities:
			e.mu.Lock()
			declared := capability.Strings(e.declared)
			e.mu.Unlock()
			e.replyOrLog(ctx, request, schema.CapabilitiesResponse{Capabilities: declared})
			return
		case channel.ActionNotifyCapabilities:
			e.recordApproved(request)
		}
		e.dispatchPush(ctx, request)
	}()
}

// recordApproved folds the host's approval notice into the granted
// set before the notice reaches any application handler.
func (e *Engine) recordApproved(request *channel.Envelope) {
	var notice schema.NotifyCapabilitiesRequest
	if err := request.DecodeData(&notice); err != nil {
		e.logger.Debug("malformed capability notice", "error", err)
		return
	}
	e.granted.AddAll(capability.FromStrings(notice.Approved))
}

func (e *Engine) dispatchPush(ctx context.Context, request *channel.Envelope) {
	e.mu.Lock()
	handler := e.handlers[request.Action]
	e.mu.Unlock()

	if handler == nil {
		if knownPushes[request.Action] || request.Action == channel.ActionNotifyCapabilities {
			e.replyOrLog(ctx, request, struct{}{})
			return
		}
		e.replyErrorOrLog(ctx, request, fmt.Sprintf("Unknown action: %s", request.Action))
		return
	}

	response, err := handler(ctx, request)
	if err != nil {
		e.replyErrorOrLog(ctx, request, err.Error())
		return
	}
	if response == nil {
		response = struct{}{}
	}
	e.replyOrLog(ctx, request, response)
}

func (e *Engine) replyOrLog(ctx context.Context, request *channel.Envelope, response any) {
	if err := e.channel.Reply(ctx, request, response); err != nil {
		e.logger.Debug("reply not delivered",
			"action", request.Action, "requestId", request.RequestID, "error", err)
	}
}

func (e *Engine) replyErrorOrLog(ctx context.Context, request *channel.Envelope, message string) {
	if err := e.channel.ReplyError(ctx, request, message, nil); err != nil {
		e.logger.Debug("error reply not delivered",
			"action", request.Action, "requestId", request.RequestID, "error", err)
	}
}
