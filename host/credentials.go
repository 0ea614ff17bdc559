// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/flow"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// handleWatchCredentials starts the streaming credential refresh. The
// first credential is pulled synchronously: an immediately exhausted
// sequence fails the request and the watch is never marked active.
// Otherwise the request is acknowledged, the first credential is
// pushed, and a background loop keeps pulling and pushing until the
// sequence ends or the content unwatches. Watching while a watch is
// already active is an acknowledged no-op.
func (e *Engine) handleWatchCredentials(ctx context.Context, request *channel.Envelope) error {
	if !e.caps.Has(capability.StreamCredentials) {
		e.replyError(ctx, request, errMissingCapability, nil)
		return nil
	}

	e.mu.Lock()
	active := e.watch != nil
	e.mu.Unlock()
	if active {
		return e.reply(ctx, request, struct{}{})
	}

	cursor, err := e.driver.Credentials(ctx)
	if err != nil {
		e.replyDriverError(ctx, request, "Failed to watch credentials", err)
		return nil
	}

	first, ok, err := cursor.Next(ctx)
	if err != nil || !ok {
		if closeErr := cursor.Close(); closeErr != nil {
			e.logger.Debug("closing exhausted credential cursor", "error", closeErr)
		}
		if err != nil && !errors.Is(err, flow.ErrCursorClosed) {
			e.replyDriverError(ctx, request, errNoCredentials, err)
		} else {
			e.replyError(ctx, request, errNoCredentials, nil)
		}
		return nil
	}

	e.mu.Lock()
	if e.state == StateStopped || e.watch != nil {
		// Lost the race against Stop or a concurrent watch.
		concurrent := e.watch != nil
		e.mu.Unlock()
		if closeErr := cursor.Close(); closeErr != nil {
			e.logger.Debug("closing superseded credential cursor", "error", closeErr)
		}
		if concurrent {
			return e.reply(ctx, request, struct{}{})
		}
		e.replyError(ctx, request, errNotReady, nil)
		return nil
	}
	e.watch = cursor
	e.mu.Unlock()

	if err := e.reply(ctx, request, struct{}{}); err != nil {
		return err
	}
	e.pushCredential(ctx, first)
	go e.pumpCredentials(cursor)
	return nil
}

// handleUnwatchCredentials closes the active watch, signalling the
// Driver to stop producing. Unwatching when no watch is active is an
// acknowledged no-op.
func (e *Engine) handleUnwatchCredentials(ctx context.Context, request *channel.Envelope) error {
	e.mu.Lock()
	cursor := e.watch
	e.watch = nil
	e.mu.Unlock()

	if cursor != nil {
		if err := cursor.Close(); err != nil {
			e.logger.Debug("closing credential cursor", "error", err)
		}
	}
	return e.reply(ctx, request, struct{}{})
}

// pumpCredentials is the background pull loop: as fast as the sequence
// yields, each credential is pushed to the content. The loop ends when
// the cursor closes (unwatch, Driver exhaustion) or the engine stops.
func (e *Engine) pumpCredentials(cursor flow.Cursor[schema.Credential]) {
	for {
		credential, ok, err := cursor.Next(e.ctx)
		if err != nil || !ok {
			if err != nil && !errors.Is(err, flow.ErrCursorClosed) && !errors.Is(err, context.Canceled) {
				e.logger.Debug("credential stream failed", "error", err)
			}
			break
		}
		e.pushCredential(e.ctx, credential)
	}

	e.mu.Lock()
	if e.watch == cursor {
		e.watch = nil
	}
	e.mu.Unlock()
	if err := cursor.Close(); err != nil {
		e.logger.Debug("closing credential cursor", "error", err)
	}
}

// pushCredential delivers one credential, re-checking the capability
// against the current grant set at send time.
func (e *Engine) pushCredential(ctx context.Context, credential schema.Credential) {
	if !e.caps.Has(capability.StreamCredentials) {
		return
	}
	if _, err := e.channel.Send(ctx, channel.ActionUpdateCredentials, credential); err != nil {
		e.logger.Debug("credential push not delivered", "error", err)
	}
}
