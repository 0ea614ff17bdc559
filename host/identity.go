// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"

	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/lib/flow"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// handleGetOpenID runs the phased identity-verification exchange.
//
// Phase 1: the Driver is handed a fresh feed and may push an immediate
// terminal verdict, which is replied directly to the request. If it
// pushes a pending state instead, the pending state is replied and the
// exchange enters phase 2.
//
// Phase 2: the engine awaits the asynchronous verdict and pushes it as
// a new message correlated by the original request id; the original
// request was already answered with pending and stays logically open
// on the content side until that push arrives.
//
// Driver contract violations are normalized rather than surfaced: a
// granted verdict without a credential becomes blocked, a blocked
// verdict never carries a token, and a feed closed without a terminal
// verdict counts as blocked.
func (e *Engine) handleGetOpenID(ctx context.Context, request *channel.Envelope) error {
	updates := flow.NewFeed[schema.IdentityUpdate]()

	driverDone := make(chan error, 1)
	go func() {
		driverDone <- e.driver.VerifyIdentity(ctx, updates)
	}()

	verdict, err := e.awaitIdentityUpdate(ctx, updates, driverDone)
	if err != nil {
		updates.Close()
		e.replyDriverError(ctx, request, "Failed to verify identity", err)
		return nil
	}

	if verdict.State != schema.OpenIDPending {
		// Terminal in phase 1: the feed is done; any verdict the
		// Driver tries to push afterwards fails with ErrFeedClosed.
		updates.Close()
		return e.reply(ctx, request, identityReply(verdict, ""))
	}

	// Phase 2: reply pending, then await the real verdict in the
	// background and push it correlated to this request.
	if err := e.reply(ctx, request, identityReply(verdict, "")); err != nil {
		return err
	}
	go e.awaitIdentityVerdict(ctx, request.RequestID, updates, driverDone)
	return nil
}

// awaitIdentityUpdate pulls the next update, treating a closed feed or
// a Driver error before any update as a failure surface. Feed closure
// after at least one known state is handled by the callers.
func (e *Engine) awaitIdentityUpdate(ctx context.Context, updates *flow.Feed[schema.IdentityUpdate], driverDone <-chan error) (schema.IdentityUpdate, error) {
	update, err := updates.Next(ctx)
	if err == nil {
		return normalizeIdentityUpdate(update), nil
	}
	if errors.Is(err, flow.ErrFeedClosed) {
		// The Driver finished without a verdict. A clean return is a
		// contract violation surfaced as blocked; an error return is
		// a real failure.
		select {
		case driverErr := <-driverDone:
			if driverErr != nil {
				return schema.IdentityUpdate{}, driverErr
			}
		default:
		}
		return schema.IdentityUpdate{State: schema.OpenIDBlocked}, nil
	}
	return schema.IdentityUpdate{}, err
}

// awaitIdentityVerdict is the phase-2 tail: it waits for the terminal
// verdict and pushes it to the content, correlated by the original
// request id. Runs until the verdict arrives or the engine stops.
func (e *Engine) awaitIdentityVerdict(ctx context.Context, originalRequestID string, updates *flow.Feed[schema.IdentityUpdate], driverDone <-chan error) {
	verdict, err := e.awaitIdentityUpdate(ctx, updates, driverDone)
	if err != nil {
		e.logger.Debug("identity verification failed after pending",
			"originalRequestId", originalRequestID, "error", err)
		verdict = schema.IdentityUpdate{State: schema.OpenIDBlocked}
	}
	if verdict.State == schema.OpenIDPending {
		// A second pending is not a verdict; the Driver broke the
		// phase contract. Block rather than leave the content waiting
		// forever.
		verdict = schema.IdentityUpdate{State: schema.OpenIDBlocked}
	}
	updates.Close()

	push := identityReply(verdict, originalRequestID)
	if _, err := e.channel.Send(ctx, channel.ActionOpenIDCredentials, push); err != nil {
		e.logger.Debug("identity verdict push not delivered",
			"originalRequestId", originalRequestID, "error", err)
	}
}

// normalizeIdentityUpdate enforces the Driver contract on a single
// update: granted requires a usable credential, blocked strips any
// credential erroneously attached.
func normalizeIdentityUpdate(update schema.IdentityUpdate) schema.IdentityUpdate {
	switch update.State {
	case schema.OpenIDGranted:
		if update.Credential == nil || update.Credential.AccessToken == "" {
			return schema.IdentityUpdate{State: schema.OpenIDBlocked}
		}
	case schema.OpenIDBlocked, schema.OpenIDPending:
		update.Credential = nil
	default:
		return schema.IdentityUpdate{State: schema.OpenIDBlocked}
	}
	return update
}

// identityReply builds the wire body for a reply (empty request id) or
// a correlated push.
func identityReply(update schema.IdentityUpdate, originalRequestID string) schema.OpenIDState {
	state := schema.OpenIDState{
		State:             update.State,
		OriginalRequestID: originalRequestID,
	}
	if update.State == schema.OpenIDGranted && update.Credential != nil {
		state.AccessToken = update.Credential.AccessToken
		state.TokenType = update.Credential.TokenType
		state.ServerName = update.Credential.ServerName
		state.ExpiresIn = update.Credential.ExpiresIn
	}
	return state
}
