// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/lib/flow"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// ErrNotImplemented is returned by every UnimplementedDriver method.
// An action reaching an unimplemented driver method fails loudly
// through the normal error reply path instead of pretending to work.
var ErrNotImplemented = errors.New("host: driver method not implemented")

// Driver is the application's implementation of each permitted
// action's real effect. The Engine performs all validation and
// capability checks before calling a Driver method; a Driver method is
// only ever invoked for a request the content was entitled to make.
//
// Errors returned by Driver methods never propagate out of the
// Engine: each is passed through ErrorDetail and sent back to the
// content as an error reply with a fixed contextual message.
//
// Applications should embed UnimplementedDriver and override the
// methods they support.
type Driver interface {
	// ValidateCapabilities decides which of the capabilities the
	// content asked for are actually granted. Typically this is a
	// policy lookup or a user prompt. Returning a subset (including
	// an empty one) is normal operation, not an error.
	ValidateCapabilities(ctx context.Context, requested []capability.Capability) ([]capability.Capability, error)

	// SendEvent sends an immediate room or state event on behalf of
	// the content. stateKey is nil for non-state events.
	SendEvent(ctx context.Context, eventType string, content map[string]any, stateKey *string, roomID string) (*schema.SendEventResponse, error)

	// SendDelayedEvent schedules a deferred send and returns a
	// response carrying the handle id for later cancel/restart/fire.
	// Exactly the fields of an immediate send plus the deferral:
	// delay in milliseconds (nil when only grouping) and the optional
	// parent grouping id.
	SendDelayedEvent(ctx context.Context, delay *int64, parentDelayID *string, eventType string, content map[string]any, stateKey *string, roomID string) (*schema.SendEventResponse, error)

	// UpdateDelayedEvent drives a previously returned deferred-action
	// handle. action is one of schema.DelayedActionCancel, Restart,
	// Fire; the Engine rejects anything else before this call.
	// Unknown handle ids are the Driver's responsibility to reject.
	UpdateDelayedEvent(ctx context.Context, delayID, action string) error

	// SendToDevice sends a to-device message batch.
	SendToDevice(ctx context.Context, request *schema.SendToDeviceRequest) error

	// ReadEvents returns recent room events matching the request. The
	// Engine has already checked the receive capability for the type
	// and the timeline capability for every requested room.
	ReadEvents(ctx context.Context, request *schema.ReadEventsRequest) ([]schema.Event, error)

	// ReadState returns current room state entries matching the
	// request.
	ReadState(ctx context.Context, request *schema.ReadStateRequest) ([]schema.Event, error)

	// ReadRelations returns one page of events related to the named
	// event.
	ReadRelations(ctx context.Context, request *schema.ReadRelationsRequest) (*schema.ReadRelationsResponse, error)

	// ReadRoomAccountData returns per-room account data entries of
	// the requested type.
	ReadRoomAccountData(ctx context.Context, request *schema.ReadRoomAccountDataRequest) ([]schema.Event, error)

	// VerifyIdentity runs the identity-verification exchange. The
	// Driver pushes updates into the feed: either an immediate
	// terminal verdict (granted with a credential, or blocked), or
	// first a pending state followed later by the asynchronous
	// verdict. The Driver must not retain the feed after pushing a
	// terminal verdict. Returning an error before any update fails
	// the request.
	VerifyIdentity(ctx context.Context, updates *flow.Feed[schema.IdentityUpdate]) error

	// Credentials opens the streaming credential sequence. The Engine
	// pulls it until it is exhausted or the content unwatches, at
	// which point the Engine closes it.
	Credentials(ctx context.Context) (flow.Cursor[schema.Credential], error)

	// Navigate steers the host application to the given URI.
	Navigate(ctx context.Context, uri string) error

	// SearchUsers queries the user directory.
	SearchUsers(ctx context.Context, searchTerm string, limit int) (*schema.UserDirectorySearchResponse, error)

	// MediaConfig returns the host's media limits.
	MediaConfig(ctx context.Context) (*schema.MediaConfig, error)

	// UploadFile stores content and returns its URI.
	UploadFile(ctx context.Context, request *schema.UploadFileRequest) (*schema.UploadFileResponse, error)

	// DownloadFile fetches previously stored content.
	DownloadFile(ctx context.Context, request *schema.DownloadFileRequest) (*schema.DownloadFileResponse, error)

	// KnownRooms lists the rooms the host is willing to reveal to the
	// content. The wildcard timeline capability resolves against this
	// set.
	KnownRooms(ctx context.Context) ([]string, error)

	// ErrorDetail translates a Driver error into structured detail
	// fields for the error reply, or nil for none.
	ErrorDetail(err error) map[string]any
}

// UnimplementedDriver fails every action with ErrNotImplemented and
// approves no capabilities. Embed it to get default-deny behavior for
// everything you do not override.
type UnimplementedDriver struct{}

var _ Driver = UnimplementedDriver{}

func (UnimplementedDriver) ValidateCapabilities(context.Context, []capability.Capability) ([]capability.Capability, error) {
	return nil, nil
}

func (UnimplementedDriver) SendEvent(context.Context, string, map[string]any, *string, string) (*schema.SendEventResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) SendDelayedEvent(context.Context, *int64, *string, string, map[string]any, *string, string) (*schema.SendEventResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) UpdateDelayedEvent(context.Context, string, string) error {
	return ErrNotImplemented
}

func (UnimplementedDriver) SendToDevice(context.Context, *schema.SendToDeviceRequest) error {
	return ErrNotImplemented
}

func (UnimplementedDriver) ReadEvents(context.Context, *schema.ReadEventsRequest) ([]schema.Event, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) ReadState(context.Context, *schema.ReadStateRequest) ([]schema.Event, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) ReadRelations(context.Context, *schema.ReadRelationsRequest) (*schema.ReadRelationsResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) ReadRoomAccountData(context.Context, *schema.ReadRoomAccountDataRequest) ([]schema.Event, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) VerifyIdentity(context.Context, *flow.Feed[schema.IdentityUpdate]) error {
	return ErrNotImplemented
}

func (UnimplementedDriver) Credentials(context.Context) (flow.Cursor[schema.Credential], error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) Navigate(context.Context, string) error {
	return ErrNotImplemented
}

func (UnimplementedDriver) SearchUsers(context.Context, string, int) (*schema.UserDirectorySearchResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) MediaConfig(context.Context) (*schema.MediaConfig, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) UploadFile(context.Context, *schema.UploadFileRequest) (*schema.UploadFileResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) DownloadFile(context.Context, *schema.DownloadFileRequest) (*schema.DownloadFileResponse, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) KnownRooms(context.Context) ([]string, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedDriver) ErrorDetail(error) map[string]any { return nil }
