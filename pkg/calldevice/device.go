// Package calldevice holds the domain types for the device a call is
// routed to. Device registration itself (CRUD, token lifecycle) is an
// external collaborator's responsibility; this package only defines the
// read-only shape the rendezvous engine consumes.
package calldevice

import "context"

// Platform identifies which push transport serves a device.
type Platform string

const (
	PlatformAPNS    Platform = "apns"
	PlatformAndroid Platform = "android" // FCM
	PlatformGCM     Platform = "gcm"     // legacy GCM
	PlatformWebPush Platform = "webpush"
	PlatformUnknown Platform = "unknown"
)

// Device is the external entity the rendezvous engine routes a call to.
type Device struct {
	SipUserID            string
	PushToken            string
	Platform             Platform
	Sandbox              bool
	AppPushCredentialRef string
}

// Repository resolves a Device by its sip_user_id. Registration and
// mutation of devices are out of scope for this module; Repository is a
// read-only contract against an external device directory.
type Repository interface {
	// Get returns the device routed to sipUserID, or ErrNotFound.
	Get(ctx context.Context, sipUserID string) (Device, error)
}

// ErrNotFound is returned by Repository.Get when no device is registered
// for the given sip_user_id.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "calldevice: no device registered for sip_user_id" }
