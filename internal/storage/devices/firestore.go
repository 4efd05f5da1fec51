// --- File: internal/storage/devices/firestore.go ---
// Package devices provides the read-only device directory lookup the
// Coordinator needs to resolve a sip_user_id to a push-capable Device.
// Device registration (writes) live in an external collaborator per
// spec.md §1; this package only implements the read path.
package devices

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// document mirrors how the device directory stores a record: one
// document per sip_user_id, keyed by the id itself.
type document struct {
	PushToken            string `firestore:"push_token"`
	Platform             string `firestore:"platform"`
	Sandbox              bool   `firestore:"sandbox"`
	AppPushCredentialRef string `firestore:"app_push_credential_ref"`
}

// Repository is a Firestore-backed calldevice.Repository.
type Repository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewRepository wraps an already-connected Firestore client.
func NewRepository(client *firestore.Client, collection string, logger *slog.Logger) *Repository {
	return &Repository{
		client:     client,
		collection: collection,
		logger:     logger.With("component", "DeviceRepository"),
	}
}

func (r *Repository) Get(ctx context.Context, sipUserID string) (calldevice.Device, error) {
	snap, err := r.client.Collection(r.collection).Doc(sipUserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return calldevice.Device{}, calldevice.ErrNotFound
		}
		r.logger.Error("Failed to fetch device", "err", err, "sip_user_id", sipUserID)
		return calldevice.Device{}, fmt.Errorf("fetch device: %w", err)
	}

	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return calldevice.Device{}, fmt.Errorf("decode device document: %w", err)
	}

	return calldevice.Device{
		SipUserID:            sipUserID,
		PushToken:            doc.PushToken,
		Platform:             calldevice.Platform(doc.Platform),
		Sandbox:              doc.Sandbox,
		AppPushCredentialRef: doc.AppPushCredentialRef,
	}, nil
}
