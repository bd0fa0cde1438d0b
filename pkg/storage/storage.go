// Package storage persists the boundary data the estimation engine
// consumes: household usage snapshots, materialized offer templates, offer
// metadata, and delivery rate tables. The engine itself never performs I/O;
// callers load from here and hand the engine in-memory values.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/ratewise/ratewise/pkg/types"
)

var (
	ErrSnapshotNotFound = errors.New("usage snapshot not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrOfferNotFound    = errors.New("offer not found")
)

// Template is a pipeline-materialized, ready-to-evaluate rate structure for
// one offer. Rate has already passed construction-time validation; the
// boundary rejects malformed structures before they are stored.
type Template struct {
	OfferID string              `json:"offerID"`
	Rate    types.RateStructure `json:"-"`
}

// Database defines the interface for persisting boundary data.
type Database interface {
	// Usage
	GetUsageSnapshot(ctx context.Context, householdID string, window time.Duration) (types.UsageSnapshot, error)
	UpsertUsageIntervals(ctx context.Context, householdID string, intervals []types.UsageInterval) error

	// Templates
	GetTemplate(ctx context.Context, offerID string) (Template, error)
	SetTemplate(ctx context.Context, tmpl Template) error

	// Offers
	GetOffer(ctx context.Context, offerID string) (types.Offer, error)
	ListOffers(ctx context.Context) ([]types.Offer, error)
	UpsertOffer(ctx context.Context, offer types.Offer) error

	// Delivery rates
	GetDeliveryRates(ctx context.Context, deliverySlug string) ([]types.DeliveryRate, error)
	UpsertDeliveryRate(ctx context.Context, deliverySlug string, rate types.DeliveryRate) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
