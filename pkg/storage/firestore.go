package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/ratewise/ratewise/pkg/log"
	"github.com/ratewise/ratewise/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Usage intervals live in a per-household subcollection keyed by
// timestamp so trailing-window reads are document ID range queries.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up flags for the Firestore provider.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID may be empty if it can be inferred from the environment.
	return nil
}

// Init initializes the Firestore client. It must be called before any other
// provider method.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) intervalsCollection(householdID string) (*firestore.CollectionRef, error) {
	if householdID == "" {
		return nil, fmt.Errorf("householdID cannot be empty")
	}
	return f.client.Collection("households").Doc(householdID).Collection("intervals"), nil
}

// GetUsageSnapshot reads the household's intervals for the trailing window,
// ordered by timestamp. ErrSnapshotNotFound is returned when the household
// has no readings at all in the window.
func (f *FirestoreProvider) GetUsageSnapshot(ctx context.Context, householdID string, window time.Duration) (types.UsageSnapshot, error) {
	coll, err := f.intervalsCollection(householdID)
	if err != nil {
		return types.UsageSnapshot{}, err
	}

	start := time.Now().Add(-window).UTC().Format(time.RFC3339)
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	snapshot := types.UsageSnapshot{HouseholdID: householdID}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return types.UsageSnapshot{}, fmt.Errorf("error iterating intervals: %w", err)
		}

		var iv types.UsageInterval
		if err := unmarshalDocJSON(doc, &iv); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "bad interval doc",
				slog.String("docID", doc.Ref.ID),
				slog.String("householdID", householdID),
				slog.Any("err", err),
			)
			return types.UsageSnapshot{}, err
		}
		snapshot.Intervals = append(snapshot.Intervals, iv)
	}

	if len(snapshot.Intervals) == 0 {
		return types.UsageSnapshot{}, ErrSnapshotNotFound
	}
	return snapshot, nil
}

// UpsertUsageIntervals writes intervals keyed by their RFC3339 timestamp so
// re-ingesting the same reading overwrites instead of duplicating.
func (f *FirestoreProvider) UpsertUsageIntervals(ctx context.Context, householdID string, intervals []types.UsageInterval) error {
	coll, err := f.intervalsCollection(householdID)
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	for _, iv := range intervals {
		jsonBytes, err := json.Marshal(iv)
		if err != nil {
			return fmt.Errorf("failed to marshal interval: %w", err)
		}
		docID := iv.Timestamp.UTC().Format(time.RFC3339)
		if _, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": iv.Timestamp,
		}); err != nil {
			return fmt.Errorf("failed to queue interval write: %w", err)
		}
	}
	bw.End()
	return nil
}

// GetTemplate retrieves the materialized rate structure for an offer. The
// stored structure is decoded and re-validated so the composer never sees a
// malformed template.
func (f *FirestoreProvider) GetTemplate(ctx context.Context, offerID string) (Template, error) {
	doc, err := f.client.Collection("templates").Doc(offerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("failed to fetch template doc: %w", err)
	}

	val, err := doc.DataAt("rate")
	if err != nil {
		return Template{}, fmt.Errorf("template document missing 'rate' field: %w", err)
	}
	rateJSON, ok := val.(string)
	if !ok {
		return Template{}, fmt.Errorf("template 'rate' field is not a string")
	}

	rate, err := types.UnmarshalRateStructure([]byte(rateJSON))
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "stored template failed validation",
			slog.String("offerID", offerID),
			slog.Any("err", err),
		)
		return Template{}, fmt.Errorf("template for offer %s: %w", offerID, err)
	}

	return Template{OfferID: offerID, Rate: rate}, nil
}

// SetTemplate stores a validated template as a JSON blob for portability.
func (f *FirestoreProvider) SetTemplate(ctx context.Context, tmpl Template) error {
	if tmpl.OfferID == "" {
		return fmt.Errorf("template missing offerID")
	}
	if err := tmpl.Rate.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid rate structure: %w", err)
	}
	rateJSON, err := types.MarshalRateStructure(tmpl.Rate)
	if err != nil {
		return fmt.Errorf("failed to marshal rate structure: %w", err)
	}
	_, err = f.client.Collection("templates").Doc(tmpl.OfferID).Set(ctx, map[string]interface{}{
		"rate": string(rateJSON),
		"kind": string(tmpl.Rate.Kind()),
	})
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// GetOffer retrieves one offer record.
func (f *FirestoreProvider) GetOffer(ctx context.Context, offerID string) (types.Offer, error) {
	doc, err := f.client.Collection("offers").Doc(offerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Offer{}, ErrOfferNotFound
		}
		return types.Offer{}, fmt.Errorf("failed to fetch offer doc: %w", err)
	}
	var o types.Offer
	if err := unmarshalDocJSON(doc, &o); err != nil {
		return types.Offer{}, err
	}
	return o, nil
}

// ListOffers returns every offer in the catalog.
func (f *FirestoreProvider) ListOffers(ctx context.Context) ([]types.Offer, error) {
	iter := f.client.Collection("offers").Documents(ctx)
	defer iter.Stop()

	var offers []types.Offer
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating offers: %w", err)
		}

		var o types.Offer
		if err := unmarshalDocJSON(doc, &o); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// UpsertOffer adds or updates an offer record.
func (f *FirestoreProvider) UpsertOffer(ctx context.Context, offer types.Offer) error {
	if offer.ID == "" {
		return fmt.Errorf("offer missing ID")
	}
	jsonBytes, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to marshal offer: %w", err)
	}
	_, err = f.client.Collection("offers").Doc(offer.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}
	return nil
}

// GetDeliveryRates returns every known rate record for the delivery
// utility, newest first by effective date document ID.
func (f *FirestoreProvider) GetDeliveryRates(ctx context.Context, deliverySlug string) ([]types.DeliveryRate, error) {
	if deliverySlug == "" {
		return nil, fmt.Errorf("deliverySlug cannot be empty")
	}
	iter := f.client.Collection("delivery").Doc(deliverySlug).Collection("rates").
		OrderBy(firestore.DocumentID, firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var rates []types.DeliveryRate
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating delivery rates: %w", err)
		}

		var r types.DeliveryRate
		if err := unmarshalDocJSON(doc, &r); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, nil
}

// UpsertDeliveryRate stores a rate record keyed by its effective date so a
// corrected schedule overwrites the old one.
func (f *FirestoreProvider) UpsertDeliveryRate(ctx context.Context, deliverySlug string, rate types.DeliveryRate) error {
	if deliverySlug == "" {
		return fmt.Errorf("deliverySlug cannot be empty")
	}
	if err := rate.Validate(); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery rate: %w", err)
	}
	docID := rate.EffectiveDate.UTC().Format("2006-01-02")
	_, err = f.client.Collection("delivery").Doc(deliverySlug).Collection("rates").Doc(docID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save delivery rate: %w", err)
	}
	return nil
}

// unmarshalDocJSON reads the conventional 'json' string field of a document
// into v.
func unmarshalDocJSON(doc *firestore.DocumentSnapshot, v interface{}) error {
	val, err := doc.DataAt("json")
	if err != nil {
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}
