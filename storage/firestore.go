package storage

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"shortlet-server/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var Firestore *firestore.Client

// ListingsCollection holds the discovery-facing listing documents.
const ListingsCollection = "listings"

func InitializeFirestore() {
	ctx := context.Background()
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		log.Panic("FIRESTORE_PROJECT_ID environment variable is required")
	}

	var (
		client *firestore.Client
		err    error
	)
	// Use explicit credentials when provided, ADC otherwise.
	if credsFile := os.Getenv("FIRESTORE_CREDENTIALS_FILE"); credsFile != "" {
		client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credsFile))
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		log.Panic("error connecting to firestore: " + err.Error())
	}

	Firestore = client
}

// IndexRequired reports whether err is Firestore telling us the query
// needs a composite index that does not exist. The error message carries
// a remediation URL; callers switch to the scan strategy instead of
// surfacing it.
func IndexRequired(err error) bool {
	if err == nil {
		return false
	}
	return status.Code(err) == codes.FailedPrecondition &&
		strings.Contains(strings.ToLower(err.Error()), "index")
}

// ListingFilter is the server-side filter set of the preferred query
// strategy.
type ListingFilter struct {
	MinPrice float64
	MaxPrice float64
}

func (f ListingFilter) HasPrice() bool {
	return f.MinPrice > 0 || f.MaxPrice > 0
}

// IndexedCursor is the continuation point of the preferred strategy:
// the order-field value and document id of the last raw row.
type IndexedCursor struct {
	Price     float64 `json:"p,omitempty"`
	UpdatedAt int64   `json:"u,omitempty"` // unix micros
	ID        string  `json:"id"`
}

// ListingStore reads and writes listing documents.
type ListingStore struct {
	Client *firestore.Client
}

func Listings() *ListingStore {
	return &ListingStore{Client: Firestore}
}

// FetchIndexed runs the preferred strategy: status filter, optional
// price range, server-side ordering and cursor, all in the store. Every
// filter+order combination here needs a composite index; when it is
// missing Firestore fails with a FailedPrecondition that IndexRequired
// recognizes.
func (s *ListingStore) FetchIndexed(ctx context.Context, f ListingFilter, after *IndexedCursor, limit int) ([]models.ListingDoc, *IndexedCursor, error) {
	q := s.Client.Collection(ListingsCollection).
		Where("status", "==", models.ListingActive)

	if f.HasPrice() {
		if f.MinPrice > 0 {
			q = q.Where("pricePerNight", ">=", f.MinPrice)
		}
		if f.MaxPrice > 0 {
			q = q.Where("pricePerNight", "<=", f.MaxPrice)
		}
		q = q.OrderBy("pricePerNight", firestore.Asc).
			OrderBy(firestore.DocumentID, firestore.Asc)
		if after != nil {
			q = q.StartAfter(after.Price, after.ID)
		}
	} else {
		q = q.OrderBy("updatedAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Asc)
		if after != nil {
			q = q.StartAfter(time.UnixMicro(after.UpdatedAt), after.ID)
		}
	}

	it := q.Limit(limit).Documents(ctx)
	defer it.Stop()

	var (
		docs []models.ListingDoc
		last *IndexedCursor
	)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		var doc models.ListingDoc
		if err := snap.DataTo(&doc); err != nil {
			continue // tolerate malformed import artifacts
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)

		last = &IndexedCursor{ID: snap.Ref.ID, Price: doc.PricePerNight}
		if ts, ok := doc.UpdatedAt.(time.Time); ok {
			last.UpdatedAt = ts.UnixMicro()
		}
	}
	return docs, last, nil
}

// FetchScan runs the fallback strategy: an unfiltered, unsorted walk of
// the collection ordered by document id, cursor = last id. All
// filtering and sorting happens in the caller.
func (s *ListingStore) FetchScan(ctx context.Context, afterID string, limit int) ([]models.ListingDoc, string, error) {
	q := s.Client.Collection(ListingsCollection).
		OrderBy(firestore.DocumentID, firestore.Asc)
	if afterID != "" {
		q = q.StartAfter(afterID)
	}

	it := q.Limit(limit).Documents(ctx)
	defer it.Stop()

	var (
		docs []models.ListingDoc
		last string
	)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", err
		}

		var doc models.ListingDoc
		if err := snap.DataTo(&doc); err != nil {
			last = snap.Ref.ID
			continue
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
		last = snap.Ref.ID
	}
	return docs, last, nil
}

// Upsert writes listing fields with merge semantics so partial updates
// never clobber unrelated fields.
func (s *ListingStore) Upsert(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = firestore.ServerTimestamp
	_, err := s.Client.Collection(ListingsCollection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	return err
}
