package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/config"
)

// Store keeps one document per symbol in a Firestore collection
// ⭐ SSOT: Firestore 접근은 여기서만
type Store struct {
	client     *firestore.Client
	collection string
}

// New connects to Firestore. CredentialsFile may be empty to use
// application default credentials.
func New(ctx context.Context, cfg config.FirebaseConfig) (*Store, error) {
	opts := make([]option.ClientOption, 0, 1)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &Store{client: client, collection: cfg.Collection}, nil
}

func (s *Store) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Upsert writes the document keyed by rec.Symbol, replacing any existing one
func (s *Store) Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error {
	if rec.Symbol == "" {
		return errors.New("upsert: empty symbol")
	}

	doc := *rec
	doc.Normalize()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	if _, err := s.coll().Doc(rec.Symbol).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to write %s: %w", rec.Symbol, err)
	}
	return nil
}

// Get reads the document of a symbol
func (s *Store) Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	snap, err := s.coll().Doc(symbol).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", symbol, err)
	}

	var rec contracts.StockMetricRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", symbol, err)
	}
	if rec.Symbol == "" {
		rec.Symbol = snap.Ref.ID
	}
	rec.Normalize()
	return &rec, nil
}

// ListAll returns every document ordered by document ID
func (s *Store) ListAll(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	iter := s.coll().OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	records := make([]contracts.StockMetricRecord, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.collection, err)
		}

		var rec contracts.StockMetricRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.ID, err)
		}
		if rec.Symbol == "" {
			rec.Symbol = snap.Ref.ID
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records, nil
}

// Symbols returns the IDs of every document
func (s *Store) Symbols(ctx context.Context) (map[string]struct{}, error) {
	iter := s.coll().Select().Documents(ctx)
	defer iter.Stop()

	out := make(map[string]struct{})
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.collection, err)
		}
		out[snap.Ref.ID] = struct{}{}
	}
	return out, nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}
