package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

const snapshotsCollection = "snapshots"

// snapshotVersion is bumped when the stored record shape changes.
const snapshotVersion = 1

// FirestoreProvider implements Database using Google Cloud Firestore. Each
// account has one document in the "snapshots" collection holding the record
// as a JSON string.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project id is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
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

func (f *FirestoreProvider) snapshotDoc(key string) (*firestore.DocumentRef, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	return f.client.Collection(snapshotsCollection).Doc(key), nil
}

// GetSnapshot retrieves the snapshot stored for key.
func (f *FirestoreProvider) GetSnapshot(ctx context.Context, key string) (types.Snapshot, error) {
	ref, err := f.snapshotDoc(key)
	if err != nil {
		return types.Snapshot{}, err
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return types.Snapshot{}, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}
	return decodeSnapshot(ctx, doc)
}

// SaveSnapshot replaces the snapshot of snap.Key. The record is stored as a
// JSON string for portability.
func (f *FirestoreProvider) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	ref, err := f.snapshotDoc(snap.Key)
	if err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = ref.Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"fetchedAt": snap.FetchedAt,
		"kind":      snap.Record.Kind.String(),
		"version":   snapshotVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns every stored snapshot, most recently fetched first.
// Malformed documents are skipped.
func (f *FirestoreProvider) ListSnapshots(ctx context.Context) ([]types.Snapshot, error) {
	iter := f.client.Collection(snapshotsCollection).
		OrderBy("fetchedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var snaps []types.Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating snapshots: %w", err)
		}
		snap, err := decodeSnapshot(ctx, doc)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func decodeSnapshot(ctx context.Context, doc *firestore.DocumentSnapshot) (types.Snapshot, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc missing json", slog.String("key", doc.Ref.ID), slog.Any("err", err))
		return types.Snapshot{}, fmt.Errorf("snapshot %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc json not string", slog.String("key", doc.Ref.ID))
		return types.Snapshot{}, fmt.Errorf("snapshot %s 'json' field is not a string", doc.Ref.ID)
	}

	var snap types.Snapshot
	if err := json.Unmarshal([]byte(jsonStr), &snap); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal snapshot", slog.String("key", doc.Ref.ID), slog.Any("err", err))
		return types.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot %s: %w", doc.Ref.ID, err)
	}
	return snap, nil
}
