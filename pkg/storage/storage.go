package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Database persists the last known good record of each account. Only the
// latest snapshot is kept, saving replaces the previous one.
type Database interface {
	GetSnapshot(ctx context.Context, key string) (types.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap types.Snapshot) error
	ListSnapshots(ctx context.Context) ([]types.Snapshot, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

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
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
