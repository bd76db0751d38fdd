package workers

import (
	"context"
	"log"
	"time"
)

// SnapshotPruner is the slice of the store the retention worker needs.
type SnapshotPruner interface {
	PruneSnapshots(keep int) (int64, error)
}

// RetentionWorker caps each product's stored price history so the
// snapshot table does not grow without bound.
type RetentionWorker struct {
	store SnapshotPruner
	keep  int
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(store SnapshotPruner, keep int) *RetentionWorker {
	if keep <= 0 {
		keep = 100
	}
	return &RetentionWorker{store: store, keep: keep}
}

// Run starts the retention loop
func (w *RetentionWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Retention worker stopping")
			return
		case <-ticker.C:
			w.processOnce()
		}
	}
}

func (w *RetentionWorker) processOnce() {
	pruned, err := w.store.PruneSnapshots(w.keep)
	if err != nil {
		log.Printf("Retention worker: prune error: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Retention worker: pruned %d snapshots, keeping %d per product", pruned, w.keep)
	}
}
