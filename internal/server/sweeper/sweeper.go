// Package sweeper implements scheduled reclamation of expired shares: their
// metadata rows, their stored objects, and any constituent chunks.
package sweeper

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// reclaimParallelism caps concurrent blob deletions within one sweep.
const reclaimParallelism = 8

// DueDeleter is the one metadata-store operation the sweeper needs: delete
// every record past due in a single transaction, returning the deleted
// records' object ids.
type DueDeleter interface {
	DeleteDue(ctx context.Context, now time.Time) ([]string, error)
}

type Sweeper struct {
	repo   DueDeleter
	blobs  blobstore.Store
	logger logging.Logger
}

func NewSweeper(repo DueDeleter, blobs blobstore.Store, logger logging.Logger) *Sweeper {
	return &Sweeper{repo: repo, blobs: blobs, logger: logger.With("module", "sweeper")}
}

// Run executes a sweep every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx, time.Now()); err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes every record with due_at <= now and reclaims the backing
// objects. The metadata delete is one atomic statement; blob deletion that
// follows is best-effort and non-transactional; a crash in between leaves
// orphaned blobs, which cost storage but never correctness.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	objectIDs, err := s.repo.DeleteDue(ctx, now)
	if err != nil {
		return err
	}
	if len(objectIDs) == 0 {
		return nil
	}

	s.logger.Info(ctx, "sweeping expired shares", "count", len(objectIDs), "before", now)
	s.ReclaimObjects(ctx, objectIDs)
	return nil
}

// ReclaimObjects deletes the given objects with unordered, bounded
// parallelism. A manifest-backed object fans out to every referenced chunk
// before the anchor itself goes. Individual failures are logged and never
// abort the rest of the batch; whatever survives is retried by a later
// sweep or persists as a known-orphan.
func (s *Sweeper) ReclaimObjects(ctx context.Context, objectIDs []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reclaimParallelism)

	for _, objectID := range objectIDs {
		g.Go(func() error {
			s.reclaimObject(ctx, objectID)
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Sweeper) reclaimObject(ctx context.Context, objectID string) {
	rc, meta, err := s.blobs.GetWithMetadata(ctx, objectID)
	if err == nil {
		rc.Close()
	}
	if err == nil && len(meta) > 0 {
		var manifest []models.ChunkRef
		if err := json.Unmarshal(meta, &manifest); err != nil {
			s.logger.Error(ctx, "undecodable manifest", "object", objectID, "error", err)
		}
		for _, ref := range manifest {
			if err := s.blobs.Delete(ctx, ref.ObjectID); err != nil {
				s.logger.Error(ctx, "chunk delete failed", "object", ref.ObjectID, "error", err)
			}
		}
	}

	if err := s.blobs.Delete(ctx, objectID); err != nil {
		s.logger.Error(ctx, "object delete failed", "object", objectID, "error", err)
	}
}
