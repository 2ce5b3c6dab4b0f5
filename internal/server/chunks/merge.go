package chunks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/common"
)

// Merge assembles the session's chunks, strictly in chunk-id order, into one
// new content-addressed object and returns its id. The bytes are streamed
// chunk by chunk through a pipe, so memory stays bounded by the chunk size
// rather than the file size.
//
// Fails with ErrorSessionNotFound when no plan was ever recorded and with
// ErrorIncompleteUpload when any chunk is missing; no partial object id is
// ever returned. An incomplete merge is not retried here; the caller must
// re-run the chunk session.
func (s *Store) Merge(ctx context.Context, clientUUID, sha string) (string, error) {
	rc, err := s.blobs.Get(ctx, sessionKey(clientUUID, sha))
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.ErrorSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session plan: %w", err)
	}

	var session Session
	decodeErr := json.NewDecoder(rc).Decode(&session)
	rc.Close()
	if decodeErr != nil {
		return "", fmt.Errorf("decode session plan: %w", decodeErr)
	}

	// Cheap completeness check up front; the per-chunk reads below remain
	// the authority in case a chunk expires between listing and merging.
	finished, err := s.finishedChunks(ctx, session.UUID, session.SHA)
	if err != nil {
		return "", err
	}
	if len(finished) < len(session.Chunks) {
		return "", fmt.Errorf("%w: %d of %d chunks landed",
			common.ErrorIncompleteUpload, len(finished), len(session.Chunks))
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.streamChunks(ctx, &session, pw))
	}()

	objectID := uuid.New().String()
	if err := s.blobs.Put(ctx, objectID, pr, blobstore.PutOptions{}); err != nil {
		pr.CloseWithError(err)
		if errors.Is(err, common.ErrorIncompleteUpload) {
			return "", common.ErrorIncompleteUpload
		}
		return "", fmt.Errorf("store merged object: %w", err)
	}

	return objectID, nil
}

func (s *Store) streamChunks(ctx context.Context, session *Session, w io.Writer) error {
	for _, c := range session.Chunks {
		rc, err := s.blobs.Get(ctx, chunkKey(session.UUID, session.SHA, c.ChunkID))
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: chunk %d missing", common.ErrorIncompleteUpload, c.ChunkID)
		}
		if err != nil {
			return fmt.Errorf("read chunk %d: %w", c.ChunkID, err)
		}

		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("copy chunk %d: %w", c.ChunkID, err)
		}
	}
	return nil
}
