package chunks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/common"
)

// keyPrefix namespaces all session and chunk keys in the blob store.
const keyPrefix = "chunks/"

// DefaultTTL bounds how long an unfinished session and its chunks survive.
// Matching the chunk TTL means a never-merged upload reclaims itself without
// sweeper involvement.
const DefaultTTL = 5 * time.Minute

// sessionKey returns the blob-store key holding the session plan. Chunk i
// lives at sessionKey + "." + i, so the finished set falls out of a prefix
// listing.
func sessionKey(uuid, sha string) string {
	return keyPrefix + uuid + "_" + sha
}

func chunkKey(uuid, sha string, chunkID int) string {
	return sessionKey(uuid, sha) + "." + strconv.Itoa(chunkID)
}

// Store tracks in-flight multi-part uploads on top of the blob store.
type Store struct {
	blobs blobstore.Store
	ttl   time.Duration
}

func NewStore(blobs blobstore.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{blobs: blobs, ttl: ttl}
}

// Open returns the session state for (uuid, sha), creating the session from
// the supplied plan if none exists. Idempotent: when a live session is
// found its stored plan wins and the incoming plan is ignored, so a client
// re-running chunk-info resumes instead of restarting.
func (s *Store) Open(ctx context.Context, session *Session) (*SessionState, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	key := sessionKey(session.UUID, session.SHA)

	rc, err := s.blobs.Get(ctx, key)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		plan, err := json.Marshal(session)
		if err != nil {
			return nil, err
		}
		if err := s.blobs.Put(ctx, key, bytes.NewReader(plan), blobstore.PutOptions{TTL: s.ttl}); err != nil {
			return nil, fmt.Errorf("store session plan: %w", err)
		}
		return &SessionState{Session: *session, Finished: []int{}}, nil
	case err != nil:
		return nil, fmt.Errorf("load session plan: %w", err)
	}
	defer rc.Close()

	var stored Session
	if err := json.NewDecoder(rc).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode session plan: %w", err)
	}

	finished, err := s.finishedChunks(ctx, stored.UUID, stored.SHA)
	if err != nil {
		return nil, err
	}

	return &SessionState{Session: stored, Finished: finished}, nil
}

// PutChunk stores one chunk's bytes under the session prefix with the
// session TTL, advancing the derived completion set.
func (s *Store) PutChunk(ctx context.Context, uuid, sha string, chunkID int, r io.Reader) error {
	if uuid == "" || sha == "" || chunkID < 0 {
		return common.ErrorBadChunk
	}

	err := s.blobs.Put(ctx, chunkKey(uuid, sha, chunkID), r, blobstore.PutOptions{TTL: s.ttl})
	if err != nil {
		return fmt.Errorf("store chunk %d: %w", chunkID, err)
	}
	return nil
}

// finishedChunks derives the landed chunk ids by listing stored chunk keys
// under the session prefix.
func (s *Store) finishedChunks(ctx context.Context, uuid, sha string) ([]int, error) {
	prefix := sessionKey(uuid, sha) + "."

	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	finished := make([]int, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		finished = append(finished, id)
	}
	sort.Ints(finished)
	return finished, nil
}
