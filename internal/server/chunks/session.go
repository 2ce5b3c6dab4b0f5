// Package chunks implements the server side of the multi-part upload
// protocol: bounded-lifetime session tracking and streaming reassembly.
package chunks

import (
	"fmt"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// ChunkSize describes one entry of a session's chunk plan.
type ChunkSize struct {
	ChunkID int   `json:"chunkId"`
	Size    int64 `json:"size"`
}

// Session is the declared plan for one in-flight upload, keyed by the pair
// (client uuid, content hash). It lives in the blob store under a short TTL
// and is abandoned implicitly when the TTL elapses.
type Session struct {
	UUID   string      `json:"uuid"`
	SHA    string      `json:"sha"`
	Size   int64       `json:"size"`
	Chunks []ChunkSize `json:"chunks"`
}

// Validate checks the session invariants: chunk ids are contiguous integers
// 0..N-1 and the chunk sizes sum to the declared total.
func (s *Session) Validate() error {
	if s.UUID == "" || s.SHA == "" {
		return fmt.Errorf("%w: missing session key", common.ErrorBadChunk)
	}
	if len(s.Chunks) == 0 {
		return fmt.Errorf("%w: empty chunk plan", common.ErrorBadChunk)
	}

	var total int64
	for i, c := range s.Chunks {
		if c.ChunkID != i {
			return fmt.Errorf("%w: chunk ids not contiguous", common.ErrorBadChunk)
		}
		if c.Size <= 0 {
			return fmt.Errorf("%w: chunk %d has size %d", common.ErrorBadChunk, i, c.Size)
		}
		total += c.Size
	}
	if total != s.Size {
		return fmt.Errorf("%w: chunk sizes sum to %d, declared %d", common.ErrorBadChunk, total, s.Size)
	}
	return nil
}

// SessionState is a session plus the set of chunk ids already landed in the
// blob store. Finished is derived by listing stored chunk keys, never kept
// as a separate ledger.
type SessionState struct {
	Session
	Finished []int `json:"finished"`
}

// FinishedSet returns Finished as a set for quick membership checks.
func (s *SessionState) FinishedSet() map[int]struct{} {
	set := make(map[int]struct{}, len(s.Finished))
	for _, id := range s.Finished {
		set[id] = struct{}{}
	}
	return set
}

// Complete reports whether every planned chunk has landed.
func (s *SessionState) Complete() bool {
	return len(s.Finished) == len(s.Chunks)
}
