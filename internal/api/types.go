// Package api defines the wire types shared between the HTTP adapter and
// the client. Everything rides inside the {result, message, data} envelope.
package api

import (
	"encoding/json"
	"time"
)

// Envelope is the outer JSON frame of every API response.
type Envelope struct {
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ChunkSpec declares one chunk of an upload plan.
type ChunkSpec struct {
	ChunkID int   `json:"chunkId"`
	Size    int64 `json:"size"`
}

// ChunkSessionRequest opens (or resumes) a chunk session for one blob.
type ChunkSessionRequest struct {
	UUID   string      `json:"uuid"`
	SHA    string      `json:"sha"`
	Size   int64       `json:"size"`
	Chunks []ChunkSpec `json:"chunks"`
}

// ChunkSessionInfo is the server's view of a session: the stored plan plus
// the chunk ids already landed.
type ChunkSessionInfo struct {
	ChunkSessionRequest
	Finished []int `json:"finished"`
}

// ChunkRef ties a chunk id to the blob-store object holding its bytes.
type ChunkRef struct {
	ChunkID  int    `json:"chunkId"`
	ObjectID string `json:"objectId"`
}

// FileInfo describes pre-uploaded content when creating a share: either one
// merged object or, for content too large to merge, the chunk-set manifest.
type FileInfo struct {
	ObjectID string     `json:"objectId,omitempty"`
	Chunks   []ChunkRef `json:"chunks,omitempty"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Size     int64      `json:"size"`
	SHA      string     `json:"sha"`
}

// ShareCreated is the payload returned on successful share creation.
type ShareCreated struct {
	Code  string     `json:"code"`
	Hash  string     `json:"hash"`
	DueAt *time.Time `json:"due_date"`
}

// ShareInfo is the payload of a share-code resolution: record metadata plus
// a one-time token for the object fetch. The object id itself is never
// exposed.
type ShareInfo struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Filename    string     `json:"filename"`
	Type        string     `json:"type"`
	Hash        string     `json:"hash"`
	Size        int64      `json:"size"`
	IsEphemeral bool       `json:"is_ephemeral"`
	IsEncrypted bool       `json:"is_encrypted"`
	DueAt       *time.Time `json:"due_date"`
	Token       string     `json:"token"`
}

// ShareListItem is one row of the admin listing.
type ShareListItem struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Filename    string     `json:"filename"`
	Type        string     `json:"type"`
	Hash        string     `json:"hash"`
	Size        int64      `json:"size"`
	IsEphemeral bool       `json:"is_ephemeral"`
	IsEncrypted bool       `json:"is_encrypted"`
	DueAt       *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ShareListPage is the admin listing payload.
type ShareListPage struct {
	Items []ShareListItem `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}
