// Package models holds the server-side entities persisted in the metadata
// store.
package models

import "time"

// NeverExpires is the sentinel due date encoding "never expires". A due_at
// equal to this value is presented to callers as no expiry at all.
var NeverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Share is one shared object: a text blob or file addressable by a short
// human-typed code.
//
// ObjectID references the blob store: either a single stored blob, or the
// anchor of a chunk-set manifest when the content was too large to merge.
// ContentHash is the hex SHA-256 of the stored bytes (post-encryption when
// encryption was applied). Code is unique across all records and normalized
// to uppercase.
type Share struct {
	ID          string
	ObjectID    string
	Filename    string
	MimeType    string
	ContentHash string
	Code        string
	SizeBytes   int64
	IsEphemeral bool
	IsEncrypted bool
	DueAt       time.Time
	CreatedAt   time.Time
}

// Expired reports whether the share is past due at the given instant.
func (s *Share) Expired(now time.Time) bool {
	return s.DueAt.Before(now)
}

// ChunkRef ties one chunk id to the blob-store object holding its bytes.
// A chunk-set manifest is an ordered list of these, attached as metadata on
// the anchor object.
type ChunkRef struct {
	ChunkID  int    `json:"chunkId"`
	ObjectID string `json:"objectId"`
}
