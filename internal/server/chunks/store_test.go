package chunks

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/common"
)

func testSession(chunkSizes ...int64) *Session {
	var total int64
	chunks := make([]ChunkSize, len(chunkSizes))
	for i, size := range chunkSizes {
		chunks[i] = ChunkSize{ChunkID: i, Size: size}
		total += size
	}
	return &Session{
		UUID:   "client-1",
		SHA:    "abc123",
		Size:   total,
		Chunks: chunks,
	}
}

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr bool
	}{
		{"valid", func(s *Session) {}, false},
		{"missing uuid", func(s *Session) { s.UUID = "" }, true},
		{"missing sha", func(s *Session) { s.SHA = "" }, true},
		{"no chunks", func(s *Session) { s.Chunks = nil }, true},
		{"ids not contiguous", func(s *Session) { s.Chunks[1].ChunkID = 5 }, true},
		{"zero-size chunk", func(s *Session) { s.Chunks[0].Size = 0 }, true},
		{"size mismatch", func(s *Session) { s.Size = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession(100, 50)
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorBadChunk)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_Open_CreatesSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore(blobstore.NewMemoryStore(), 0)

	state, err := store.Open(ctx, testSession(100, 50))
	require.NoError(t, err)

	assert.Empty(t, state.Finished)
	assert.Len(t, state.Chunks, 2)
	assert.False(t, state.Complete())
}

func TestStore_Open_ResumesWithStoredPlan(t *testing.T) {
	ctx := context.Background()
	store := NewStore(blobstore.NewMemoryStore(), 0)

	_, err := store.Open(ctx, testSession(100, 50))
	require.NoError(t, err)

	require.NoError(t, store.PutChunk(ctx, "client-1", "abc123", 1, strings.NewReader(strings.Repeat("b", 50))))

	// reopening with a different plan: the stored one wins
	divergent := testSession(75, 75)
	state, err := store.Open(ctx, divergent)
	require.NoError(t, err)

	assert.Equal(t, int64(100), state.Chunks[0].Size)
	assert.Equal(t, []int{1}, state.Finished)
}

func TestStore_PutChunk_Invalid(t *testing.T) {
	ctx := context.Background()
	store := NewStore(blobstore.NewMemoryStore(), 0)

	err := store.PutChunk(ctx, "", "sha", 0, strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrorBadChunk)

	err = store.PutChunk(ctx, "uuid", "sha", -1, strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrorBadChunk)
}
