package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Put(ctx, "a/key", strings.NewReader("payload"), PutOptions{})
	require.NoError(t, err)

	rc, err := s.Get(ctx, "a/key")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_Metadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Put(ctx, "k", strings.NewReader("x"), PutOptions{Metadata: []byte(`{"chunks":2}`)})
	require.NoError(t, err)

	rc, meta, err := s.GetWithMetadata(ctx, "k")
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, []byte(`{"chunks":2}`), meta)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Put(ctx, "transient", strings.NewReader("x"), PutOptions{TTL: time.Minute}))
	require.NoError(t, s.Put(ctx, "durable", strings.NewReader("y"), PutOptions{}))

	_, err := s.Get(ctx, "transient")
	require.NoError(t, err)

	s.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	_, err = s.Get(ctx, "transient")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Get(ctx, "durable")
	assert.NoError(t, err)
}

func TestMemoryStore_DeleteAbsent(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), "ghost"))
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, k := range []string{"chunks/u_h.0", "chunks/u_h.1", "chunks/u_h", "other"} {
		require.NoError(t, s.Put(ctx, k, strings.NewReader("x"), PutOptions{}))
	}

	keys, err := s.List(ctx, "chunks/u_h.")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chunks/u_h.0", "chunks/u_h.1"}, keys)
}
