package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/api"
	"github.com/dmitrijs2005/filedrop/internal/client/client"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/hashx"
)

// fakeAPI emulates the server's chunk protocol in memory.
type fakeAPI struct {
	mu sync.Mutex

	sessions map[string]api.ChunkSessionRequest
	chunks   map[string]map[int][]byte // session key -> chunk id -> bytes
	merged   map[string][]byte         // object id -> assembled bytes

	directContent []byte
	lastInfo      *api.FileInfo

	putCalls int
	failPuts int // fail this many PutChunk calls before succeeding
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions: make(map[string]api.ChunkSessionRequest),
		chunks:   make(map[string]map[int][]byte),
		merged:   make(map[string][]byte),
	}
}

func sessionKey(uuid, sha string) string { return uuid + "_" + sha }

func (f *fakeAPI) CreateShareDirect(ctx context.Context, content []byte, filename, mimeType string, opts client.ShareOptions) (*api.ShareCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directContent = append([]byte(nil), content...)
	return &api.ShareCreated{Code: "111111", Hash: hashx.Sum(content)}, nil
}

func (f *fakeAPI) CreateShareFromInfo(ctx context.Context, info api.FileInfo, opts client.ShareOptions) (*api.ShareCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInfo = &info
	return &api.ShareCreated{Code: "222222", Hash: info.SHA}, nil
}

func (f *fakeAPI) OpenChunkSession(ctx context.Context, session api.ChunkSessionRequest) (*api.ChunkSessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := sessionKey(session.UUID, session.SHA)
	stored, ok := f.sessions[key]
	if !ok {
		f.sessions[key] = session
		stored = session
	}

	finished := make([]int, 0, len(f.chunks[key]))
	for id := range f.chunks[key] {
		finished = append(finished, id)
	}
	sort.Ints(finished)

	return &api.ChunkSessionInfo{ChunkSessionRequest: stored, Finished: finished}, nil
}

func (f *fakeAPI) PutChunk(ctx context.Context, uuid, sha string, chunkID int, chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("transient network error")
	}

	key := sessionKey(uuid, sha)
	if f.chunks[key] == nil {
		f.chunks[key] = make(map[int][]byte)
	}
	f.chunks[key][chunkID] = append([]byte(nil), chunk...)
	return nil
}

func (f *fakeAPI) MergeChunkSession(ctx context.Context, uuid, sha string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := sessionKey(uuid, sha)
	session, ok := f.sessions[key]
	if !ok {
		return "", common.ErrorSessionNotFound
	}

	var buf bytes.Buffer
	for _, c := range session.Chunks {
		data, ok := f.chunks[key][c.ChunkID]
		if !ok {
			return "", common.ErrorIncompleteUpload
		}
		buf.Write(data)
	}

	objectID := fmt.Sprintf("obj-%d", len(f.merged))
	f.merged[objectID] = buf.Bytes()
	return objectID, nil
}

// seedChunk marks a chunk as already landed, as if a previous run uploaded it.
func (f *fakeAPI) seedChunk(uuid, sha string, chunkID int, chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionKey(uuid, sha)
	if f.chunks[key] == nil {
		f.chunks[key] = make(map[int][]byte)
	}
	f.chunks[key][chunkID] = chunk
}

func testConfig() Config {
	return Config{ChunkSize: 4, SuperChunkSize: 16, MaxSize: 32}
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestUpload_DirectPath(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	content := pattern(4)
	created, err := up.Upload(context.Background(), content, FileMeta{Filename: "small.txt"}, client.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, "111111", created.Code)
	assert.Equal(t, content, fake.directContent)
	assert.Zero(t, fake.putCalls, "direct path must not touch the chunk protocol")
}

func TestUpload_SingleSession(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	content := pattern(10) // chunks of 4, 4, 2
	created, err := up.Upload(context.Background(), content, FileMeta{Filename: "mid.bin"}, client.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, "222222", created.Code)

	require.NotNil(t, fake.lastInfo)
	assert.NotEmpty(t, fake.lastInfo.ObjectID)
	assert.Empty(t, fake.lastInfo.Chunks)
	assert.Equal(t, int64(10), fake.lastInfo.Size)
	assert.Equal(t, hashx.Sum(content), fake.lastInfo.SHA)

	assert.Equal(t, content, fake.merged[fake.lastInfo.ObjectID])
}

func TestUpload_LastChunkIsRemainder(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	content := pattern(9) // 4 + 4 + 1
	_, err := up.Upload(context.Background(), content, FileMeta{}, client.ShareOptions{})
	require.NoError(t, err)

	key := sessionKey("client-1", hashx.Sum(content))
	session := fake.sessions[key]
	require.Len(t, session.Chunks, 3)
	assert.Equal(t, int64(4), session.Chunks[0].Size)
	assert.Equal(t, int64(4), session.Chunks[1].Size)
	assert.Equal(t, int64(1), session.Chunks[2].Size)
}

func TestUpload_ResumeSkipsLandedChunks(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	content := pattern(12) // chunks 0, 1, 2 of 4 bytes each
	sha := hashx.Sum(content)

	// chunks 0 and 2 landed on a previous run
	fake.seedChunk("client-1", sha, 0, content[0:4])
	fake.seedChunk("client-1", sha, 2, content[8:12])

	_, err := up.Upload(context.Background(), content, FileMeta{}, client.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.putCalls, "only the missing chunk should be uploaded")
	assert.Equal(t, content, fake.merged["obj-0"])
}

func TestUpload_SuperChunks(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	content := pattern(20) // super-chunks of 16 and 4
	created, err := up.Upload(context.Background(), content, FileMeta{Filename: "huge.bin"}, client.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, "222222", created.Code)

	require.NotNil(t, fake.lastInfo)
	assert.Empty(t, fake.lastInfo.ObjectID)
	require.Len(t, fake.lastInfo.Chunks, 2)
	assert.Equal(t, hashx.Sum(content), fake.lastInfo.SHA)

	// each manifest entry references an individually merged super-chunk
	var reassembled []byte
	for i, ref := range fake.lastInfo.Chunks {
		assert.Equal(t, i, ref.ChunkID)
		reassembled = append(reassembled, fake.merged[ref.ObjectID]...)
	}
	assert.Equal(t, content, reassembled)
}

func TestUpload_TooLarge(t *testing.T) {
	fake := newFakeAPI()
	up := New(fake, "client-1", testConfig())

	_, err := up.Upload(context.Background(), pattern(33), FileMeta{}, client.ShareOptions{})
	assert.ErrorIs(t, err, common.ErrorTooLarge)
	assert.Zero(t, fake.putCalls)
	assert.Nil(t, fake.lastInfo)
}

func TestUpload_RetriesFailedChunk(t *testing.T) {
	fake := newFakeAPI()
	fake.failPuts = 1
	up := New(fake, "client-1", testConfig())

	content := pattern(8)
	_, err := up.Upload(context.Background(), content, FileMeta{}, client.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, content, fake.merged["obj-0"])
	assert.Equal(t, 3, fake.putCalls) // 2 chunks + 1 retried failure
}

func TestUpload_ReportsProgress(t *testing.T) {
	fake := newFakeAPI()

	// the callback fires from concurrent chunk uploads
	var mu sync.Mutex
	var fractions []float64
	cfg := testConfig()
	cfg.OnProgress = func(fraction float64) {
		mu.Lock()
		defer mu.Unlock()
		fractions = append(fractions, fraction)
	}

	up := New(fake, "client-1", cfg)

	_, err := up.Upload(context.Background(), pattern(10), FileMeta{}, client.ShareOptions{})
	require.NoError(t, err)

	require.NotEmpty(t, fractions)
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 1e-9)
}
