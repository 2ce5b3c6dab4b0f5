package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/client/client"
	"github.com/dmitrijs2005/filedrop/internal/client/uploader"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/hashx"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/chunks"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/shares"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
	"github.com/dmitrijs2005/filedrop/internal/server/sharecode"
	"github.com/dmitrijs2005/filedrop/internal/server/sweeper"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

type memRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Share
}

func newMemRepo() *memRepo { return &memRepo{byID: make(map[string]*models.Share)} }

func (m *memRepo) Create(ctx context.Context, share *models.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Code == share.Code {
			return common.ErrorCodeTaken
		}
	}
	cp := *share
	m.byID[share.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memRepo) GetByCode(ctx context.Context, code string) (*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memRepo) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[string]struct{})
	for _, code := range codes {
		for _, s := range m.byID {
			if s.Code == code {
				existing[code] = struct{}{}
			}
		}
	}
	return existing, nil
}

func (m *memRepo) ForceExpire(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		s.DueAt = time.Unix(0, 0).UTC()
		return nil
	}
	return common.ErrorNotFound
}

func (m *memRepo) DeleteDue(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objectIDs []string
	for id, s := range m.byID {
		if !s.DueAt.After(now) {
			objectIDs = append(objectIDs, s.ObjectID)
			delete(m.byID, id)
		}
	}
	return objectIDs, nil
}

func (m *memRepo) DeleteByIDs(ctx context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objectIDs []string
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			objectIDs = append(objectIDs, s.ObjectID)
			delete(m.byID, id)
		}
	}
	return objectIDs, nil
}

func (m *memRepo) List(ctx context.Context, p shares.ListParams) ([]*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*models.Share, 0, len(m.byID))
	for _, s := range m.byID {
		cp := *s
		items = append(items, &cp)
	}
	return items, nil
}

func (m *memRepo) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

// newTestServer wires a full in-memory stack behind a real HTTP listener.
func newTestServer(t *testing.T) (*httptest.Server, *sc.Config) {
	t.Helper()

	cfg := &sc.Config{
		AdminToken:     "secret-admin-token",
		ShareDuration:  "1hour",
		ShareMaxSizeMB: 1,
		TokenTTL:       time.Minute,
	}

	repo := newMemRepo()
	blobs := blobstore.NewMemoryStore()
	logger := nopLogger{}

	service := services.NewShareService(
		repo,
		blobs,
		chunks.NewStore(blobs, 0),
		sharecode.NewAllocator(repo),
		sweeper.NewSweeper(repo, blobs, logger),
		cfg,
		logger,
	)

	ts := httptest.NewServer(NewServer("", service, cfg, logger).Router())
	t.Cleanup(ts.Close)
	return ts, cfg
}

func TestAPI_DirectShareRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := client.NewClient(ts.URL)

	content := []byte("round and round")
	created, err := c.CreateShareDirect(ctx, content, "note.txt", "text/plain", client.ShareOptions{})
	require.NoError(t, err)
	require.Len(t, created.Code, sharecode.CodeLength)
	assert.Equal(t, hashx.Sum(content), created.Hash)

	info, err := c.GetShareByCode(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", info.Filename)
	assert.Equal(t, created.Hash, info.Hash)
	require.NotEmpty(t, info.Token)

	rc, err := c.FetchObject(ctx, info.ID, info.Token)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestAPI_ChunkedUploadThroughCoordinator(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := client.NewClient(ts.URL)

	// thresholds shrunk so a few hundred bytes walks the super-chunk path
	up := uploader.New(c, "e2e-client", uploader.Config{
		ChunkSize:      64,
		SuperChunkSize: 256,
		MaxSize:        1024,
	})

	content := make([]byte, 600)
	for i := range content {
		content[i] = byte(i)
	}

	created, err := up.Upload(ctx, content, uploader.FileMeta{Filename: "big.bin", MimeType: "application/octet-stream"}, client.ShareOptions{})
	require.NoError(t, err)

	info, err := c.GetShareByCode(ctx, created.Code)
	require.NoError(t, err)

	rc, err := c.FetchObject(ctx, info.ID, info.Token)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestAPI_UnknownCode(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := client.NewClient(ts.URL)

	_, err := c.GetShareByCode(ctx, "000000")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAPI_EphemeralSecondFetchFails(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := client.NewClient(ts.URL)

	created, err := c.CreateShareDirect(ctx, []byte("burn me"), "x.txt", "text/plain", client.ShareOptions{Ephemeral: true})
	require.NoError(t, err)

	_, err = c.GetShareByCode(ctx, created.Code)
	require.NoError(t, err)

	_, err = c.GetShareByCode(ctx, created.Code)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAPI_TokenSingleUse(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := client.NewClient(ts.URL)

	created, err := c.CreateShareDirect(ctx, []byte("one shot"), "x.txt", "text/plain", client.ShareOptions{})
	require.NoError(t, err)

	info, err := c.GetShareByCode(ctx, created.Code)
	require.NoError(t, err)

	rc, err := c.FetchObject(ctx, info.ID, info.Token)
	require.NoError(t, err)
	rc.Close()

	_, err = c.FetchObject(ctx, info.ID, info.Token)
	assert.Error(t, err)
}

func TestAPI_AdminAuth(t *testing.T) {
	ts, cfg := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/admin/shares", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer "+cfg.AdminToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorSessionNotFound, http.StatusNotFound},
		{common.ErrInvalidToken, http.StatusForbidden},
		{common.ErrorTooLarge, http.StatusRequestEntityTooLarge},
		{common.ErrorEmptyContent, http.StatusBadRequest},
		{common.ErrorBadChunk, http.StatusBadRequest},
		{common.ErrorIncompleteUpload, http.StatusConflict},
		{common.ErrorExhausted, http.StatusConflict},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrorInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
