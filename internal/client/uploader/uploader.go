// Package uploader is the chunk transfer coordinator: it picks a transfer
// strategy from the content size alone, splits and parallelizes chunk
// uploads, resumes interrupted sessions, and reports aggregate progress.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/filedrop/internal/api"
	"github.com/dmitrijs2005/filedrop/internal/client/client"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/hashx"
)

// Default thresholds. Content up to ChunkSize goes in one request; up to
// SuperChunkSize it runs through a single chunk session; up to MaxSize it
// is cut into session-sized super-chunks recorded as a manifest; beyond
// that it is rejected outright.
const (
	DefaultChunkSize      = 5 << 20
	DefaultSuperChunkSize = 25 << 20
	DefaultMaxSize        = 100 << 20
)

// chunkAttempts bounds retries of one failed chunk upload. Only the failed
// chunk is retried; the session itself stays valid until its TTL.
const chunkAttempts = 3

// API is the server surface the coordinator drives. *client.Client
// implements it; tests substitute fakes.
type API interface {
	CreateShareDirect(ctx context.Context, content []byte, filename, mimeType string, opts client.ShareOptions) (*api.ShareCreated, error)
	CreateShareFromInfo(ctx context.Context, info api.FileInfo, opts client.ShareOptions) (*api.ShareCreated, error)
	OpenChunkSession(ctx context.Context, session api.ChunkSessionRequest) (*api.ChunkSessionInfo, error)
	PutChunk(ctx context.Context, uuid, sha string, chunkID int, chunk []byte) error
	MergeChunkSession(ctx context.Context, uuid, sha string) (string, error)
}

// FileMeta describes the content being shared.
type FileMeta struct {
	Filename string
	MimeType string
}

// Config tunes the coordinator; zero values fall back to the defaults.
type Config struct {
	ChunkSize      int64
	SuperChunkSize int64
	MaxSize        int64

	// OnProgress, when set, receives the overall progress fraction in
	// [0,1]: bytes acked across all chunks over total size. May be called
	// from concurrent chunk uploads.
	OnProgress func(fraction float64)
}

type Uploader struct {
	api  API
	uuid string
	cfg  Config

	total int64
	acked atomic.Int64
}

func New(apiClient API, clientUUID string, cfg Config) *Uploader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.SuperChunkSize <= 0 {
		cfg.SuperChunkSize = DefaultSuperChunkSize
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return &Uploader{api: apiClient, uuid: clientUUID, cfg: cfg}
}

// Upload shares content using the strategy its size dictates and returns
// the created share.
func (u *Uploader) Upload(ctx context.Context, content []byte, meta FileMeta, opts client.ShareOptions) (*api.ShareCreated, error) {
	size := int64(len(content))
	u.total = size
	u.acked.Store(0)

	switch {
	case size <= u.cfg.ChunkSize:
		created, err := u.api.CreateShareDirect(ctx, content, meta.Filename, meta.MimeType, opts)
		if err != nil {
			return nil, err
		}
		u.addAcked(size)
		return created, nil

	case size <= u.cfg.SuperChunkSize:
		objectID, sha, err := u.uploadChunked(ctx, content)
		if err != nil {
			return nil, err
		}
		return u.api.CreateShareFromInfo(ctx, api.FileInfo{
			ObjectID: objectID,
			Name:     meta.Filename,
			Type:     meta.MimeType,
			Size:     size,
			SHA:      sha,
		}, opts)

	case size <= u.cfg.MaxSize:
		manifest, err := u.uploadSuperChunks(ctx, content)
		if err != nil {
			return nil, err
		}
		return u.api.CreateShareFromInfo(ctx, api.FileInfo{
			Chunks: manifest,
			Name:   meta.Filename,
			Type:   meta.MimeType,
			Size:   size,
			SHA:    hashx.Sum(content),
		}, opts)

	default:
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit",
			common.ErrorTooLarge, size, u.cfg.MaxSize)
	}
}

// uploadSuperChunks cuts the content into session-sized pieces, runs each
// through its own chunk session sequentially, and collects the manifest.
// No merge of the whole file is ever requested: each super-chunk merges
// individually and reads reassemble them from the manifest.
func (u *Uploader) uploadSuperChunks(ctx context.Context, content []byte) ([]api.ChunkRef, error) {
	size := int64(len(content))

	var manifest []api.ChunkRef
	for i := 0; int64(i)*u.cfg.SuperChunkSize < size; i++ {
		start := int64(i) * u.cfg.SuperChunkSize
		end := min(start+u.cfg.SuperChunkSize, size)

		objectID, _, err := u.uploadChunked(ctx, content[start:end])
		if err != nil {
			return nil, fmt.Errorf("super-chunk %d: %w", i, err)
		}
		manifest = append(manifest, api.ChunkRef{ChunkID: i, ObjectID: objectID})
	}

	return manifest, nil
}

// uploadChunked runs the chunk session protocol for one blob: open/resume
// the session, upload every chunk not already landed (concurrently, no
// ordering between chunks), confirm all chunks are observed as landed, and
// request the merge.
func (u *Uploader) uploadChunked(ctx context.Context, blob []byte) (objectID, sha string, err error) {
	sha = hashx.Sum(blob)
	request := u.sessionRequest(sha, blob)

	info, err := u.api.OpenChunkSession(ctx, request)
	if err != nil {
		return "", "", err
	}

	finished := make(map[int]struct{}, len(info.Finished))
	for _, id := range info.Finished {
		finished[id] = struct{}{}
		u.addAcked(request.Chunks[id].Size)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range request.Chunks {
		if _, done := finished[c.ChunkID]; done {
			continue
		}

		start := int64(c.ChunkID) * u.cfg.ChunkSize
		chunk := blob[start : start+c.Size]

		g.Go(func() error {
			if err := u.putChunkWithRetry(gctx, sha, c.ChunkID, chunk); err != nil {
				return fmt.Errorf("chunk %d: %w", c.ChunkID, err)
			}
			u.addAcked(c.Size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	// Chunk listing is only eventually consistent with writes: hold off the
	// merge until the server observes every chunk as landed.
	if err := u.awaitAllLanded(ctx, request); err != nil {
		return "", "", err
	}

	objectID, err = u.api.MergeChunkSession(ctx, u.uuid, sha)
	if err != nil {
		return "", "", err
	}
	return objectID, sha, nil
}

func (u *Uploader) sessionRequest(sha string, blob []byte) api.ChunkSessionRequest {
	size := int64(len(blob))
	totalChunks := int((size + u.cfg.ChunkSize - 1) / u.cfg.ChunkSize)

	request := api.ChunkSessionRequest{
		UUID:   u.uuid,
		SHA:    sha,
		Size:   size,
		Chunks: make([]api.ChunkSpec, totalChunks),
	}
	for i := range request.Chunks {
		chunkSize := u.cfg.ChunkSize
		if i == totalChunks-1 {
			chunkSize = size - u.cfg.ChunkSize*int64(totalChunks-1)
		}
		request.Chunks[i] = api.ChunkSpec{ChunkID: i, Size: chunkSize}
	}
	return request
}

func (u *Uploader) putChunkWithRetry(ctx context.Context, sha string, chunkID int, chunk []byte) error {
	backoff := retry.WithMaxRetries(chunkAttempts, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := u.api.PutChunk(ctx, u.uuid, sha, chunkID, chunk); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (u *Uploader) awaitAllLanded(ctx context.Context, request api.ChunkSessionRequest) error {
	backoff := retry.WithMaxRetries(chunkAttempts, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		info, err := u.api.OpenChunkSession(ctx, request)
		if err != nil {
			return err
		}
		if len(info.Finished) < len(request.Chunks) {
			return retry.RetryableError(errors.New("chunks not yet visible"))
		}
		return nil
	})
}

func (u *Uploader) addAcked(n int64) {
	acked := u.acked.Add(n)
	if u.cfg.OnProgress != nil && u.total > 0 {
		u.cfg.OnProgress(float64(acked) / float64(u.total))
	}
}
