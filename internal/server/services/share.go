// Package services implements the share operations exposed to the routing
// layer: share creation, code resolution, object fetching, the chunk
// sub-protocol, and the admin surface.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/hashx"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/chunks"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/shares"
	"github.com/dmitrijs2005/filedrop/internal/server/sharecode"
	"github.com/dmitrijs2005/filedrop/internal/shared"
)

// tokenPrefix namespaces one-time download tokens in the blob store.
const tokenPrefix = "tokens/"

// allocateAttempts bounds retry-with-fresh-pool on allocation exhaustion or
// an insert-time uniqueness violation.
const allocateAttempts = 5

// ObjectReclaimer deletes stored objects (and, for chunk-set manifests,
// every referenced chunk) best-effort. Implemented by the retention sweeper
// and reused for admin deletion.
type ObjectReclaimer interface {
	ReclaimObjects(ctx context.Context, objectIDs []string)
}

// ShareService implements the logical operations behind the HTTP surface.
type ShareService struct {
	repo      shares.Repository
	blobs     blobstore.Store
	sessions  *chunks.Store
	alloc     *sharecode.Allocator
	reclaimer ObjectReclaimer
	config    *sc.Config
	logger    logging.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

func NewShareService(repo shares.Repository, blobs blobstore.Store, sessions *chunks.Store,
	alloc *sharecode.Allocator, reclaimer ObjectReclaimer, cfg *sc.Config, logger logging.Logger) *ShareService {
	return &ShareService{
		repo:      repo,
		blobs:     blobs,
		sessions:  sessions,
		alloc:     alloc,
		reclaimer: reclaimer,
		config:    cfg,
		logger:    logger.With("module", "share_service"),
		now:       time.Now,
	}
}

// CreateShareParams describes a new share. Exactly one of Content, ObjectID
// or Manifest must be set: raw bytes for the direct path, a merged object id
// for the chunked path, or a chunk-set manifest when the content was too
// large to merge.
type CreateShareParams struct {
	Content  []byte
	ObjectID string
	Manifest []models.ChunkRef

	Filename    string
	MimeType    string
	SizeBytes   int64
	ContentHash string
	IsEphemeral bool
	IsEncrypted bool
	Duration    string
}

// CreateShareResult is what the uploader gets back: the human-typed code,
// the stored content hash, and the expiry (nil when the share never expires).
type CreateShareResult struct {
	Code  string     `json:"code"`
	Hash  string     `json:"hash"`
	DueAt *time.Time `json:"due_date"`
}

func (s *ShareService) CreateShare(ctx context.Context, p CreateShareParams) (*CreateShareResult, error) {
	share := &models.Share{
		ID:          uuid.New().String(),
		Filename:    p.Filename,
		MimeType:    p.MimeType,
		ContentHash: p.ContentHash,
		SizeBytes:   p.SizeBytes,
		IsEphemeral: p.IsEphemeral,
		IsEncrypted: p.IsEncrypted,
		CreatedAt:   s.now(),
	}

	duration := p.Duration
	if duration == "" {
		duration = s.config.ShareDuration
	}
	share.DueAt = ResolveDueDate(share.CreatedAt, duration)

	switch {
	case p.Content != nil:
		if len(p.Content) == 0 {
			return nil, common.ErrorEmptyContent
		}
		if max := s.config.ShareMaxSizeMB * 1024 * 1024; int64(len(p.Content)) > max {
			return nil, fmt.Errorf("%w: content larger than %d MiB", common.ErrorTooLarge, s.config.ShareMaxSizeMB)
		}

		share.ObjectID = uuid.New().String()
		share.SizeBytes = int64(len(p.Content))
		share.ContentHash = hashx.Sum(p.Content)
		if err := s.blobs.Put(ctx, share.ObjectID, bytes.NewReader(p.Content), blobstore.PutOptions{}); err != nil {
			return nil, fmt.Errorf("store content: %w", err)
		}

	case p.ObjectID != "":
		share.ObjectID = p.ObjectID

	case len(p.Manifest) > 0:
		manifest, err := json.Marshal(p.Manifest)
		if err != nil {
			return nil, err
		}
		// Sentinel entry: no body of its own, the manifest metadata is the
		// whole point. Reads reassemble the chunk set at fetch time.
		share.ObjectID = uuid.New().String()
		err = s.blobs.Put(ctx, share.ObjectID, bytes.NewReader(nil), blobstore.PutOptions{Metadata: manifest})
		if err != nil {
			return nil, fmt.Errorf("store manifest: %w", err)
		}

	default:
		return nil, common.ErrorEmptyContent
	}

	if err := s.insertWithFreshCode(ctx, share); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "share created", "code", share.Code, "size", share.SizeBytes, "ephemeral", share.IsEphemeral)

	return &CreateShareResult{
		Code:  share.Code,
		Hash:  share.ContentHash,
		DueAt: presentDueAt(share.DueAt),
	}, nil
}

// insertWithFreshCode allocates a code and inserts the record, retrying with
// a fresh candidate pool when the pool is exhausted or another writer won
// the check-then-insert race (uniqueness violation at insert time).
func (s *ShareService) insertWithFreshCode(ctx context.Context, share *models.Share) error {
	backoff := retry.WithMaxRetries(allocateAttempts, retry.NewFibonacci(10*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := s.alloc.Allocate(ctx)
		if errors.Is(err, common.ErrorExhausted) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		share.Code = code
		err = s.repo.Create(ctx, share)
		if errors.Is(err, common.ErrorCodeTaken) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// ShareAccess is the result of resolving a share code: record metadata plus
// a one-time token authorizing a single object fetch.
type ShareAccess struct {
	Share *models.Share
	Token string
	DueAt *time.Time // nil when the share never expires
}

// GetShareByCode resolves a share code to its metadata and mints a one-time
// download token. Unknown and expired codes are indistinguishable; both
// come back as ErrorNotFound. The first successful read of an ephemeral
// share forces its due date into the past, so any later resolution fails.
func (s *ShareService) GetShareByCode(ctx context.Context, code string) (*ShareAccess, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != sharecode.CodeLength {
		return nil, common.ErrorNotFound
	}

	share, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if share.Expired(s.now()) {
		return nil, common.ErrorNotFound
	}

	if share.IsEphemeral {
		if err := s.repo.ForceExpire(ctx, share.ID); err != nil {
			return nil, fmt.Errorf("burn ephemeral share: %w", err)
		}
		s.logger.Info(ctx, "ephemeral share burned", "code", share.Code)
	}

	token, err := shared.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	err = s.blobs.Put(ctx, tokenPrefix+token, strings.NewReader(token), blobstore.PutOptions{TTL: s.config.TokenTTL})
	if err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	return &ShareAccess{
		Share: share,
		Token: token,
		DueAt: presentDueAt(share.DueAt),
	}, nil
}

// FetchObject streams the stored bytes of the share with the given record
// id. The token is single-use: it is consumed here whether or not the read
// succeeds. Manifest-backed objects are reassembled chunk by chunk in
// manifest order.
func (s *ShareService) FetchObject(ctx context.Context, id, token string) (io.ReadCloser, *models.Share, error) {
	if err := s.consumeToken(ctx, token); err != nil {
		return nil, nil, err
	}

	share, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, meta, err := s.blobs.GetWithMetadata(ctx, share.ObjectID)
	if err != nil {
		return nil, nil, err
	}

	if len(meta) == 0 {
		return rc, share, nil
	}
	rc.Close()

	var manifest []models.ChunkRef
	if err := json.Unmarshal(meta, &manifest); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.streamManifest(ctx, manifest, pw))
	}()

	return pr, share, nil
}

func (s *ShareService) consumeToken(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrInvalidToken
	}

	rc, err := s.blobs.Get(ctx, tokenPrefix+token)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	rc.Close()

	return s.blobs.Delete(ctx, tokenPrefix+token)
}

func (s *ShareService) streamManifest(ctx context.Context, manifest []models.ChunkRef, w io.Writer) error {
	for _, ref := range manifest {
		rc, err := s.blobs.Get(ctx, ref.ObjectID)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", ref.ChunkID, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("chunk %d: %w", ref.ChunkID, err)
		}
	}
	return nil
}

// OpenChunkSession is the chunk-info operation: idempotent get-or-create of
// the session for (uuid, sha), returning the plan and the already-landed
// chunk ids so an interrupted upload resumes where it stopped.
func (s *ShareService) OpenChunkSession(ctx context.Context, session *chunks.Session) (*chunks.SessionState, error) {
	return s.sessions.Open(ctx, session)
}

// PutChunk lands one chunk of an open session.
func (s *ShareService) PutChunk(ctx context.Context, uuid, sha string, chunkID int, r io.Reader) error {
	return s.sessions.PutChunk(ctx, uuid, sha, chunkID, r)
}

// MergeChunkSession assembles a completed session into one object.
func (s *ShareService) MergeChunkSession(ctx context.Context, uuid, sha string) (string, error) {
	return s.sessions.Merge(ctx, uuid, sha)
}

// ShareList is one admin listing page.
type ShareList struct {
	Items []*models.Share
	Total int64
}

// ListShares returns one page of share records for the admin surface.
func (s *ShareService) ListShares(ctx context.Context, p shares.ListParams) (*ShareList, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}

	items, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &ShareList{Items: items, Total: total}, nil
}

// DeleteShares removes the given records and reclaims their stored objects
// best-effort.
func (s *ShareService) DeleteShares(ctx context.Context, ids []string) error {
	objectIDs, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return err
	}

	s.reclaimer.ReclaimObjects(ctx, objectIDs)
	return nil
}

// presentDueAt maps the never-expires sentinel to nil for callers.
func presentDueAt(t time.Time) *time.Time {
	if t.Equal(models.NeverExpires) {
		return nil
	}
	return &t
}
