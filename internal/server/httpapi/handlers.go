package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/filedrop/internal/api"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/chunks"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/shares"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

// maxChunkBody caps a single chunk upload. Clients send 5 MiB chunks; the
// slack covers multipart framing.
const maxChunkBody = 8 << 20

// handleCreateShare implements PUT /files. The body is a multipart form
// carrying either a "file" part (direct path) or a "fileInfo" JSON field
// referencing pre-uploaded chunked content, plus the share options.
func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	maxBody := s.config.ShareMaxSizeMB<<20 + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(maxBody); err != nil {
		writeError(w, fmt.Errorf("%w: content larger than %d MiB", common.ErrorTooLarge, s.config.ShareMaxSizeMB))
		return
	}

	params := services.CreateShareParams{
		IsEphemeral: r.FormValue("ephemeral") == "true",
		IsEncrypted: r.FormValue("encrypted") == "true",
		Duration:    r.FormValue("duration"),
	}

	if infoField := r.FormValue("fileInfo"); infoField != "" {
		var info api.FileInfo
		if err := json.Unmarshal([]byte(infoField), &info); err != nil {
			writeError(w, fmt.Errorf("%w: bad fileInfo", common.ErrorBadChunk))
			return
		}
		params.ObjectID = info.ObjectID
		params.Filename = info.Name
		params.MimeType = info.Type
		params.SizeBytes = info.Size
		params.ContentHash = info.SHA
		for _, ref := range info.Chunks {
			params.Manifest = append(params.Manifest, models.ChunkRef{ChunkID: ref.ChunkID, ObjectID: ref.ObjectID})
		}
	} else {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, common.ErrorEmptyContent)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, err)
			return
		}

		params.Content = content
		params.Filename = header.Filename
		params.MimeType = header.Header.Get("Content-Type")
		if params.MimeType == "" {
			params.MimeType = "text/plain"
		}
	}

	result, err := s.shares.CreateShare(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, api.ShareCreated{Code: result.Code, Hash: result.Hash, DueAt: result.DueAt})
}

// handleChunkInfo implements POST /files/chunks: idempotent open/resume of
// a chunk session.
func (s *Server) handleChunkInfo(w http.ResponseWriter, r *http.Request) {
	var req api.ChunkSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad session request", common.ErrorBadChunk))
		return
	}

	session := &chunks.Session{UUID: req.UUID, SHA: req.SHA, Size: req.Size}
	for _, c := range req.Chunks {
		session.Chunks = append(session.Chunks, chunks.ChunkSize{ChunkID: c.ChunkID, Size: c.Size})
	}

	state, err := s.shares.OpenChunkSession(r.Context(), session)
	if err != nil {
		writeError(w, err)
		return
	}

	info := api.ChunkSessionInfo{
		ChunkSessionRequest: api.ChunkSessionRequest{UUID: state.UUID, SHA: state.SHA, Size: state.Size},
		Finished:            state.Finished,
	}
	for _, c := range state.Chunks {
		info.Chunks = append(info.Chunks, api.ChunkSpec{ChunkID: c.ChunkID, Size: c.Size})
	}

	writeData(w, info)
}

// handlePutChunk implements PUT /files/chunks: one chunk lands.
func (s *Server) handlePutChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBody)

	if err := r.ParseMultipartForm(maxChunkBody); err != nil {
		writeError(w, common.ErrorBadChunk)
		return
	}

	uuid := r.FormValue("uuid")
	sha := r.FormValue("sha")
	chunkID, err := strconv.Atoi(r.FormValue("chunkId"))
	if err != nil {
		writeError(w, common.ErrorBadChunk)
		return
	}

	chunk, _, err := r.FormFile("chunk")
	if err != nil {
		writeError(w, common.ErrorBadChunk)
		return
	}
	defer chunk.Close()

	if err := s.shares.PutChunk(r.Context(), uuid, sha, chunkID, chunk); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// handleMergeChunks implements POST /files/chunks/merged.
func (s *Server) handleMergeChunks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UUID string `json:"uuid"`
		SHA  string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad merge request", common.ErrorBadChunk))
		return
	}

	objectID, err := s.shares.MergeChunkSession(r.Context(), req.UUID, req.SHA)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, objectID)
}

// handleShareCode implements GET /files/share/{code}.
func (s *Server) handleShareCode(w http.ResponseWriter, r *http.Request) {
	access, err := s.shares.GetShareByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, shareInfoFromAccess(access))
}

// handleFetchObject implements GET /files/{id}?token=...: streams the
// stored bytes, reassembling chunk sets on the fly.
func (s *Server) handleFetchObject(w http.ResponseWriter, r *http.Request) {
	rc, share, err := s.shares.FetchObject(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	contentType := share.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if share.Filename != "" && !share.IsEncrypted {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", share.Filename))
	}

	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error(r.Context(), "object stream aborted", "share", share.ID, "error", err)
	}
}

// handleListShares implements GET /api/admin/shares.
func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = 10
	}

	list, err := s.shares.ListShares(r.Context(), shares.ListParams{
		Limit:   size,
		Offset:  page * size,
		OrderBy: q.Get("orderBy"),
		Desc:    q.Get("order") == "desc",
	})
	if err != nil {
		writeError(w, err)
		return
	}

	payload := api.ShareListPage{Total: list.Total, Page: page, Size: size}
	for _, item := range list.Items {
		payload.Items = append(payload.Items, shareListItem(item))
	}

	writeData(w, payload)
}

// handleDeleteShares implements DELETE /api/admin/shares with a JSON array
// of record ids.
func (s *Server) handleDeleteShares(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(w, fmt.Errorf("%w: bad id list", common.ErrorBadChunk))
		return
	}

	if err := s.shares.DeleteShares(r.Context(), ids); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, nil)
}

func shareInfoFromAccess(access *services.ShareAccess) api.ShareInfo {
	return api.ShareInfo{
		ID:          access.Share.ID,
		Code:        access.Share.Code,
		Filename:    access.Share.Filename,
		Type:        access.Share.MimeType,
		Hash:        access.Share.ContentHash,
		Size:        access.Share.SizeBytes,
		IsEphemeral: access.Share.IsEphemeral,
		IsEncrypted: access.Share.IsEncrypted,
		DueAt:       access.DueAt,
		Token:       access.Token,
	}
}

func shareListItem(share *models.Share) api.ShareListItem {
	item := api.ShareListItem{
		ID:          share.ID,
		Code:        share.Code,
		Filename:    share.Filename,
		Type:        share.MimeType,
		Hash:        share.ContentHash,
		Size:        share.SizeBytes,
		IsEphemeral: share.IsEphemeral,
		IsEncrypted: share.IsEncrypted,
		CreatedAt:   share.CreatedAt,
	}
	if !share.DueAt.Equal(models.NeverExpires) {
		due := share.DueAt
		item.DueAt = &due
	}
	return item
}
