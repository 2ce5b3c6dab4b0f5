// Package client is the HTTP client for the filedrop API. It mirrors the
// server's endpoints one method per operation and unwraps the
// {result, message, data} envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/api"
	"github.com/dmitrijs2005/filedrop/internal/common"
)

// ShareOptions carries the user-chosen share settings.
type ShareOptions struct {
	Ephemeral bool
	Encrypted bool
	Duration  string
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// CreateShareDirect uploads content in one request (the small-file path).
func (c *Client) CreateShareDirect(ctx context.Context, content []byte, filename, mimeType string, opts ShareOptions) (*api.ShareCreated, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writeOptions(form, opts); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	return c.putShare(ctx, &body, form.FormDataContentType())
}

// CreateShareFromInfo registers pre-uploaded chunked content: either one
// merged object id or a chunk-set manifest.
func (c *Client) CreateShareFromInfo(ctx context.Context, info api.FileInfo, opts ShareOptions) (*api.ShareCreated, error) {
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("fileInfo", string(infoJSON)); err != nil {
		return nil, err
	}
	if err := writeOptions(form, opts); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	return c.putShare(ctx, &body, form.FormDataContentType())
}

func (c *Client) putShare(ctx context.Context, body io.Reader, contentType string) (*api.ShareCreated, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/files", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var created api.ShareCreated
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// OpenChunkSession requests the chunk plan and the set of chunk ids already
// landed, creating the session when none exists.
func (c *Client) OpenChunkSession(ctx context.Context, session api.ChunkSessionRequest) (*api.ChunkSessionInfo, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/chunks", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var info api.ChunkSessionInfo
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PutChunk uploads one chunk of an open session.
func (c *Client) PutChunk(ctx context.Context, uuid, sha string, chunkID int, chunk []byte) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("chunk", "chunk")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"chunkId": strconv.Itoa(chunkID),
		"uuid":    uuid,
		"sha":     sha,
	} {
		if err := form.WriteField(field, value); err != nil {
			return err
		}
	}
	if err := form.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/files/chunks", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.do(req, nil)
}

// MergeChunkSession asks the server to assemble a completed session and
// returns the merged object id.
func (c *Client) MergeChunkSession(ctx context.Context, uuid, sha string) (string, error) {
	payload, err := json.Marshal(map[string]string{"uuid": uuid, "sha": sha})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/chunks/merged", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var objectID string
	if err := c.do(req, &objectID); err != nil {
		return "", err
	}
	return objectID, nil
}

// GetShareByCode resolves a share code to its metadata and one-time token.
func (c *Client) GetShareByCode(ctx context.Context, code string) (*api.ShareInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/share/"+code, nil)
	if err != nil {
		return nil, err
	}

	var info api.ShareInfo
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchObject streams the stored bytes of a share. The caller owns the
// returned reader.
func (c *Client) FetchObject(ctx context.Context, id, token string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+id+"?token="+token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	return resp.Body, nil
}

// do executes the request and decodes the envelope's data into out (when
// non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}

	var envelope api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Result {
		return fmt.Errorf("server: %s", envelope.Message)
	}

	return json.Unmarshal(envelope.Data, out)
}

func writeOptions(form *multipart.Writer, opts ShareOptions) error {
	fields := map[string]string{
		"ephemeral": strconv.FormatBool(opts.Ephemeral),
		"encrypted": strconv.FormatBool(opts.Encrypted),
	}
	if opts.Duration != "" {
		fields["duration"] = opts.Duration
	}
	for field, value := range fields {
		if err := form.WriteField(field, value); err != nil {
			return err
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return common.ErrorNotFound
	}

	var envelope api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
		return fmt.Errorf("server: %s", envelope.Message)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
