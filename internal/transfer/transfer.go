// Package transfer orchestrates file operations against the Cloudbox
// server: sequential multi-file upload with per-file progress, listing,
// download, and delete. All network traffic goes through the api.Client,
// so every operation inherits the single-flight refresh behavior.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Shobayosamuel/cloudbox-go/internal/api"
)

// FileItem is one stored file owned by the authenticated user. The listing
// is server-owned; the client never caches it across calls — re-list after
// any mutation.
type FileItem struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// ProgressFunc receives upload progress for the file currently
// transferring, as a 0-100 percentage. Progress restarts from zero for
// each file in a batch.
type ProgressFunc func(name string, percent float64)

// Source is one file to upload. Open is called once when the file's turn
// in the sequence arrives.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource builds a Source from a local path.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// UploadError records one file that failed during a batch upload.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("transfer: uploading %s: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// BatchResult is the partial-failure outcome of a multi-file upload: which
// files made it and which did not. One file failing never aborts the rest
// of the sequence.
type BatchResult struct {
	Uploaded []FileItem
	Failed   []*UploadError
}

// Manager runs file transfers on top of the authenticated client.
type Manager struct {
	client *api.Client
	logger *slog.Logger
}

// NewManager creates a transfer Manager.
func NewManager(client *api.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{client: client, logger: logger}
}

// List fetches the current file listing. Read-through: no local cache.
func (m *Manager) List(ctx context.Context) ([]FileItem, error) {
	var items []FileItem
	if err := m.client.GetJSON(ctx, "/files", &items); err != nil {
		return nil, err
	}

	return items, nil
}

// Upload transfers the sources one at a time, in order. Each file's upload
// settles (success or failure) before the next begins — this bounds peak
// bandwidth and memory and gives the caller a single deterministic
// progress stream. Per-file failures are collected into the batch result;
// only context cancellation stops the sequence early, and the partial
// result is returned alongside the context error.
func (m *Manager) Upload(ctx context.Context, sources []Source, progress ProgressFunc) (*BatchResult, error) {
	result := &BatchResult{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("transfer: upload batch canceled: %w", err)
		}

		item, err := m.uploadOne(ctx, src, progress)
		if err != nil {
			m.logger.Warn("file upload failed, continuing batch",
				slog.String("name", src.Name),
				slog.String("error", err.Error()),
			)

			result.Failed = append(result.Failed, &UploadError{Name: src.Name, Err: err})

			continue
		}

		m.logger.Info("file uploaded",
			slog.String("name", item.FileName),
			slog.Int64("size", item.FileSize),
		)

		result.Uploaded = append(result.Uploaded, *item)
	}

	return result, nil
}

// uploadOne sends a single file as a multipart request. The multipart body
// is materialized up front so the byte total is known for percentage
// progress, and so the request can be replayed intact if it gets queued
// behind a token refresh.
func (m *Manager) uploadOne(ctx context.Context, src Source, progress ProgressFunc) (*FileItem, error) {
	f, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src.Name, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", src.Name)
	if err != nil {
		return nil, fmt.Errorf("building multipart body for %s: %w", src.Name, err)
	}

	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.Name, err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body for %s: %w", src.Name, err)
	}

	body := buf.Bytes()
	total := int64(len(body))

	req := &api.Request{
		Method: http.MethodPost,
		Path:   "/files/upload",
		Header: http.Header{"Content-Type": {mw.FormDataContentType()}},
		// Fresh reader per attempt: a replay after refresh restarts the
		// progress stream from zero, matching what the transport resends.
		GetBody: func() (io.Reader, error) {
			return newProgressReader(bytes.NewReader(body), total, src.Name, progress), nil
		},
	}

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var item FileItem
	if decErr := json.NewDecoder(resp.Body).Decode(&item); decErr != nil {
		return nil, fmt.Errorf("decoding upload response: %w", decErr)
	}

	return &item, nil
}

// Download streams a file's content to w and returns the byte count. The
// payload is opaque; the caller owns persistence.
func (m *Manager) Download(ctx context.Context, fileID int64, w io.Writer) (int64, error) {
	req := &api.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/files/%d/download", fileID),
	}

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("transfer: streaming download of file %d: %w", fileID, err)
	}

	m.logger.Debug("download complete",
		slog.Int64("file_id", fileID),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// DownloadToFile downloads into targetPath with .partial safety: stream to
// a .partial sibling, then atomically rename into place, so a failed
// download never leaves a truncated file at the final path.
func (m *Manager) DownloadToFile(ctx context.Context, fileID int64, targetPath string) (int64, error) {
	if targetPath == "" {
		return 0, fmt.Errorf("transfer: target path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o700); err != nil {
		return 0, fmt.Errorf("transfer: creating parent dir for %s: %w", targetPath, err)
	}

	partialPath := targetPath + ".partial"

	f, err := os.OpenFile(partialPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("transfer: creating partial file %s: %w", partialPath, err)
	}

	n, dlErr := m.Download(ctx, fileID, f)

	if closeErr := f.Close(); closeErr != nil && dlErr == nil {
		dlErr = fmt.Errorf("transfer: closing partial file %s: %w", partialPath, closeErr)
	}

	if dlErr != nil {
		os.Remove(partialPath)
		return 0, dlErr
	}

	if err := os.Rename(partialPath, targetPath); err != nil {
		os.Remove(partialPath)
		return 0, fmt.Errorf("transfer: renaming partial to %s: %w", targetPath, err)
	}

	return n, nil
}

// Delete removes a stored file. Deleting an id the server no longer knows
// surfaces api.ErrNotFound, which callers treat as a benign outcome.
func (m *Manager) Delete(ctx context.Context, fileID int64) error {
	return m.client.Delete(ctx, fmt.Sprintf("/files/%d", fileID))
}
