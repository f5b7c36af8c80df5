package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shobayosamuel/cloudbox-go/internal/transfer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUploader records upload batches without touching the network.
type fakeUploader struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeUploader) Upload(_ context.Context, sources []transfer.Source, _ transfer.ProgressFunc) (*transfer.BatchResult, error) {
	result := &transfer.BatchResult{}

	names := make([]string, 0, len(sources))

	for _, src := range sources {
		names = append(names, src.Name)
		result.Uploaded = append(result.Uploaded, transfer.FileItem{FileName: src.Name})
	}

	f.mu.Lock()
	f.batches = append(f.batches, names)
	f.mu.Unlock()

	return result, nil
}

func (f *fakeUploader) uploadedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, batch := range f.batches {
		names = append(names, batch...)
	}

	return names
}

func TestRunRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	w := New(&fakeUploader{}, testLogger(), time.Millisecond)

	assert.Error(t, w.Run(context.Background(), file))
	assert.Error(t, w.Run(context.Background(), filepath.Join(t.TempDir(), "missing")))
}

func TestWatchUploadsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	uploads := &fakeUploader{}

	w := New(uploads, testLogger(), 10*time.Millisecond)

	results := make(chan *transfer.BatchResult, 10)
	w.OnResult(func(r *transfer.BatchResult) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	// Give the watcher a moment to register before dropping the file in.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.txt"), []byte("payload"), 0o600))

	select {
	case r := <-results:
		require.Len(t, r.Uploaded, 1)
		assert.Equal(t, "drop.txt", r.Uploaded[0].FileName)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for upload")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	uploads := &fakeUploader{}

	w := New(uploads, testLogger(), 10*time.Millisecond)

	results := make(chan *transfer.BatchResult, 10)
	w.OnResult(func(r *transfer.BatchResult) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0o600))

	select {
	case r := <-results:
		require.Len(t, r.Uploaded, 1)
		assert.Equal(t, "visible.txt", r.Uploaded[0].FileName)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for upload")
	}

	assert.NotContains(t, uploads.uploadedNames(), ".hidden")

	cancel()
	require.NoError(t, <-done)
}

func TestWatchDebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	uploads := &fakeUploader{}

	// Long settle delay relative to the write cadence below.
	w := New(uploads, testLogger(), 100*time.Millisecond)

	results := make(chan *transfer.BatchResult, 10)
	w.OnResult(func(r *transfer.BatchResult) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	time.Sleep(50 * time.Millisecond)

	// A file written in several bursts must upload once, after it settles.
	path := filepath.Join(dir, "growing.txt")

	for i := 0; i < 3; i++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		require.NoError(t, err)

		_, err = f.WriteString("chunk\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		time.Sleep(20 * time.Millisecond)
	}

	select {
	case r := <-results:
		require.Len(t, r.Uploaded, 1)
		assert.Equal(t, "growing.txt", r.Uploaded[0].FileName)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for upload")
	}

	// No second upload follows once the file is quiet.
	select {
	case r := <-results:
		t.Fatalf("unexpected second upload: %+v", r)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
