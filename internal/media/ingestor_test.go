package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type assetStorageStub struct {
	saved map[string][]byte
	err   error
}

func (s *assetStorageStub) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	_ = ctx
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[name] = data
	return fmt.Sprintf("https://cdn.example.com/%s", name), nil
}

type assetUpdaterStub struct {
	readyCalls    []string
	readyLoc      string
	readyDuration float64
	failedCalls   []string
	readyErr      error
	failedErr     error
}

func (s *assetUpdaterStub) MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error {
	_ = ctx
	s.readyCalls = append(s.readyCalls, videoID)
	s.readyLoc = location
	s.readyDuration = duration
	return s.readyErr
}

func (s *assetUpdaterStub) MarkAssetFailed(ctx context.Context, videoID string) error {
	_ = ctx
	s.failedCalls = append(s.failedCalls, videoID)
	return s.failedErr
}

func stagedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged.mp4")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return path
}

func TestIngestorSuccess(t *testing.T) {
	storage := &assetStorageStub{}
	updater := &assetUpdaterStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingestor.Shutdown(ctx)
	}()

	path := stagedFile(t, "video-bytes")
	job := Job{VideoID: "video-1", Path: path, Filename: "upload.mp4", Duration: 42.5}
	if err := ingestor.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return len(updater.readyCalls) > 0 }, time.Second)

	if _, ok := storage.saved["videos/video-1/upload.mp4"]; !ok {
		t.Fatalf("expected asset saved under the video prefix, got %v", storage.saved)
	}
	if updater.readyLoc == "" {
		t.Fatal("expected ready location to be populated")
	}
	if updater.readyDuration != 42.5 {
		t.Fatalf("unexpected duration: %v", updater.readyDuration)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected staged file to be removed")
	}
}

func TestIngestorUploadFailure(t *testing.T) {
	storage := &assetStorageStub{err: fmt.Errorf("bucket unavailable")}
	updater := &assetUpdaterStub{}
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, nil)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingestor.Shutdown(ctx)
	}()

	job := Job{VideoID: "video-2", Path: stagedFile(t, "video-bytes"), Filename: "upload.mp4"}
	if err := ingestor.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return len(updater.failedCalls) > 0 }, time.Second)
	if len(updater.readyCalls) != 0 {
		t.Fatal("expected no ready calls on failure")
	}
}

func TestIngestorMissingFile(t *testing.T) {
	storage := &assetStorageStub{}
	updater := &assetUpdaterStub{}
	ingestor := NewIngestor(storage, updater, IngestorConfig{QueueSize: 1, Workers: 1}, nil)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingestor.Shutdown(ctx)
	}()

	job := Job{VideoID: "video-3", Path: filepath.Join(t.TempDir(), "missing.mp4"), Filename: "upload.mp4"}
	if err := ingestor.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return len(updater.failedCalls) > 0 }, time.Second)
}

func TestIngestorEnqueueAfterShutdown(t *testing.T) {
	ingestor := NewIngestor(&assetStorageStub{}, &assetUpdaterStub{}, IngestorConfig{QueueSize: 1, Workers: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ingestor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := ingestor.Enqueue(context.Background(), Job{VideoID: "video-4"}); err == nil {
		t.Fatal("expected enqueue to fail after shutdown")
	}
}

func TestStageUpload(t *testing.T) {
	path, err := StageUpload(strings.NewReader("uploaded-bytes"))
	if err != nil {
		t.Fatalf("stage upload: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "uploaded-bytes" {
		t.Fatalf("unexpected staged contents: %q", data)
	}
}

func waitForCondition(t *testing.T, predicate func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
