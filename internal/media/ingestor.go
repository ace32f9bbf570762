package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidtube/backend/internal/logging"
)

// AssetStorage persists media content and returns its public location.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// AssetUpdater records the outcome of an ingestion attempt on the video row.
type AssetUpdater interface {
	MarkAssetReady(ctx context.Context, id, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, id string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize     int
	Workers       int
	UploadsPerSec int
}

// Job describes a staged video asset awaiting upload. The file at Path is
// owned by the ingestor once enqueued and is removed when the job finishes.
type Job struct {
	VideoID  string
	Path     string
	Filename string
	Duration float64
}

// Ingestor pushes staged video uploads to object storage in the background
// so publish requests return as soon as the asset is staged locally. Uploads
// are paced by a rate limiter to keep a publish burst from saturating the
// uplink to the object store.
type Ingestor struct {
	storage AssetStorage
	updater AssetUpdater
	limiter *rate.Limiter
	logger  *slog.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errIngestorClosed = errors.New("media ingestor closed")

// NewIngestor constructs a background worker pool that persists video assets.
func NewIngestor(storage AssetStorage, updater AssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.UploadsPerSec <= 0 {
		cfg.UploadsPerSec = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		storage: storage,
		updater: updater,
		limiter: rate.NewLimiter(rate.Limit(cfg.UploadsPerSec), cfg.UploadsPerSec),
		logger:  logger,
		jobs:    make(chan Job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules asset persistence for the supplied job.
func (i *Ingestor) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *Ingestor) handleJob(job Job) {
	defer func() {
		if err := os.Remove(job.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.logger.Warn("remove staged asset", "videoId", job.VideoID, "path", job.Path, "error", err)
		}
	}()

	if i.storage == nil || i.updater == nil {
		i.logger.Error("media ingestor missing dependencies", "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithLogger(ctx, i.logger), "media.ingest")
	defer span.End()

	if err := i.limiter.Wait(ctx); err != nil {
		i.logger.Error("asset upload rate wait", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	file, err := os.Open(job.Path)
	if err != nil {
		i.logger.Error("open staged asset", "videoId", job.VideoID, "path", job.Path, "error", err)
		i.recordFailure(job.VideoID)
		return
	}
	defer file.Close()

	key := path.Join("videos", job.VideoID, job.Filename)
	location, err := i.storage.Save(ctx, key, file)
	if err != nil {
		i.logger.Error("asset upload failed", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	if err := i.recordSuccess(job.VideoID, location, job.Duration); err != nil {
		i.logger.Error("mark asset ready", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
	}
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, videoID); err != nil {
		i.logger.Error("record asset failure", "videoId", videoID, "error", err)
	}
}

func (i *Ingestor) recordSuccess(videoID, location string, duration float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return i.updater.MarkAssetReady(ctx, videoID, location, duration)
}

// StageUpload copies an uploaded part to a temp file so the HTTP request can
// complete before the object-store upload happens.
func StageUpload(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "vidtube-upload-*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return tmp.Name(), nil
}
