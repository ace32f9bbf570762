package app

import (
	"context"
	"log/slog"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/stats"
	"github.com/vidtube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned ingestor must be shut down when the server stops so
// staged uploads drain before the process exits.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Ingestor, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	issuer := auth.NewTokenIssuer(cfg.Tokens)
	hasher := auth.NewPasswordHasher(cfg.PasswordCost, cfg.HashingConcurrency)
	sessions := auth.NewManager(users, issuer, hasher)

	mediaStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	ingestor := media.NewIngestor(mediaStore, videos, media.IngestorConfig{
		QueueSize:     cfg.IngestQueueSize,
		Workers:       cfg.IngestWorkers,
		UploadsPerSec: cfg.IngestUploadsPerSec,
	}, logger)

	statsProvider := stats.NewCachingProvider(repositories.NewPostgresStatsRepository(pool), cfg.StatsCacheTTL)

	deps := handlers.Dependencies{
		Sessions:      sessions,
		TokenVerifier: issuer,
		Users:         users,
		Videos:        videos,
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Stats:         statsProvider,
		Storage:       mediaStore,
		Ingest:        ingestor,
	}

	return deps, ingestor, nil
}
