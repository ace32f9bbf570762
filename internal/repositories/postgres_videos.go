package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, asset_status, created_at, updated_at`

func videoColumnsPrefixed(alias string) string {
	return alias + ".id, " + alias + ".owner_id, " + alias + ".title, " + alias + ".description, " +
		alias + ".video_url, " + alias + ".thumbnail_url, " + alias + ".duration, " + alias + ".views, " +
		alias + ".is_published, " + alias + ".asset_status, " + alias + ".created_at, " + alias + ".updated_at"
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.Duration, &v.Views, &v.IsPublished, &v.AssetStatus, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func scanVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.AssetStatus
	if status == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, asset_status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Views, video.IsPublished, status, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// ListByChannel returns a channel's videos, newest first. Unpublished videos
// are included only when requested (owner and dashboard views).
func (r *PostgresVideoRepository) ListByChannel(ctx context.Context, channelID string, includeUnpublished bool) ([]models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1 AND (is_published OR $2)
        ORDER BY created_at DESC
        LIMIT 100
    `, channelID, includeUnpublished)
	if err != nil {
		return nil, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// UpdateDetails modifies title, description, and thumbnail.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, video models.Video) error {
	return r.execOne(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, updated_at = now()
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.ThumbnailURL)
}

// Delete removes a video record.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM videos WHERE id = $1`, id)
}

// SetPublished flips the publish state.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, id string, published bool) error {
	return r.execOne(ctx, `UPDATE videos SET is_published = $2, updated_at = now() WHERE id = $1`, id, published)
}

// IncrementViews bumps the view counter.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
}

// MarkAssetReady records a successfully ingested asset.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, id, location string, duration float64) error {
	return r.execOne(ctx, `
        UPDATE videos
        SET asset_status = $2, video_url = $3, duration = $4, updated_at = now()
        WHERE id = $1
    `, id, models.AssetStatusReady, location, duration)
}

// MarkAssetFailed records a failed ingestion attempt.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, id string) error {
	return r.execOne(ctx, `
        UPDATE videos
        SET asset_status = $2, updated_at = now()
        WHERE id = $1
    `, id, models.AssetStatusFailed)
}

func (r *PostgresVideoRepository) execOne(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
