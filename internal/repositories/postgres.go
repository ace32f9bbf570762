package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users
// and their embedded session slot.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByLogin fetches a user by username or email, matched case-insensitively.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (models.User, error) {
	return r.findOne(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = lower($1) OR email = lower($1)
    `, usernameOrEmail)
}

// FindByUsername fetches a user by their (lowercase) handle.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = lower($1)`, username)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, args ...any) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, query, args...)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar,
		&user.CoverImage, &user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateAccount changes the mutable profile fields and returns the updated row.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = $2, email = lower($3), updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns+`
    `, userID, fullName, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar,
		&user.CoverImage, &user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update account: %w", err)
	}

	return user, nil
}

// UpdateAvatar replaces the avatar reference.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	return r.execOne(ctx, `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`, userID, avatarURL)
}

// UpdateCoverImage replaces the cover image reference.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, userID, coverURL string) error {
	return r.execOne(ctx, `UPDATE users SET cover_image = $2, updated_at = now() WHERE id = $1`, userID, coverURL)
}

// UpdatePassword overwrites the stored credential hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
}

// SetRefreshToken overwrites the session slot; an empty token clears it.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.execOne(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($2, ''), updated_at = now()
        WHERE id = $1
    `, userID, token)
}

// RotateRefreshToken swaps the session slot from current to next in a single
// conditional update. When the slot no longer holds the expected value the
// update matches zero rows and the rotation is rejected, which is what makes
// two concurrent refreshes of the same token resolve to exactly one winner.
func (r *PostgresUserRepository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, updated_at = now()
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrRefreshMismatch
	}

	return nil
}

// ChannelProfile loads the public channel view for a username, including
// whether the viewer subscribes to it.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar, u.cover_image,
               (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2)
        FROM users u
        WHERE u.username = lower($1)
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.UserID, &profile.Username, &profile.FullName, &profile.Avatar,
		&profile.CoverImage, &profile.Subscribers, &profile.SubscribedTo, &profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, auth.ErrUserNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// AddWatchHistory records that the user watched a video; re-watching
// refreshes the timestamp.
func (r *PostgresUserRepository) AddWatchHistory(ctx context.Context, userID, videoID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, now())
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = now()
    `, userID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert watch history: %w", err)
	}

	return nil
}

// WatchHistory lists the user's watched videos, most recent first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumnsPrefixed("v")+`
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        WHERE wh.user_id = $1
        ORDER BY wh.watched_at DESC
        LIMIT 100
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *PostgresUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ auth.UserStore = (*PostgresUserRepository)(nil)
