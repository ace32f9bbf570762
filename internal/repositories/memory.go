package repositories

import (
	"context"
	"strings"
	"sync"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// InMemoryUserStore is a user store backed by an in-memory map.
type InMemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	history map[string][]string
}

// NewInMemoryUserStore constructs an empty store. It implements
// UserRepository with the same compare-and-swap rotation semantics as the
// Postgres repository, for tests and local development.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[string]models.User),
		history: make(map[string][]string),
	}
}

// Create persists the user, enforcing username/email uniqueness.
func (s *InMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}

	s.users[user.ID] = user
	return nil
}

// FindByID retrieves a user by primary key.
func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

// FindByLogin retrieves a user by username or email.
func (s *InMemoryUserStore) FindByLogin(_ context.Context, usernameOrEmail string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, usernameOrEmail) || strings.EqualFold(user.Email, usernameOrEmail) {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

// FindByUsername retrieves a user by handle.
func (s *InMemoryUserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

// UpdatePassword overwrites the stored hash.
func (s *InMemoryUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Password = passwordHash
	s.users[userID] = user
	return nil
}

// SetRefreshToken overwrites the session slot; empty clears it.
func (s *InMemoryUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

// RotateRefreshToken swaps the slot only when it still holds the expected
// value. The mutex makes the read-compare-write step atomic, mirroring the
// conditional UPDATE used by the Postgres store.
func (s *InMemoryUserStore) RotateRefreshToken(_ context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || user.RefreshToken != current {
		return auth.ErrRefreshMismatch
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

// UpdateAccount overwrites the full name and email, enforcing email
// uniqueness against other accounts.
func (s *InMemoryUserStore) UpdateAccount(_ context.Context, userID, fullName, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	for _, existing := range s.users {
		if existing.ID != userID && strings.EqualFold(existing.Email, email) {
			return models.User{}, ErrConflict
		}
	}

	user.FullName = fullName
	user.Email = email
	s.users[userID] = user
	return user, nil
}

// UpdateAvatar replaces the stored avatar URL.
func (s *InMemoryUserStore) UpdateAvatar(_ context.Context, userID, avatarURL string) error {
	return s.setImage(userID, func(user *models.User) { user.Avatar = avatarURL })
}

// UpdateCoverImage replaces the stored cover image URL.
func (s *InMemoryUserStore) UpdateCoverImage(_ context.Context, userID, coverURL string) error {
	return s.setImage(userID, func(user *models.User) { user.CoverImage = coverURL })
}

func (s *InMemoryUserStore) setImage(userID string, apply func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	apply(&user)
	s.users[userID] = user
	return nil
}

// ChannelProfile builds the public channel view. The store tracks no
// subscriptions, so the counts are always zero.
func (s *InMemoryUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return models.ChannelProfile{
				UserID:     user.ID,
				Username:   user.Username,
				FullName:   user.FullName,
				Avatar:     user.Avatar,
				CoverImage: user.CoverImage,
			}, nil
		}
	}
	return models.ChannelProfile{}, ErrNotFound
}

// AddWatchHistory records a view, keeping one entry per video with the most
// recent view first.
func (s *InMemoryUserStore) AddWatchHistory(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return auth.ErrUserNotFound
	}

	entries := s.history[userID]
	kept := make([]string, 0, len(entries)+1)
	kept = append(kept, videoID)
	for _, id := range entries {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	s.history[userID] = kept
	return nil
}

// WatchHistory lists watched videos, newest first. The store holds no video
// rows, so entries carry only the id.
func (s *InMemoryUserStore) WatchHistory(_ context.Context, userID string) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[userID]
	videos := make([]models.Video, 0, len(entries))
	for _, id := range entries {
		videos = append(videos, models.Video{ID: id})
	}
	return videos, nil
}

// RefreshTokenOf reports the current slot value. Useful for tests.
func (s *InMemoryUserStore) RefreshTokenOf(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].RefreshToken
}

var (
	_ auth.UserStore = (*InMemoryUserStore)(nil)
	_ UserRepository = (*InMemoryUserStore)(nil)
)
