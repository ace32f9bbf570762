package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/models"
)

// memUserStore is a minimal UserStore with the same compare-and-swap
// rotation and uniqueness semantics as the real repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

var errDuplicateUser = errors.New("username or email already taken")

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (s *memUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return errDuplicateUser
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) FindByLogin(_ context.Context, usernameOrEmail string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == usernameOrEmail || user.Email == usernameOrEmail {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s *memUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Password = passwordHash
	s.users[userID] = user
	return nil
}

func (s *memUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *memUserStore) RotateRefreshToken(_ context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok || user.RefreshToken != current {
		return ErrRefreshMismatch
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *memUserStore) slot(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].RefreshToken
}

func newTestManager(t *testing.T) (*Manager, *memUserStore) {
	t.Helper()
	store := newMemUserStore()
	manager := NewManager(store, testIssuer(time.Minute, time.Hour), NewPasswordHasher(bcrypt.MinCost, 4))
	return manager, store
}

func registerTestUser(t *testing.T, manager *Manager) models.User {
	t.Helper()
	user, err := manager.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
		Password: "supersafe",
		Avatar:   "avatars/alice.png",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestManagerRegister(t *testing.T) {
	manager, store := newTestManager(t)

	user := registerTestUser(t, manager)
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.Password != "" {
		t.Fatal("returned user must not carry the password hash")
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestManagerRegisterValidation(t *testing.T) {
	manager, _ := newTestManager(t)

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.com", FullName: "A", Password: "x", Avatar: "a.png"}},
		{"missing email", RegisterInput{Username: "a", FullName: "A", Password: "x", Avatar: "a.png"}},
		{"missing password", RegisterInput{Username: "a", Email: "a@b.com", FullName: "A", Avatar: "a.png"}},
		{"missing avatar", RegisterInput{Username: "a", Email: "a@b.com", FullName: "A", Password: "x"}},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", FullName: "A", Password: "x", Avatar: "a.png"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := manager.Register(context.Background(), tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput got %v", err)
			}
		})
	}
}

func TestManagerRegisterCaseInsensitiveDuplicate(t *testing.T) {
	manager, store := newTestManager(t)
	registerTestUser(t, manager)

	_, err := manager.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Email:    "ALICE@EXAMPLE.COM",
		FullName: "Alice Again",
		Password: "supersafe",
		Avatar:   "avatars/alice2.png",
	})
	if !errors.Is(err, errDuplicateUser) {
		t.Fatalf("mixed-case duplicate must conflict, got %v", err)
	}

	// The handle and email are normalized before storage.
	user, err := store.FindByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("find by login: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected lowercase handle and email, got %q %q", user.Username, user.Email)
	}
}

func TestManagerLogin(t *testing.T) {
	manager, store := newTestManager(t)
	user := registerTestUser(t, manager)

	got, tokens, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s got %s", user.ID, got.ID)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if store.slot(user.ID) != tokens.RefreshToken {
		t.Fatal("login must store the issued refresh token in the slot")
	}

	// Email works as the login identifier too.
	if _, _, err := manager.Login(context.Background(), "alice@example.com", "supersafe"); err != nil {
		t.Fatalf("login by email: %v", err)
	}
}

func TestManagerLoginFailures(t *testing.T) {
	manager, _ := newTestManager(t)
	registerTestUser(t, manager)

	if _, _, err := manager.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "nobody", "supersafe"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user must not be distinguishable, got %v", err)
	}
}

func TestManagerSecondLoginInvalidatesFirstSession(t *testing.T) {
	manager, _ := newTestManager(t)
	registerTestUser(t, manager)

	_, first, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "alice", "supersafe"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("first session refresh token must be rejected, got %v", err)
	}
}

func TestManagerRefreshRotation(t *testing.T) {
	manager, store := newTestManager(t)
	user := registerTestUser(t, manager)

	_, tokens, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if store.slot(user.ID) != rotated.RefreshToken {
		t.Fatal("slot must hold the rotated token")
	}

	// The superseded token is single-use: presenting it again must fail.
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch got %v", err)
	}

	// The rotated token still works.
	if _, err := manager.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestManagerRefreshRejectsGarbage(t *testing.T) {
	manager, _ := newTestManager(t)

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken got %v", err)
	}
	if _, err := manager.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid got %v", err)
	}
}

func TestManagerConcurrentRefreshSingleWinner(t *testing.T) {
	manager, _ := newTestManager(t)
	registerTestUser(t, manager)

	_, tokens, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = manager.Refresh(context.Background(), tokens.RefreshToken)
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrRefreshMismatch):
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning refresh, got %d", winners)
	}
}

func TestManagerLogoutIsFinal(t *testing.T) {
	manager, store := newTestManager(t)
	user := registerTestUser(t, manager)

	_, tokens, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if store.slot(user.ID) != "" {
		t.Fatal("logout must clear the session slot")
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}
}

func TestManagerChangePassword(t *testing.T) {
	manager, store := newTestManager(t)
	user := registerTestUser(t, manager)

	_, tokens, err := manager.Login(context.Background(), "alice", "supersafe")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.ChangePassword(context.Background(), user.ID, "wrong", "newpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}

	if err := manager.ChangePassword(context.Background(), user.ID, "supersafe", "newpassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	// Changing the password does not revoke the session: the slot and its
	// refresh token survive until rotation or logout.
	if store.slot(user.ID) != tokens.RefreshToken {
		t.Fatal("session slot must survive a password change")
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("refresh after password change: %v", err)
	}

	if _, _, err := manager.Login(context.Background(), "alice", "supersafe"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "alice", "newpassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
