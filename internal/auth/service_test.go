package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"converse/config"
	"converse/infrastructure"
	"converse/internal/database"
	"converse/internal/models"
	"converse/internal/user"
)

// memRevoker is an in-process stand-in for the Redis store.
type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: make(map[string]bool)}
}

func (m *memRevoker) Revoke(_ context.Context, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[token] = true
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[token], nil
}

func newTestService(t *testing.T) (*Service, *memRevoker) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}))

	users := user.NewService(&database.Database{DB: gdb})
	tokens := NewManager(&config.Config{JWTSecret: []byte("test-secret")})
	revoker := newMemRevoker()
	return NewService(users, tokens, revoker, nil, zap.NewNop()), revoker
}

const strongPassword = "correct-horse-battery-staple-42"

func TestSignup(t *testing.T) {
	s, _ := newTestService(t)

	u, pair, err := s.Signup(context.Background(), "alice@example.com", strongPassword, "Alice", "")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.Contains(t, u.Picture, "dicebear", "missing picture gets a generated avatar")

	userID, err := s.tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
}

func TestSignupDefaultsNameFromEmail(t *testing.T) {
	s, _ := newTestService(t)

	u, _, err := s.Signup(context.Background(), "bob@example.com", strongPassword, "", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Name)
}

func TestSignupRejections(t *testing.T) {
	s, _ := newTestService(t)

	_, _, err := s.Signup(context.Background(), "", strongPassword, "", "")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidInput)

	_, _, err = s.Signup(context.Background(), "alice@example.com", "weak", "", "")
	assert.ErrorIs(t, err, infrastructure.ErrWeakPassword)

	_, _, err = s.Signup(context.Background(), "alice@example.com", strongPassword, "", "")
	require.NoError(t, err)
	_, _, err = s.Signup(context.Background(), "alice@example.com", strongPassword, "", "")
	assert.ErrorIs(t, err, infrastructure.ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	s, _ := newTestService(t)
	created, _, err := s.Signup(context.Background(), "alice@example.com", strongPassword, "Alice", "")
	require.NoError(t, err)

	u, pair, err := s.Login(context.Background(), "alice@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = s.Login(context.Background(), "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)

	_, _, err = s.Login(context.Background(), "nobody@example.com", strongPassword)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}

func TestRefreshRotatesPair(t *testing.T) {
	s, _ := newTestService(t)
	u, pair, err := s.Signup(context.Background(), "alice@example.com", strongPassword, "", "")
	require.NoError(t, err)

	next, err := s.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	userID, err := s.tokens.VerifyAccessToken(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	_, err = s.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, infrastructure.ErrInvalidToken, "access token cannot refresh")
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	s, revoker := newTestService(t)
	_, pair, err := s.Signup(context.Background(), "alice@example.com", strongPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background(), pair.RefreshToken))
	assert.True(t, revoker.revoked[pair.RefreshToken])

	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, infrastructure.ErrTokenRevoked)
}
