package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"converse/infrastructure"
	"converse/internal/database"
	"converse/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}))
	return NewService(&database.Database{DB: gdb})
}

func create(t *testing.T, s *Service, email string) *models.User {
	t.Helper()
	u, err := s.Create(context.Background(), CreateInput{
		Email:    email,
		Password: "correct-horse-battery-staple-42",
		Name:     "someone",
		Picture:  "https://example.com/p.png",
	})
	require.NoError(t, err)
	return u
}

func TestCreateHashesPassword(t *testing.T) {
	s := newTestService(t)

	u := create(t, s, "alice@example.com")
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "correct-horse-battery-staple-42", u.Password)

	authed, err := s.Authenticate(context.Background(), "alice@example.com", "correct-horse-battery-staple-42")
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)
}

func TestCreateRejectsDuplicateAndWeakPassword(t *testing.T) {
	s := newTestService(t)
	create(t, s, "alice@example.com")

	_, err := s.Create(context.Background(), CreateInput{
		Email:    "alice@example.com",
		Password: "correct-horse-battery-staple-42",
	})
	assert.ErrorIs(t, err, infrastructure.ErrUserAlreadyExists)

	_, err = s.Create(context.Background(), CreateInput{
		Email:    "bob@example.com",
		Password: "12345",
	})
	assert.ErrorIs(t, err, infrastructure.ErrWeakPassword)
}

func TestGetUnknownUser(t *testing.T) {
	s := newTestService(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, infrastructure.ErrUserNotFound)
}

func TestList(t *testing.T) {
	s := newTestService(t)
	create(t, s, "alice@example.com")
	create(t, s, "bob@example.com")

	users, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestService(t)
	u := create(t, s, "alice@example.com")

	updated, err := s.UpdateProfile(context.Background(), u.ID, "Alice B", "")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, u.Picture, updated.Picture, "empty fields are left alone")

	_, err = s.UpdateProfile(context.Background(), "missing", "x", "")
	assert.ErrorIs(t, err, infrastructure.ErrUserNotFound)
}
