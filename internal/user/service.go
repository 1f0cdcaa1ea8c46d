package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"converse/infrastructure"
	"converse/internal/database"
	"converse/internal/models"
)

const minPasswordEntropy = 60

type Service struct {
	db *database.Database
}

func NewService(db *database.Database) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	Email    string
	Password string
	Name     string
	Picture  string
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		return nil, infrastructure.ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if err := passwordvalidator.Validate(input.Password, minPasswordEntropy); err != nil {
		return nil, infrastructure.ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:       uuid.NewString(),
		Email:    input.Email,
		Name:     input.Name,
		Picture:  input.Picture,
		Password: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, infrastructure.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, infrastructure.ErrUnauthorized
	}
	return &u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, infrastructure.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// List returns the user directory, newest first.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateProfile changes the fields a user may edit; everything else is
// read-only after signup.
func (s *Service) UpdateProfile(ctx context.Context, id, name, picture string) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		u.Name = name
	}
	if picture != "" {
		u.Picture = picture
	}

	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}
