package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"converse/infrastructure"
	"converse/internal/email"
	"converse/internal/models"
	"converse/internal/user"
)

// TokenRevoker remembers refresh tokens invalidated before their expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// NoopRevoker is used when no revocation store is configured; logout then
// only validates the token, as before.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (NoopRevoker) IsRevoked(context.Context, string) (bool, error)    { return false, nil }

type Service struct {
	users   *user.Service
	tokens  *Manager
	revoker TokenRevoker
	mailer  *email.Sender // nil when SMTP is not configured
	logger  *zap.Logger
}

func NewService(users *user.Service, tokens *Manager, revoker TokenRevoker, mailer *email.Sender, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		mailer:  mailer,
		logger:  logger,
	}
}

func (s *Service) Signup(ctx context.Context, emailAddr, password, name, picture string) (*models.User, *TokenPair, error) {
	if emailAddr == "" || password == "" {
		return nil, nil, infrastructure.ErrInvalidInput
	}
	if name == "" {
		name = strings.SplitN(emailAddr, "@", 2)[0]
	}
	if picture == "" {
		picture = fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", name)
	}

	newUser, err := s.users.Create(ctx, user.CreateInput{
		Email:    emailAddr,
		Password: password,
		Name:     name,
		Picture:  picture,
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.GeneratePair(newUser.ID)
	if err != nil {
		return nil, nil, err
	}

	if s.mailer != nil {
		go func() {
			if err := s.mailer.SendWelcomeEmail(newUser.Email, newUser.Name); err != nil {
				s.logger.Warn("failed to send welcome email",
					zap.String("user_id", newUser.ID), zap.Error(err))
			}
		}()
	}

	return newUser, pair, nil
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, *TokenPair, error) {
	if emailAddr == "" || password == "" {
		return nil, nil, infrastructure.ErrInvalidInput
	}

	u, err := s.users.Authenticate(ctx, emailAddr, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.GeneratePair(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, _, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("revocation check failed, refusing refresh", zap.Error(err))
		return nil, infrastructure.ErrInvalidToken
	}
	if revoked {
		return nil, infrastructure.ErrTokenRevoked
	}

	return s.tokens.GeneratePair(userID)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	_, expiry, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	ttl := time.Until(expiry)
	if ttl <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, refreshToken, ttl)
}
