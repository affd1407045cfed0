package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, string, error)
	ConfirmEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) error
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   *TokenManager
	mailer   Mailer
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, tokens *TokenManager, mailer Mailer, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	email := normalizeEmail(input.Email)

	if input.FirstName == "" || input.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrValidationFailed)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		PasswordHash: string(hashedPassword),
		IsActive:     false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.issueActionToken(user.ID, purposeConfirmEmail, nil)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendConfirmationEmail(ctx, user.Email, token); err != nil {
		s.logger.WarnContext(ctx, "confirmation email not sent", slog.Int("user_id", user.ID), slog.Any("error", err))
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to compare password hash: %w", err)
	}
	if !user.IsActive {
		return nil, "", ErrAccountNotActive
	}

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) error {
	userID, _, err := s.tokens.parseActionToken(token, purposeConfirmEmail)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user.IsActive {
		return nil
	}

	if err := s.userRepo.Activate(ctx, user.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	s.logger.InfoContext(ctx, "user email confirmed", slog.Int("user_id", user.ID))
	return nil
}

// RequestPasswordReset mails a reset link to active accounts. Unknown
// addresses succeed silently.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := s.tokens.issueActionToken(user.ID, purposeResetPassword, map[string]interface{}{
		claimPwd: passwordFingerprint(user.PasswordHash),
	})
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.WarnContext(ctx, "password reset email not sent", slog.Int("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	userID, claims, err := s.tokens.parseActionToken(token, purposeResetPassword)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	fp, ok := claims[claimPwd].(string)
	if !ok {
		s.logger.WarnContext(ctx, "rejected reset token", slog.Int("user_id", userID), slog.Any("error", errNoFingerprint))
		return ErrInvalidToken
	}
	if fp != passwordFingerprint(user.PasswordHash) {
		return ErrInvalidToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
