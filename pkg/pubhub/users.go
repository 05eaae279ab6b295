package pubhub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer is the opaque issue/verify/blacklist token capability. The
// jwtauth-backed implementation lives in pkg/pubhub/token.
type TokenIssuer interface {
	Issue(ctx context.Context, userID int64, username string) (TokenPair, error)
	Revoke(ctx context.Context, token string) error
}

// resetMaxAge bounds how long a password reset record stays consumable.
const resetMaxAge = time.Hour

// UserService handles registration, login, logout, profile edits and
// password change/reset. Token mechanics are delegated to the issuer;
// delivery of reset tokens is the excluded mailer's job, so the token is
// returned to the caller instead.
type UserService struct {
	repo   Repository
	tokens TokenIssuer
	logger *slog.Logger
}

// NewUserService creates the user service.
func NewUserService(repo Repository, tokens TokenIssuer, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, tokens: tokens, logger: logger}
}

// Register creates an account and issues a token pair. Duplicate username
// or email surfaces as a validation error on that field.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*User, TokenPair, error) {
	errs := FieldErrors{}
	if req.Username == "" {
		errs.Add("username", "This field is required.")
	}
	if req.Email == "" {
		errs.Add("email", "This field is required.")
	} else if !strings.Contains(req.Email, "@") {
		errs.Add("email", "Enter a valid email address.")
	}
	if utf8.RuneCountInString(req.Password) < 8 {
		errs.Add("password", "Ensure this field has at least 8 characters.")
	}
	if len(errs) > 0 {
		return nil, TokenPair{}, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Created:      time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		switch err {
		case ErrUsernameTaken:
			return nil, TokenPair{}, FieldErrors{"username": "A user with that username already exists."}
		case ErrEmailTaken:
			return nil, TokenPair{}, FieldErrors{"email": "A user with that email already exists."}
		}
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.Issue(ctx, u.ID, u.Username)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return u, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *UserService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(ctx, u.ID, u.Username)
}

// Logout invalidates the presented token for the rest of its lifetime.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// UpdateProfile replaces the editable profile fields, self only.
func (s *UserService) UpdateProfile(ctx context.Context, id, requester int64, req ProfileRequest) error {
	if id != requester {
		return ErrForbidden
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}

	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return FieldErrors{"email": "Enter a valid email address."}
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Picture = req.Picture

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		if err == ErrEmailTaken {
			return FieldErrors{"email": "A user with that email already exists."}
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password before replacing it.
func (s *UserService) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return FieldErrors{"old_password": "Invalid password."}
	}
	if utf8.RuneCountInString(newPassword) < 8 {
		return FieldErrors{"new_password": "Ensure this field has at least 8 characters."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// RequestPasswordReset records a single-use reset token for the account
// behind the email and returns it for delivery. Unknown emails resolve to
// ErrUserNotFound; callers may choose not to reveal that to clients.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if _, err := s.repo.GetUserByEmail(ctx, email); err != nil {
		return "", err
	}
	pr := &PasswordReset{
		Email:     email,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePasswordReset(ctx, pr); err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return pr.Token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
// The record is deleted on success; expired records are rejected.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	pr, err := s.repo.GetPasswordReset(ctx, token)
	if err != nil {
		return err
	}
	if time.Since(pr.CreatedAt) > resetMaxAge {
		// Expired records are dropped so they cannot accumulate.
		if err := s.repo.DeletePasswordReset(ctx, token); err != nil {
			s.logger.Error("expired reset cleanup failed", "error", err)
		}
		return ErrResetNotFound
	}
	if utf8.RuneCountInString(newPassword) < 8 {
		return FieldErrors{"new_password": "Ensure this field has at least 8 characters."}
	}

	u, err := s.repo.GetUserByEmail(ctx, pr.Email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return s.repo.DeletePasswordReset(ctx, token)
}
