package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type RegisterInput struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	Role        core.Role `json:"role"`
}

// AuthService registers users, checks credentials and resolves bearer tokens.
type AuthService struct {
	repo   *storage.Repository
	tokens *auth.TokenIssuer
	hasher auth.Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(repo *storage.Repository, tokens *auth.TokenIssuer, hasher auth.Hasher) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, hasher: hasher}
}

// Register validates in, rejects taken usernames or emails and stores the
// user with a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	username, err := core.ValidateUsername(in.Username)
	if err != nil {
		return core.User{}, err
	}
	email, err := core.ValidateEmail(in.Email)
	if err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(in.Password); err != nil {
		return core.User{}, err
	}
	role, err := core.ValidateRole(in.Role)
	if err != nil {
		return core.User{}, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, core.NewValidationError("email", "Email is already registered")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("register: %w", err)
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return core.User{}, core.NewValidationError("username", "Username is already taken")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, err
	}

	u, err := s.repo.CreateUser(ctx, core.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, core.ErrConflict) {
		// lost a race with a concurrent registration
		return core.User{}, &core.ValidationError{Field: "email", Message: "Email or username is already registered", Err: err}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// Login returns a signed token for valid credentials. Unknown emails and
// wrong passwords fail with the same core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email, err := core.ValidateEmail(email)
	if err != nil {
		return LoginResult{}, core.ErrInvalidCredentials
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		// Pay the same bcrypt cost as a wrong password.
		_, _ = s.hasher.Compare(s.dummy(), password)
		slog.InfoContext(ctx, "Login rejected", "reason", "unknown_email")
		return LoginResult{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "Login rejected", "reason", "password_mismatch", log.FieldUserID, u.ID)
		return LoginResult{}, core.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(core.Identity{UserID: u.ID, Username: u.Username})
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return LoginResult{AccessToken: token, Role: u.Role}, nil
}

// dummy returns a hash at the configured cost that no login ever matches.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("fintrack:unknown-account")
		if err != nil {
			slog.Error("Failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// VerifyToken parses token and checks that its user still exists.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (core.Identity, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return core.Identity{}, err
	}

	u, err := s.repo.GetUser(ctx, id.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Identity{}, fmt.Errorf("%w: unknown user", core.ErrInvalidToken)
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("verify token: %w", err)
	}
	return core.Identity{UserID: u.ID, Username: u.Username}, nil
}

// RequireAdmin returns core.ErrForbidden unless the caller has the admin role.
func (s *AuthService) RequireAdmin(ctx context.Context, id core.Identity) error {
	u, err := s.repo.GetUser(ctx, id.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if u.Role != core.RoleAdmin {
		return core.ErrForbidden
	}
	return nil
}
