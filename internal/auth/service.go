package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Authenticate validates username/password credentials. Unknown users, wrong
// passwords and inactive accounts all yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	cred, err := s.repo.FindCredential(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			burnCompare(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: authenticate: %w", err)
	}
	if err := CheckPassword(cred.PasswordHash, password); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("auth: authenticate: %w", err)
	}
	if !cred.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := s.repo.TouchLastLogin(ctx, cred.UserID, s.now()); err != nil {
		return nil, fmt.Errorf("auth: authenticate: %w", err)
	}
	return cred.Principal(), nil
}

// Login authenticates and binds the principal to sess under a rotated id. On
// failure the session is left untouched.
func (s *Service) Login(ctx context.Context, sess *shared.Session, username, password string) (*Principal, error) {
	if sess == nil {
		return nil, errors.New("auth: login: session missing")
	}
	principal, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	sess.Rotate()
	sess.Clear()
	if err := storePrincipal(sess, principal); err != nil {
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	return principal, nil
}

// Logout discards the principal and schedules the session record for removal.
func (s *Service) Logout(sessions *shared.SessionManager, sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.Clear()
	sessions.Destroy(sess)
}
