// Package auth checks first-responder logins against stored bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialStore reads and stamps responder credentials.
type CredentialStore interface {
	// FindCredential returns domain.ErrNotFound for an unknown username.
	FindCredential(ctx context.Context, username string) (domain.ResponderCredential, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
}

// Gate verifies responder logins.
type Gate struct {
	store   CredentialStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGate creates a Gate backed by store.
func NewGate(store CredentialStore, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{store: store, logger: logger, metrics: metrics}
}

// Login checks password against the stored hash and records the login time.
func (g *Gate) Login(ctx context.Context, username, password string) (domain.ResponderCredential, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.ResponderCredential{}, &domain.ValidationError{Field: "username", Message: "username and password are required"}
	}

	cred, err := g.store.FindCredential(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		g.metrics.Logins.WithLabelValues("failure").Inc()
		return domain.ResponderCredential{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.ResponderCredential{}, fmt.Errorf("find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		g.metrics.Logins.WithLabelValues("failure").Inc()
		g.logger.Warn("responder login rejected", "username", username)
		return domain.ResponderCredential{}, ErrInvalidCredentials
	}

	now := domain.Now().UTC()
	if err := g.store.TouchLastLogin(ctx, username, now); err != nil {
		g.logger.Warn("last login update failed", "username", username, "error", err)
	} else {
		cred.LastLogin = now
	}
	g.metrics.Logins.WithLabelValues("success").Inc()
	g.logger.Info("responder logged in", "username", username)

	cred.PasswordHash = ""
	return cred, nil
}

// HashPassword returns the bcrypt hash stored for a new responder.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
