package access

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/core"
)

// User is one configured identity.
// Secret is either plain text or a bcrypt hash.
type User struct {
	Identity string
	Secret   string
	Role     Role
}

// Gate authenticates identities against a fixed user table.
// It is immutable after construction and safe for concurrent use.
type Gate struct {
	users map[string]User
}

// NewGate builds a gate from users. A later entry for the same identity
// replaces an earlier one.
func NewGate(users ...User) (*Gate, error) {
	g := &Gate{users: make(map[string]User, len(users))}
	for _, u := range users {
		if u.Identity == "" {
			return nil, fmt.Errorf("user with empty identity")
		}
		if _, ok := capabilities[u.Role]; !ok {
			return nil, fmt.Errorf("user %q: unknown role %q", u.Identity, u.Role)
		}
		g.users[u.Identity] = u
	}
	if len(g.users) == 0 {
		return nil, fmt.Errorf("no users configured")
	}
	return g, nil
}

// FromConfig builds a gate from USERS_JSON and USERS_FILE. Entries from the
// file take precedence over USERS_JSON entries with the same identity.
func FromConfig(cfg config.AccessConfig) (*Gate, error) {
	var users []User

	if cfg.UsersJSON != "" {
		fromJSON, err := ParseUsersJSON(cfg.UsersJSON)
		if err != nil {
			return nil, err
		}
		users = append(users, fromJSON...)
	}

	if cfg.UsersFile != "" {
		fromFile, err := LoadUsersFile(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
		users = append(users, fromFile...)
	}

	return NewGate(users...)
}

// Authorize checks secret for identity and returns its session.
// An unknown identity or a wrong secret yields an AuthorizationError.
func (g *Gate) Authorize(identity, secret string) (Session, error) {
	u, ok := g.users[identity]
	if !ok {
		return Session{}, &core.AuthorizationError{Identity: identity, Err: core.ErrInvalidCredentials}
	}

	if !secretMatches(u.Secret, secret) {
		return Session{}, &core.AuthorizationError{Identity: identity, Err: core.ErrInvalidCredentials}
	}

	return Session{Identity: u.Identity, Role: u.Role}, nil
}

// Identities returns the configured identities in sorted order.
func (g *Gate) Identities() []string {
	out := make([]string, 0, len(g.users))
	for id := range g.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func secretMatches(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashSecret returns a bcrypt hash of secret for use in a users file.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}
