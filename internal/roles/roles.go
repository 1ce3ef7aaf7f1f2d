// Package roles maps passwords to custody roles.
//
// Each role has one configured secret. A secret that starts with "$2" is a
// bcrypt hash; anything else is compared as plain text in constant time.
package roles

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Role is a custody actor.
type Role string

const (
	Police    Role = "POLICE"
	Lawyer    Role = "LAWYER"
	Analyst   Role = "ANALYST"
	Executive Role = "EXECUTIVE"
	Creator   Role = "CREATOR"
)

// All lists the roles in lookup order.
var All = []Role{Police, Lawyer, Analyst, Executive, Creator}

// ErrInvalidPassword is returned when no role matches the password.
var ErrInvalidPassword = errors.New("invalid password")

// EnvKey returns the environment variable holding the secret for r.
func (r Role) EnvKey() string { return "BCHOC_PASSWORD_" + string(r) }

// ConfigKey returns the config key holding the secret for r.
func (r Role) ConfigKey() string { return "passwords." + strings.ToLower(string(r)) }

// Authenticator resolves passwords to roles.
type Authenticator struct {
	secrets map[Role]string
}

// New creates an Authenticator. Roles with an empty secret can never match.
func New(secrets map[Role]string) *Authenticator {
	cp := make(map[Role]string, len(secrets))
	for r, s := range secrets {
		if s != "" {
			cp[r] = s
		}
	}
	return &Authenticator{secrets: cp}
}

// Authenticate returns the first role, in All order, whose secret matches password.
func (a *Authenticator) Authenticate(password string) (Role, error) {
	if password != "" {
		for _, r := range All {
			secret, ok := a.secrets[r]
			if ok && matches(secret, password) {
				return r, nil
			}
		}
	}
	return "", ErrInvalidPassword
}

// Require authenticates password and checks that it belongs to one of allowed.
// With no allowed roles any valid password is accepted.
func (a *Authenticator) Require(password string, allowed ...Role) (Role, error) {
	r, err := a.Authenticate(password)
	if err != nil {
		return "", err
	}
	if len(allowed) == 0 {
		return r, nil
	}
	for _, want := range allowed {
		if r == want {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: role %s may not perform this action", ErrInvalidPassword, r)
}

// Configured reports how many roles have a secret.
func (a *Authenticator) Configured() int { return len(a.secrets) }

func matches(secret, password string) bool {
	if strings.HasPrefix(secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

// HashSecret returns a bcrypt hash suitable for a passwords.<role> config value.
func HashSecret(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
