// Package auth tracks whether the user has signed in to a calendar source.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/weekplan/internal/keyring"
	"github.com/julianstephens/weekplan/internal/logger"
)

// ErrNotSignedIn is returned by Token when no credential is stored.
var ErrNotSignedIn = errors.New("not signed in")

// Provider exposes the access credential used by calendar clients.
type Provider interface {
	SignedIn() bool
	Token() (string, error)
	SignIn(token string) error
	SignOut() error
}

// KeyringProvider keeps the token in the OS keyring.
type KeyringProvider struct{}

func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

func (p *KeyringProvider) SignedIn() bool {
	_, err := p.Token()
	return err == nil
}

func (p *KeyringProvider) Token() (string, error) {
	token, err := keyring.GetCalendarToken()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotSignedIn
		}
		return "", fmt.Errorf("failed to read calendar token: %w", err)
	}
	return token, nil
}

func (p *KeyringProvider) SignIn(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.SetCalendarToken(token); err != nil {
		return err
	}
	logger.Info("Signed in to calendar")
	return nil
}

// SignOut revokes the stored token. Signing out twice is not an error.
func (p *KeyringProvider) SignOut() error {
	if err := keyring.DeleteCalendarToken(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to revoke calendar token: %w", err)
	}
	logger.Info("Signed out of calendar")
	return nil
}

// Anonymous is a Provider that is never signed in, for calendars that need no credential.
type Anonymous struct{}

func (Anonymous) SignedIn() bool         { return false }
func (Anonymous) Token() (string, error) { return "", ErrNotSignedIn }
func (Anonymous) SignIn(string) error    { return errors.New("sign-in is not supported") }
func (Anonymous) SignOut() error         { return nil }
