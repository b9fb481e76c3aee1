// Package keyring keeps the Schedule Service API token in the OS keyring,
// one entry per service host.
package keyring

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/fleetboard/internal/constants"
)

var (
	// ErrNotFound is returned when no token is stored for the service
	ErrNotFound = errors.New("no API token in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// account names the keyring entry for apiURL. Tokens for different hosts
// never overwrite each other.
func account(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + "@" + u.Host
}

// GetToken returns the token stored for apiURL
func GetToken(apiURL string) (string, error) {
	tok, err := keyring.Get(constants.AppName, account(apiURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return tok, nil
}

// SetToken stores token for apiURL, replacing any previous one.
func SetToken(apiURL, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account(apiURL), token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the token stored for apiURL
func DeleteToken(apiURL string) error {
	err := keyring.Delete(constants.AppName, account(apiURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable is a best-effort probe of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
