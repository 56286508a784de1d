// Package credstore persists the broker credential set between runs.
// Access is serialized through a lock file so concurrent tools sharing
// one credential file cannot clobber each other mid-refresh.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Credentials is the on-disk credential record.
type Credentials struct {
	ClientID     string    `json:"client_id"`
	RefreshToken string    `json:"refresh_token"`
	AccessToken  string    `json:"access_token,omitempty"`
	AccessExpiry time.Time `json:"access_expiry,omitempty"`
}

func lockPath(path string) string {
	return path + ".lock"
}

// Load reads the credential file at path under a shared lock.
func Load(path string) (*Credentials, error) {
	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("credstore: lock %s: %w", path, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credstore: read %s: %w", path, err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("credstore: decode %s: %w", path, err)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("credstore: %s has no refresh token", path)
	}
	return &creds, nil
}

// Save writes the credential file atomically under an exclusive lock.
// The file is created private to the owner.
func Save(path string, creds *Credentials) error {
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("credstore: lock %s: %w", path, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".credstore-*")
	if err != nil {
		return fmt.Errorf("credstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credstore: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("credstore: replace %s: %w", path, err)
	}
	return nil
}
