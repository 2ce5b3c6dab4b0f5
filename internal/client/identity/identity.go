// Package identity manages the durable per-client uuid. Together with a
// content hash it keys chunk sessions, so the uuid must survive restarts
// for interrupted uploads to resume.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const appDir = "filedrop"

// Load returns the client uuid, generating and persisting one under the
// user config directory on first use.
func Load() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return LoadFrom(filepath.Join(configDir, appDir, "uuid"))
}

// LoadFrom reads the uuid from path, creating it when absent or corrupt.
func LoadFrom(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		stored := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(stored); parseErr == nil {
			return stored, nil
		}
	}

	id := uuid.New().String()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write uuid: %w", err)
	}

	return id, nil
}
