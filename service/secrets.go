package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GetOrGeneratePassword returns the persisted credential for a service,
// generating and storing one on first use. Files are mode 0600 under the
// secrets directory.
func GetOrGeneratePassword(secretsDir, service string) (string, error) {
	path := filepath.Join(secretsDir, service+".secret")
	data, err := os.ReadFile(path)
	if err == nil {
		pw := strings.TrimSpace(string(data))
		if pw != "" {
			return pw, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read secret for %s: %w", service, err)
	}

	pw := strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := os.MkdirAll(secretsDir, 0o700); err != nil {
		return "", fmt.Errorf("create secrets dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(pw+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write secret for %s: %w", service, err)
	}
	return pw, nil
}
