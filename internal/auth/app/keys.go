package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yellowgoat/authsvc/pkg/cryptox"
)

// loadOrGenerateTokenSecret returns the HS256 signing secret, loading
// it from the configured file or generating and persisting a fresh one.
// Losing the file invalidates every outstanding token, which is the
// desired failure mode.
func loadOrGenerateTokenSecret(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create secret dir: %w", err)
	}

	if raw, err := os.ReadFile(path); err == nil && len(raw) > 0 {
		return raw, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read token secret: %w", err)
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}

	if err := os.WriteFile(path, []byte(secret), 0600); err != nil {
		return nil, fmt.Errorf("write token secret: %w", err)
	}

	return []byte(secret), nil
}
