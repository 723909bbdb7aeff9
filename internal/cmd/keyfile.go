package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcbrc/rcrx/internal/configpaths"
	"github.com/mcbrc/rcrx/internal/server/api/auth"
)

const keyFileName = "rcrx.key.txt"

func keyFilePath() (string, error) {
	dir, err := configpaths.KeyFileDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve key file path: %w", err)
	}
	return filepath.Join(dir, keyFileName), nil
}

// readKeyFile returns the API password, or "" when there is no key file.
func readKeyFile() string {
	p, err := keyFilePath()
	if err != nil {
		return ""
	}
	pwd, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(pwd))
}

// loadOrCreateKey reads the API password from the key file, generating a
// new one on first start.
func loadOrCreateKey(logger *slog.Logger) (string, error) {
	keyFile, err := keyFilePath()
	if err != nil {
		return "", err
	}
	if pwd, err := os.ReadFile(keyFile); err == nil {
		if s := strings.TrimSpace(string(pwd)); s != "" {
			return s, nil
		}
	}

	newPwd, err := auth.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate new API password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(keyFile, []byte(newPwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write new API password to file: %w", err)
	}
	logger.Info("Generated API key; enter it in clients or edit the file to change it", "path", keyFile, "key", newPwd)
	return newPwd, nil
}
