package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureGoogleCredentialsFile materializes GOOGLE_APPLICATION_CREDENTIALS_JSON
// into a file and points GOOGLE_APPLICATION_CREDENTIALS at it.
//
// Hosted platforms can only store the service-account JSON as an env var
// (plain or base64), while Google client libraries want a file path. A
// pre-set GOOGLE_APPLICATION_CREDENTIALS always wins.
func EnsureGoogleCredentialsFile(runtimeDir string) error {
	if strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")) != "" {
		return nil
	}
	raw := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if raw == "" {
		return nil
	}

	decoded := raw
	if !strings.HasPrefix(raw, "{") {
		if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
			decoded = string(b)
		}
	}
	if !json.Valid([]byte(decoded)) {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS_JSON does not contain valid JSON")
	}

	if err := os.MkdirAll(runtimeDir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	target := filepath.Join(runtimeDir, "google-credentials.json")
	if err := os.WriteFile(target, []byte(decoded), 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", target)
}
