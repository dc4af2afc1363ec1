package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureGoogleCredentialsFilePlainJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)

	if err := EnsureGoogleCredentialsFile(dir); err != nil {
		t.Fatalf("EnsureGoogleCredentialsFile() error = %v", err)
	}

	path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if path != filepath.Join(dir, "google-credentials.json") {
		t.Fatalf("GOOGLE_APPLICATION_CREDENTIALS = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read credentials file: %v", err)
	}
	if string(data) != `{"type":"service_account"}` {
		t.Fatalf("credentials content = %q", data)
	}
}

func TestEnsureGoogleCredentialsFileBase64(t *testing.T) {
	dir := t.TempDir()
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`))
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", encoded)

	if err := EnsureGoogleCredentialsFile(dir); err != nil {
		t.Fatalf("EnsureGoogleCredentialsFile() error = %v", err)
	}
	data, err := os.ReadFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if err != nil {
		t.Fatalf("read credentials file: %v", err)
	}
	if string(data) != `{"type":"service_account"}` {
		t.Fatalf("credentials content = %q", data)
	}
}

func TestEnsureGoogleCredentialsFileInvalidJSON(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "not json at all")

	if err := EnsureGoogleCredentialsFile(t.TempDir()); err == nil {
		t.Fatalf("invalid JSON must error")
	}
}

func TestEnsureGoogleCredentialsFileExistingPathWins(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/creds.json")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)

	if err := EnsureGoogleCredentialsFile(t.TempDir()); err != nil {
		t.Fatalf("EnsureGoogleCredentialsFile() error = %v", err)
	}
	if got := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); got != "/etc/creds.json" {
		t.Fatalf("GOOGLE_APPLICATION_CREDENTIALS = %q, want pre-set path kept", got)
	}
}

func TestEnsureGoogleCredentialsFileNoEnvIsNoop(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")

	if err := EnsureGoogleCredentialsFile(t.TempDir()); err != nil {
		t.Fatalf("EnsureGoogleCredentialsFile() error = %v", err)
	}
	if got := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); got != "" {
		t.Fatalf("GOOGLE_APPLICATION_CREDENTIALS = %q, want empty", got)
	}
}
