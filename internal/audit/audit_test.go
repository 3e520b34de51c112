package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// Sensitive metadata keys must be identified so they are redacted before
// reaching the log stream.
func TestAudit_IsSecret(t *testing.T) {
	secret := []string{
		"password", "Password", "PASSWORD", "password_hash",
		"token", "refresh_token", "secret", "signing_secret",
		"api_key", "private_key", "credential", "authorization",
	}
	for _, key := range secret {
		if !isSecret(key) {
			t.Errorf("isSecret(%q) = false, want true", key)
		}
	}

	plain := []string{"user_id", "org_id", "username", "email", "status", "role_id"}
	for _, key := range plain {
		if isSecret(key) {
			t.Errorf("isSecret(%q) = true, want false", key)
		}
	}
}

func TestAudit_LogRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	NewSlogLogger().Log(context.Background(), Event{
		Type:    TypeTokenIssued,
		OrgID:   "org-1",
		ActorID: "user-1",
		Metadata: map[string]any{
			"refresh_token": "very-secret-value",
			"username":      "alice",
		},
	})

	out := buf.String()
	if strings.Contains(out, "very-secret-value") {
		t.Fatalf("secret value leaked into audit log: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker in output: %s", out)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("audit output is not valid JSON: %v", err)
	}
	if record["audit_type"] != TypeTokenIssued {
		t.Errorf("audit_type = %v, want %q", record["audit_type"], TypeTokenIssued)
	}
	if record["actor_id"] != "user-1" {
		t.Errorf("actor_id = %v, want user-1", record["actor_id"])
	}
	meta, ok := record["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata group missing from record: %v", record)
	}
	if meta["username"] != "alice" {
		t.Errorf("non-secret metadata altered: %v", meta["username"])
	}
}

func TestAudit_LogDefaultsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	NewSlogLogger().Log(context.Background(), Event{Type: TypeLoginFailed})

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("audit output is not valid JSON: %v", err)
	}
	ts, ok := record["timestamp"].(string)
	if !ok || ts == "" {
		t.Errorf("expected a populated timestamp, got %v", record["timestamp"])
	}
	if strings.HasPrefix(ts, "0001-") {
		t.Errorf("timestamp was not defaulted: %s", ts)
	}
}
