package auth

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	token, err := GenerateToken("user-42", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("unexpected subject: %s", userID)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	token, err := GenerateToken("user-42", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	if _, err := ParseAndValidate(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
	if _, err := ParseAndValidate(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	defer ResetSecretForTests()

	if _, err := GenerateToken("user-42", time.Minute); err == nil {
		t.Fatal("expected missing secret error")
	}
}
