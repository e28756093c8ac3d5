package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWTGenerateValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "timer@example.com", "timer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "timer@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != "timer" {
		t.Errorf("role = %q", claims.Role)
	}
}

func TestJWTValidateRejectsTampered(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	other := NewJWTService("other-secret", 1)

	token, err := other.Generate(uuid.New(), "a@b.c", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Fatal("expected validation to fail for token signed with another secret")
	}
	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Fatal("expected validation to fail for malformed token")
	}
}
