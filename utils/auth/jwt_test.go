package auth

import (
	"testing"
	"time"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret-at-least-32-characters",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "test",
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	deptID := uint(7)

	token, jti, err := m.GenerateAccessToken(42, "user@test.local", "teacher", &deptID, 3)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if jti == "" {
		t.Fatal("empty JTI")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 42 || claims.Role != "teacher" || claims.TokenVersion != 3 {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want access", claims.TokenType)
	}
	if claims.DepartmentID == nil || *claims.DepartmentID != 7 {
		t.Error("department claim lost in transit")
	}
	if claims.ID != jti {
		t.Errorf("JTI mismatch: %q vs %q", claims.ID, jti)
	}
}

func TestRefreshTokenType(t *testing.T) {
	m := testManager()

	token, _, err := m.GenerateRefreshToken(42, "user@test.local", "student", nil, 0)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("TokenType = %q, want refresh", claims.TokenType)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := testManager()

	if _, err := m.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}

	other := NewJWTManager(JWTConfig{
		Secret: "a-different-secret-entirely-here", Expiry: time.Hour,
		RefreshExpiry: time.Hour, Issuer: "test",
	})
	token, _, _ := other.GenerateAccessToken(1, "x@test.local", "admin", nil, 0)
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err == nil {
		t.Error("wrong password accepted")
	}

	if _, err := HashPassword("short"); err == nil {
		t.Error("sub-minimum password accepted")
	}
}
