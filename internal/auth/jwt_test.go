package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/todoplatform/eventbackbone/internal/auth"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifier_Verify(t *testing.T) {
	v := auth.NewVerifier(testSecret)

	subject, err := v.Verify(signToken(t, testSecret, "owner-1", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "owner-1" {
		t.Fatalf("expected subject owner-1, got %s", subject)
	}
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	v := auth.NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, "other-secret", "owner-1", time.Now().Add(time.Hour)))
	if err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	v := auth.NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, testSecret, "owner-1", time.Now().Add(-time.Hour)))
	if err != auth.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifier_RejectsMissingSubject(t *testing.T) {
	v := auth.NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, testSecret, "", time.Now().Add(time.Hour)))
	if err != auth.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty subject, got %v", err)
	}
}

func TestRequireUser_InjectsSubject(t *testing.T) {
	v := auth.NewVerifier(testSecret)
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.UserID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "owner-1", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()

	auth.RequireUser(v)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != "owner-1" {
		t.Fatalf("expected owner-1 in context, got %q", seen)
	}
}

func TestRequireUser_RejectsMissingAndBadTokens(t *testing.T) {
	v := auth.NewVerifier(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	})
	mw := auth.RequireUser(v)(next)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired", "Bearer " + signToken(t, testSecret, "owner-1", time.Now().Add(-time.Minute))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
