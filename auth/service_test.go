package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"meetingflow/clock"
)

func TestService_RegisterAndLogin(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "test-secret")

	req := RegisterRequest{
		Email:    "Alice@Example.com",
		Password: "supersafe",
		FullName: "Alice",
		TimeZone: "Europe/Berlin",
	}

	ctx := context.Background()
	user, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalised email got %q", user.Email)
	}
	if user.PasswordHash == req.Password {
		t.Fatal("register: password stored in clear text")
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.User.ID != user.ID {
		t.Fatalf("login: expected user id %q got %q", user.ID, resp.User.ID)
	}

	subject, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("verify token: expected %q got %q", user.ID, subject)
	}

	email, name, err := svc.Contact(ctx, user.ID)
	if err != nil || email != "alice@example.com" || name != "Alice" {
		t.Fatalf("contact: got %q %q %v", email, name, err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "test-secret")
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "short", FullName: "A"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(ctx, RegisterRequest{Password: "strongpassword"}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "strongpassword", FullName: "A", TimeZone: "Mars/Olympus"})
	if !errors.Is(err, ErrInvalidTimeZone) {
		t.Fatalf("expected ErrInvalidTimeZone, got %v", err)
	}

	user, err := svc.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "strongpassword", FullName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.TimeZone != "UTC" {
		t.Fatalf("expected default zone UTC got %q", user.TimeZone)
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "test-secret")

	req := RegisterRequest{Email: "alice@example.com", Password: "strongpassword", FullName: "Alice"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	req.Email = "ALICE@example.com"
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "test-secret")
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "unknown@example.com", Password: "irrelevant"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "strongpassword", FullName: "Bob"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "wrongpassword"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
}

func TestService_VerifyTokenRejects(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(issued)
	svc := NewService(NewMemoryRepository(), "test-secret").WithClock(clk)

	token, err := svc.IssueToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewService(NewMemoryRepository(), "other-secret").WithClock(clk)
	if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	clk.Advance(TokenTTL + time.Minute)
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	clk.Set(issued)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.VerifyToken(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unsigned token, got %v", err)
	}
}
