package services

import (
	"errors"
	"testing"
	"time"
)

func TestAuthenticateAdmin(t *testing.T) {
	svc := NewAuthService(&AuthConfig{AdminPassword: "letmein", JWTSecret: "secret", TokenTTL: time.Hour}, nil, nil)

	if _, err := svc.AuthenticateAdmin("wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	result, err := svc.AuthenticateAdmin("letmein")
	if err != nil {
		t.Fatalf("AuthenticateAdmin() error = %v", err)
	}
	if !svc.ValidateAdminToken(result.Token) {
		t.Fatal("issued token does not validate")
	}
	if svc.ValidateAdminToken(result.Token + "x") {
		t.Fatal("tampered token validated")
	}
}

func TestAuthenticateAdminDisabled(t *testing.T) {
	svc := NewAuthService(&AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour}, nil, nil)
	if _, err := svc.AuthenticateAdmin(""); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("error = %v, want ErrAdminDisabled", err)
	}
}
