package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

const apiURL = "http://dispatch.local:8000/api/v1"

func TestSetAndGetToken(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken(apiURL, "tok-1"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	got, err := GetToken(apiURL)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got != "tok-1" {
		t.Errorf("GetToken() = %q, want %q", got, "tok-1")
	}
}

func TestTokensArePerHost(t *testing.T) {
	gokeyring.MockInit()

	_ = SetToken(apiURL, "a")
	_ = SetToken("https://prod.example.com/api/v1", "b")

	if got, _ := GetToken(apiURL); got != "a" {
		t.Errorf("GetToken(local) = %q, want a", got)
	}
	if got, _ := GetToken("https://prod.example.com/api/v1"); got != "b" {
		t.Errorf("GetToken(prod) = %q, want b", got)
	}
}

func TestAccount(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{apiURL, "api-token@dispatch.local:8000"},
		{"not a url", "api-token"},
		{"", "api-token"},
	}
	for _, tt := range tests {
		if got := account(tt.url); got != tt.want {
			t.Errorf("account(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSetTokenEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken(apiURL, ""); err == nil {
		t.Error("SetToken(\"\") should return an error")
	}
}

func TestDeleteToken(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken(apiURL, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := DeleteToken(apiURL); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if _, err := GetToken(apiURL); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetToken() after delete error = %v, want %v", err, ErrNotFound)
	}
	if err := DeleteToken(apiURL); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
