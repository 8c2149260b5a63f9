package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codepair/api/internal/config"
)

func TestGetUser_DecodesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/ext-1" {
			t.Errorf("path = %q, want /users/ext-1", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ext-1","first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","image_url":"https://img.example.com/a.png"}`))
	}))
	defer srv.Close()

	client := NewClient(config.IdentityConfig{BaseURL: srv.URL, APIKey: "test-api-key"})

	profile, err := client.GetUser(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("GetUser() = %v", err)
	}

	if profile.DisplayName() != "Ada Lovelace" {
		t.Errorf("display name = %q", profile.DisplayName())
	}
	if profile.Email != "ada@example.com" {
		t.Errorf("email = %q", profile.Email)
	}
}

func TestGetUser_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(config.IdentityConfig{BaseURL: srv.URL, APIKey: "k"})

	if _, err := client.GetUser(context.Background(), "ext-miss"); err == nil {
		t.Fatal("GetUser() = nil, want error on 404")
	}
}

func TestDisplayName_Fallbacks(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", "New User"},
		{"  ", "  ", "New User"},
	}
	for _, tc := range cases {
		p := Profile{FirstName: tc.first, LastName: tc.last}
		if got := p.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
