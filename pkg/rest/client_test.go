package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewayURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway" {
			t.Errorf("path = %q, want /gateway", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("unauthenticated endpoint got an Authorization header")
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("request missing User-Agent")
		}
		w.Write([]byte(`{"url":"wss://gateway.example"}`))
	}))
	defer srv.Close()

	c := NewClient("token", WithBaseURL(srv.URL))
	url, err := c.GatewayURL(context.Background())
	if err != nil {
		t.Fatalf("GatewayURL() error = %v", err)
	}
	if url != "wss://gateway.example" {
		t.Errorf("GatewayURL() = %q, want %q", url, "wss://gateway.example")
	}
}

func TestBotGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway/bot" {
			t.Errorf("path = %q, want /gateway/bot", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot abc123" {
			t.Errorf("Authorization = %q, want %q", got, "Bot abc123")
		}
		w.Write([]byte(`{
			"url": "wss://gateway.example",
			"shards": 2,
			"session_start_limit": {"total":1000,"remaining":999,"reset_after":14400000,"max_concurrency":1}
		}`))
	}))
	defer srv.Close()

	c := NewClient("abc123", WithBaseURL(srv.URL))
	bg, err := c.BotGateway(context.Background())
	if err != nil {
		t.Fatalf("BotGateway() error = %v", err)
	}
	if bg.URL != "wss://gateway.example" {
		t.Errorf("URL = %q, want %q", bg.URL, "wss://gateway.example")
	}
	if bg.Shards != 2 {
		t.Errorf("Shards = %d, want 2", bg.Shards)
	}
	if bg.SessionStartLimit.Remaining != 999 {
		t.Errorf("Remaining = %d, want 999", bg.SessionStartLimit.Remaining)
	}
}

func TestTokenPassedThroughWhenPrefixed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bot already" {
			t.Errorf("Authorization = %q, want %q", got, "Bot already")
		}
		w.Write([]byte(`{"url":"wss://gateway.example","shards":1,"session_start_limit":{}}`))
	}))
	defer srv.Close()

	c := NewClient("Bot already", WithBaseURL(srv.URL))
	if _, err := c.BotGateway(context.Background()); err != nil {
		t.Fatalf("BotGateway() error = %v", err)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"401: Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.BotGateway(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", apiErr.Status)
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{`))
	}))
	defer srv.Close()

	c := NewClient("token", WithBaseURL(srv.URL))
	if _, err := c.GatewayURL(context.Background()); err == nil {
		t.Error("GatewayURL() on malformed body: expected error")
	}
}

func TestEmptyURLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":""}`))
	}))
	defer srv.Close()

	c := NewClient("token", WithBaseURL(srv.URL))
	if _, err := c.GatewayURL(context.Background()); err == nil {
		t.Error("GatewayURL() with empty url: expected error")
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "***"},
		{"short", "***"},
		{"abcdefghijklmnop", "abcdefgh***"},
		{"Bot abcdefghijklmnop", "abcdefgh***"},
	}
	for _, tc := range tests {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
