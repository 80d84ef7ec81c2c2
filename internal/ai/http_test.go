package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoJSONPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	type reply struct {
		Message string `json:"message"`
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := doJSONPost[reply](context.Background(), client, server.URL, map[string]string{"q": "hi"})
	if err != nil {
		t.Fatalf("doJSONPost failed: %v", err)
	}
	if resp.Message != "ok" {
		t.Errorf("Message = %q, want %q", resp.Message, "ok")
	}
}

func TestDoJSONPostErrorBodyTruncated(t *testing.T) {
	longBody := strings.Repeat("x", maxErrorBodyBytes*2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(longBody))
	}))
	defer server.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	_, err := doJSONPost[struct{}](context.Background(), client, server.URL, nil)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error missing status: %v", err)
	}
	if !strings.Contains(err.Error(), "(truncated)") {
		t.Errorf("error body not truncated: %d chars", len(err.Error()))
	}
	if len(err.Error()) > maxErrorBodyBytes+256 {
		t.Errorf("error message too long: %d chars", len(err.Error()))
	}
}

func TestDoJSONPostInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	if _, err := doJSONPost[struct{}](context.Background(), client, server.URL, nil); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
