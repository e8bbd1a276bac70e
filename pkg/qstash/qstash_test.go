package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewClient(Config{URL: "not a url", Token: "t"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotBody map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "secret"}).WithHTTPClient(server.Client())
	resp, err := client.PublishJSON(context.Background(), "tool-failures", map[string]string{"kind": "store_unavailable"})
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	if resp.MessageID != "msg_123" {
		t.Fatalf("MessageID = %q", resp.MessageID)
	}
	if gotPath != "/v2/publish/tool-failures" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody["kind"] != "store_unavailable" {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestPublishJSONSurfacesHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	if _, err := client.PublishJSON(context.Background(), "topic", struct{}{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := client.PublishJSON(context.Background(), " ", struct{}{}); err == nil {
		t.Fatal("expected error for empty destination")
	}
}
