package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"univox/internal/ports"
)

func TestExchangeSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/offer" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}

		var offer ports.Description
		if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
			t.Errorf("bad offer body: %v", err)
		}
		if offer.Type != "offer" {
			t.Errorf("unexpected offer type: %q", offer.Type)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ports.Description{SDP: "v=0 answer", Type: "answer"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	answer, err := client.Exchange(context.Background(), ports.Description{SDP: "v=0 offer", Type: "offer"})
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if answer.SDP != "v=0 answer" || answer.Type != "answer" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestExchangeNon2xxCarriesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Exchange(context.Background(), ports.Description{SDP: "v=0", Type: "offer"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var sigErr *Error
	if !errors.As(err, &sigErr) || sigErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected signaling error with status, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("error must mention the status code: %q", err.Error())
	}
}

func TestExchangeBadAnswerBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Exchange(context.Background(), ports.Description{SDP: "v=0", Type: "offer"})
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestExchangeNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Exchange(context.Background(), ports.Description{SDP: "v=0", Type: "offer"})
	if err == nil {
		t.Fatalf("expected network error")
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient("", 0)
	if client.baseURL != DefaultServerURL {
		t.Fatalf("unexpected default base URL: %q", client.baseURL)
	}

	client = NewClient("http://example.com/", time.Second)
	if client.baseURL != "http://example.com" {
		t.Fatalf("trailing slash must be trimmed: %q", client.baseURL)
	}
}
