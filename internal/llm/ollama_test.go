package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCompleteSendsPromptAndParsesResponse(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "hello back", Done: true})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1")
	out, err := client.Complete(context.Background(), "hi there")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello back" {
		t.Fatalf("Complete() = %q, want %q", out, "hello back")
	}
	if gotReq.Model != "llama3.1" || gotReq.Prompt != "hi there" || gotReq.Stream {
		t.Fatalf("request sent = %+v", gotReq)
	}
}

func TestCompleteRespectsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(generateResponse{Response: "too late"})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if _, err := client.Complete(ctx, "hi"); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestCompleteNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not found"))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1")
	_, err := client.Complete(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("err = %v, want it to mention the response body", err)
	}
}

func TestWithTemperatureDoesNotMutateOriginal(t *testing.T) {
	base := NewOllamaClient("http://x", "m")
	hot := base.WithTemperature(0.9)
	if base.temperature == hot.temperature {
		t.Fatal("WithTemperature should return an independent copy")
	}
}
