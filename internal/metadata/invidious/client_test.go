package invidious

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client, err := New(server.URL, 5*time.Second, 100, logger)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	client.http = server.Client()

	return client, server
}

func TestNew_InvalidBaseURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if _, err := New("not a url", time.Second, 1, logger); err == nil {
		t.Error("expected error for base URL without scheme")
	}
	if _, err := New("", time.Second, 1, logger); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestClient_Search(t *testing.T) {
	fixture := loadFixture(t, "search_response.json")

	tests := []struct {
		name       string
		response   []byte
		statusCode int
		wantCount  int
		wantErr    error
	}{
		{
			name:       "successful search",
			response:   fixture,
			statusCode: http.StatusOK,
			wantCount:  2, // channel item is filtered out
		},
		{
			name:       "empty results",
			response:   []byte(`[]`),
			statusCode: http.StatusOK,
			wantCount:  0,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    ErrRateLimited,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			wantErr:    ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Path; got != "/api/v1/search" {
					t.Errorf("unexpected path %q", got)
				}
				if got := r.URL.Query().Get("type"); got != "video" {
					t.Errorf("expected type=video, got %q", got)
				}
				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					w.Write(tt.response)
				}
			}

			client, server := newTestClient(t, handler)
			defer server.Close()
			defer client.Close()

			results, err := client.Search(context.Background(), "big buck bunny")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != tt.wantCount {
				t.Fatalf("expected %d results, got %d", tt.wantCount, len(results))
			}
		})
	}
}

func TestClient_Search_ResultFields(t *testing.T) {
	fixture := loadFixture(t, "search_response.json")
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	results, err := client.Search(context.Background(), "big buck bunny")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.Title != "Big Buck Bunny" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Author != "Blender" {
		t.Errorf("unexpected author %q", first.Author)
	}
	if first.DurationSeconds != 635 {
		t.Errorf("unexpected duration %d", first.DurationSeconds)
	}
	if first.SourceURL != "https://www.youtube.com/watch?v=aqz-KE-bpKQ" {
		t.Errorf("unexpected source URL %q", first.SourceURL)
	}
	// Largest thumbnail wins.
	if first.ThumbnailURL != "https://i.ytimg.com/vi/aqz-KE-bpKQ/maxres.jpg" {
		t.Errorf("unexpected thumbnail %q", first.ThumbnailURL)
	}
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be made for empty query")
	})
	defer server.Close()
	defer client.Close()

	if _, err := client.Search(context.Background(), ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestClient_Search_ContextCancellation(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[]`))
	})
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Search(ctx, "query"); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
