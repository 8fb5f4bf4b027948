package mapgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"winr8te-bot/internal/config"

	"go.uber.org/zap"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := New(config.RustMapsConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		PollSeconds:    1,
		MaxWaitMinutes: 1,
	}, zap.NewNop())
	c.pollInterval = 10 * time.Millisecond
	c.maxWait = 200 * time.Millisecond
	return c
}

func TestRequestGenerationAcceptsConflict(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusConflict} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/maps" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("X-API-Key") != "test-key" {
				t.Errorf("missing api key header")
			}
			w.WriteHeader(status)
		}))
		client := testClient(t, server.URL)
		if err := client.RequestGeneration(context.Background(), 42, 3500); err != nil {
			t.Fatalf("status %d: %v", status, err)
		}
		server.Close()
	}
}

func TestRequestGenerationRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	if err := client.RequestGeneration(context.Background(), 42, 3500); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestPollStatusParsesReadyMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/3500/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":           "abc",
				"url":          "https://rustmaps.com/map/abc",
				"imageUrl":     "https://img/full.png",
				"imageIconUrl": "https://img/icon.png",
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	info, ready, err := client.PollStatus(context.Background(), 42, 3500)
	if err != nil || !ready {
		t.Fatalf("ready=%v err=%v", ready, err)
	}
	if info.ImageURL != "https://img/icon.png" {
		t.Fatalf("icon url must win, got %s", info.ImageURL)
	}
	if info.URL != "https://rustmaps.com/map/abc" {
		t.Fatalf("unexpected url %s", info.URL)
	}
}

func TestPollStatusFallsBackToFullImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "abc", "url": "u", "imageUrl": "https://img/full.png"},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	info, _, err := client.PollStatus(context.Background(), 42, 3500)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if info.ImageURL != "https://img/full.png" {
		t.Fatalf("expected full image fallback, got %s", info.ImageURL)
	}
}

func TestPollStatusNotReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, ready, err := client.PollStatus(context.Background(), 42, 3500)
	if err != nil || ready {
		t.Fatalf("404 must mean not ready, ready=%v err=%v", ready, err)
	}
}

func TestWaitForMapsEventuallyReady(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "abc", "url": "u", "imageUrl": "i"},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	infos, err := client.WaitForMaps(context.Background(), []int64{42}, 3500)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(infos) != 1 || infos[0].Seed != 42 {
		t.Fatalf("unexpected infos %+v", infos)
	}
}

func TestWaitForMapsTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	client.maxWait = 30 * time.Millisecond

	_, err := client.WaitForMaps(context.Background(), []int64{42}, 3500)
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestWaitForMapsHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.WaitForMaps(ctx, []int64{42}, 3500)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
