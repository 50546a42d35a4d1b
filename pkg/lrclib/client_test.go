package lrclib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const searchJSON = `[
	{"id":1,"trackName":"Song","artistName":"Artist","duration":180,"plainLyrics":"plain only"},
	{"id":2,"trackName":"Song","artistName":"Artist","duration":200,"syncedLyrics":"not really synced"},
	{"id":3,"trackName":"Song","artistName":"Artist","duration":300,"syncedLyrics":"[00:01.00]long version"},
	{"id":4,"trackName":"Song","artistName":"Artist","duration":241,"syncedLyrics":"[00:01.00]synced"},
	{"id":5,"trackName":"Song (Remix)","artistName":"Other","duration":240,"syncedLyrics":"[00:01.00]remix"},
	{"id":6,"trackName":"Song","artistName":"Artist","duration":240,"instrumental":true,"syncedLyrics":"[00:01.00]instrumental"}
]`

func newTestClient(url string) *Client {
	return NewClient(WithBaseURL(url), WithTimeout(2*time.Second), withFastRetry())
}

func withFastRetry() Option {
	return func(c *Client) { c.retryDelay = 10 * time.Millisecond }
}

func searchServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("track_name") != "Song" || r.Header.Get("User-Agent") == "" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(body))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGetLyricsByInfoRanksTimedResults(t *testing.T) {
	client := newTestClient(searchServer(t, searchJSON).URL)

	tests := []struct {
		name     string
		duration float64
		want     string
	}{
		// 时长 240 附近只有 id 4 带时间轴且歌手匹配
		{"duration match", 240, "[00:01.00]synced"},
		{"closest duration", 290, "[00:01.00]long version"},
		// 没有时长时取第一个带时间轴的完全匹配，跳过纯文本和无时间轴的结果
		{"no duration", 0, "[00:01.00]long version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.GetLyricsByInfo(context.Background(), "Song", "Artist", tt.duration)
			if err != nil {
				t.Fatalf("GetLyricsByInfo() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetLyricsByInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOnlyUntimedResults(t *testing.T) {
	body := `[{"id":1,"trackName":"Song","artistName":"Artist","plainLyrics":"plain only","syncedLyrics":""},
		{"id":2,"trackName":"Song","artistName":"Artist","syncedLyrics":"no tags here"}]`
	client := newTestClient(searchServer(t, body).URL)

	if got, err := client.GetLyricsByInfo(context.Background(), "Song", "Artist", 0); err == nil {
		t.Errorf("expected error, got %q", got)
	}
}

func TestExactGetUsedWithDuration(t *testing.T) {
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("duration") != "215" {
			t.Errorf("duration = %q", r.URL.Query().Get("duration"))
		}
		w.Write([]byte(`{"id":9,"trackName":"Song","artistName":"Artist","duration":215,"syncedLyrics":"[00:02.00]exact"}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		w.Write([]byte(`[]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	got, err := newTestClient(server.URL).GetLyricsByInfo(context.Background(), "Song", "Artist", 214.6)
	if err != nil {
		t.Fatalf("GetLyricsByInfo() error: %v", err)
	}
	if got != "[00:02.00]exact" || searches.Load() != 0 {
		t.Errorf("got %q with %d searches", got, searches.Load())
	}
}

func TestSearchSongAndGetLyrics(t *testing.T) {
	client := newTestClient(searchServer(t, searchJSON).URL)

	songID, _ := client.SearchSong(context.Background(), "Song", "Artist")
	lyrics, err := client.GetLyrics(context.Background(), songID)
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if lyrics != "[00:01.00]long version" {
		t.Errorf("GetLyrics() = %q", lyrics)
	}

	if _, err := client.GetLyrics(context.Background(), "no-separator"); err == nil {
		t.Error("expected invalid ID error")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(searchJSON))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GetLyricsByInfo(context.Background(), "Song", "Artist", 0); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetLyricsByInfo(context.Background(), "Song", "Artist", 0); err == nil {
		t.Error("expected error for 400")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetLyricsByInfo(context.Background(), "a", "b", 0); err == nil {
		t.Error("expected error for empty result list")
	}
}

func TestPickTrack(t *testing.T) {
	tracks := []Track{
		{ID: 1, TrackName: "Other", ArtistName: "Artist", Duration: 200, SyncedLyrics: "[00:01.00]a"},
		{ID: 2, TrackName: "Song", ArtistName: "Someone", Duration: 200, SyncedLyrics: "[00:01.00]b"},
		{ID: 3, TrackName: "Song", ArtistName: "Artist", Duration: 260, SyncedLyrics: "[00:01.00]c"},
	}
	if got := pickTrack(tracks, "Song", "Artist", 200); got == nil || got.ID != 3 {
		t.Errorf("artist match should beat duration, got %+v", got)
	}
	if got := pickTrack(tracks[:2], "Song", "Artist", 0); got == nil || got.ID != 2 {
		t.Errorf("title match should beat no match, got %+v", got)
	}
	if got := pickTrack(nil, "Song", "Artist", 0); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
