// Package lrclib looks up synchronized lyrics on lrclib.net. Only results
// whose syncedLyrics carry at least one timed line are ever returned.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-lyrics/pkg/lrc"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://lrclib.net/api"
	userAgent      = "lyrics-backend/1.0"
	// 时长相差不超过该值视为同一版本
	durationTolerance = 3
)

var logger = log.With().Str("component", "lrclib").Logger()

// errNotFound /get 没有精确匹配
var errNotFound = errors.New("no exact match")

// Track lrclib 返回的一条记录
type Track struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// timed 是否有可以同步显示的歌词
func (t *Track) timed() bool {
	return !t.Instrumental && lrc.HasTimedLines(t.SyncedLyrics)
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithRetries sets the number of attempts per request.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        DefaultBaseURL,
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
		retryDelay:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// SearchSong lrclib 没有独立的搜索步骤，ID 就是 "title|artist"
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	return title + "|" + artist, nil
}

func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	title, artist, ok := strings.Cut(songID, "|")
	if !ok || title == "" {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}
	return c.GetLyricsByInfo(ctx, title, artist, 0)
}

// GetLyricsByInfo tries the exact /get lookup when the duration is known,
// then ranks /search results.
func (c *Client) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	seconds := int(duration + 0.5)
	if seconds > 0 {
		track, err := c.get(ctx, title, artist, seconds)
		switch {
		case err == nil && track.timed():
			logger.Info().Int("id", track.ID).Str("track", track.TrackName).Msg("Exact match")
			return track.SyncedLyrics, nil
		case err == nil, errors.Is(err, errNotFound):
			logger.Debug().Str("title", title).Msg("No timed exact match, searching")
		default:
			return "", err
		}
	}

	tracks, err := c.search(ctx, title, artist)
	if err != nil {
		return "", err
	}
	logger.Info().Int("results", len(tracks)).Str("title", title).Str("artist", artist).Msg("Search finished")

	best := pickTrack(tracks, title, artist, seconds)
	if best == nil {
		return "", fmt.Errorf("no synced lyrics found for '%s - %s'", title, artist)
	}
	logger.Info().
		Int("id", best.ID).
		Str("track", best.TrackName).
		Str("artist", best.ArtistName).
		Int("duration", best.Duration).
		Int("target", seconds).
		Msg("Selected synced lyrics")
	return best.SyncedLyrics, nil
}

func (c *Client) get(ctx context.Context, title, artist string, seconds int) (*Track, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	params.Set("duration", strconv.Itoa(seconds))

	var track Track
	if err := c.getJSON(ctx, c.baseURL+"/get?"+params.Encode(), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (c *Client) search(ctx context.Context, title, artist string) ([]Track, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	var tracks []Track
	if err := c.getJSON(ctx, c.baseURL+"/search?"+params.Encode(), &tracks); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tracks, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("lrclib returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry 只在网络错误和 5xx 时重试，4xx 直接返回
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := max(c.maxRetries, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt+1).Int("max", attempts).Msg("Retrying request")
			select {
			case <-req.Context().Done():
				return nil, fmt.Errorf("request cancelled: %w", req.Context().Err())
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
			lastErr = err
			if req.Context().Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Request failed")
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// matchLevel 2: 标题和歌手都匹配，1: 只有标题，0: 都不匹配
func matchLevel(t *Track, title, artist string) int {
	if !containsIgnoreCase(t.TrackName, title) {
		return 0
	}
	if containsIgnoreCase(t.ArtistName, artist) {
		return 2
	}
	return 1
}

// pickTrack 只考虑带时间轴的结果：先比匹配程度，再比时长差。
// 时长差在容差内的视为相同，保留搜索结果原有的顺序。
func pickTrack(tracks []Track, title, artist string, seconds int) *Track {
	var (
		best      *Track
		bestLevel int
		bestDiff  int
	)
	for i := range tracks {
		t := &tracks[i]
		if !t.timed() {
			continue
		}
		level := matchLevel(t, title, artist)
		diff := 0
		if seconds > 0 {
			diff = max(abs(t.Duration-seconds)-durationTolerance, 0)
		}
		if best == nil || level > bestLevel || (level == bestLevel && diff < bestDiff) {
			best, bestLevel, bestDiff = t, level, diff
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
