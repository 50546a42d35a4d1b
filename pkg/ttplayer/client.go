// Package ttplayer talks to the TTPlayer (qianqian) lyrics server: hex
// encoded search terms, an XML candidate list, and a per-candidate
// verification code that authorizes the download.
package ttplayer

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL 千千静听歌词服务
const DefaultBaseURL = "http://ttlrcct.qianqian.com/dll/lyricsvr.dll"

var logger = log.With().Str("component", "ttplayer").Logger()

// Candidate 搜索结果中的一首歌
type Candidate struct {
	ID          int32
	Artist      string
	Title       string
	DisplayName string
}

type credential struct {
	id   int32
	code string
}

// SearchResult lists the candidates of one search. Downloads address a
// candidate by its position in Candidates, not by the server id.
type SearchResult struct {
	Candidates []Candidate
	creds      []credential
}

// Len 候选数量
func (r *SearchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Candidates)
}

// ProgressFunc receives the byte count written so far and the expected
// total (-1 when the server does not say).
type ProgressFunc func(downloaded, total int64)

type searchResponse struct {
	XMLName xml.Name `xml:"result"`
	Items   []struct {
		ID     int32  `xml:"id,attr"`
		Artist string `xml:"artist,attr"`
		Title  string `xml:"title,attr"`
	} `xml:"lrc"`
}

// Client TTPlayer 歌词客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 指定 lyricsvr.dll 地址
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "?")
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

// WithTimeout bounds each search or download.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
			c.httpClient.Timeout = d
		}
	}
}

// NewClient 创建新的 TTPlayer 客户端
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:        DefaultBaseURL,
		requestTimeout: 10 * time.Second,
		maxRetries:     3,
		retryDelay:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "TTPlayer"
}

func (c *Client) searchURL(artist, title string) string {
	return fmt.Sprintf("%s?sh?Artist=%s&Title=%s&Flags=0", c.baseURL, EncodeQueryTerm(artist), EncodeQueryTerm(title))
}

func (c *Client) downloadURL(id int32, code string) string {
	return fmt.Sprintf("%s?dl?Id=%d&Code=%s", c.baseURL, id, code)
}

// Search queries the server and computes the verification code of every
// candidate up front.
func (c *Client) Search(ctx context.Context, artist, title string) (*SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	searchURL := c.searchURL(artist, title)
	logger.Info().Str("url", searchURL).Msg("Searching lyrics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return parseSearchResponse(body)
}

func parseSearchResponse(body []byte) (*SearchResult, error) {
	var parsed searchResponse
	if err := xml.Unmarshal(bytes.TrimSpace(body), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	res := &SearchResult{
		Candidates: make([]Candidate, 0, len(parsed.Items)),
		creds:      make([]credential, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		res.Candidates = append(res.Candidates, Candidate{
			ID:          item.ID,
			Artist:      item.Artist,
			Title:       item.Title,
			DisplayName: fmt.Sprintf("%s - %s", item.Artist, item.Title),
		})
		res.creds = append(res.creds, credential{
			id:   item.ID,
			code: VerificationCode(item.Artist, item.Title, item.ID),
		})
	}
	return res, nil
}

// Download streams the lyrics of the candidate at position into w.
func (c *Client) Download(ctx context.Context, res *SearchResult, position int, w io.Writer, progress ProgressFunc) (int64, error) {
	if position < 0 || position >= res.Len() {
		return 0, fmt.Errorf("candidate position %d out of range (%d results)", position, res.Len())
	}
	cred := res.creds[position]

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	downloadURL := c.downloadURL(cred.id, cred.code)
	logger.Info().
		Int("position", position).
		Int32("id", cred.id).
		Msg("Downloading lyrics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download request failed with status %d", resp.StatusCode)
	}

	pw := &progressWriter{w: w, total: resp.ContentLength, progress: progress}
	n, err := io.Copy(pw, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to stream lyrics: %w", err)
	}
	return n, nil
}

// SearchSong 搜索歌曲，返回 "id|code" 形式的歌曲ID
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	res, err := c.Search(ctx, artist, title)
	if err != nil {
		return "", err
	}
	if res.Len() == 0 {
		return "", fmt.Errorf("no lyrics found for '%s - %s'", artist, title)
	}

	pos := bestMatch(res.Candidates, title, artist)
	cred := res.creds[pos]
	logger.Info().
		Str("match", res.Candidates[pos].DisplayName).
		Int32("id", cred.id).
		Msg("Selected candidate")
	return fmt.Sprintf("%d|%s", cred.id, cred.code), nil
}

// GetLyrics 根据 SearchSong 返回的ID下载歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	idPart, code, ok := strings.Cut(songID, "|")
	if !ok || code == "" {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}
	id, err := strconv.ParseInt(idPart, 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}

	res := &SearchResult{
		Candidates: []Candidate{{ID: int32(id)}},
		creds:      []credential{{id: int32(id), code: code}},
	}
	var buf bytes.Buffer
	if _, err := c.Download(ctx, res, 0, &buf, nil); err != nil {
		return "", err
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", fmt.Errorf("empty lyrics for song ID %s", songID)
	}
	return buf.String(), nil
}

func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt+1).Int("max", attempts).Msg("Retrying request")
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
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

func bestMatch(candidates []Candidate, title, artist string) int {
	for i, cand := range candidates {
		if containsIgnoreCase(cand.Title, title) && containsIgnoreCase(cand.Artist, artist) {
			return i
		}
	}
	for i, cand := range candidates {
		if containsIgnoreCase(cand.Title, title) {
			return i
		}
	}
	return 0
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type progressWriter struct {
	w        io.Writer
	written  int64
	total    int64
	progress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.progress != nil {
		p.progress(p.written, p.total)
	}
	return n, err
}
