// Package lrc parses timed lyrics (LRC tags) into a sorted timestamp index
// and answers "which line is active at time T" queries.
package lrc

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Status 解析结果
type Status int

const (
	// StatusOK 至少解析出一行歌词
	StatusOK Status = iota
	// StatusInvalid 内容无法读取、无法解码或没有任何有效行
	StatusInvalid
	// StatusNotFound 歌词文件不存在（仅 ParseFile）
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalid:
		return "invalid"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	offsetRe = regexp.MustCompile(`(?i)\[offset:(\d+)\]`)
	lineRe   = regexp.MustCompile(`(?m)^[ \t]*((?:\[\d+:\d+(?:\.\d+)?\])+)(.*)$`)
	tagRe    = regexp.MustCompile(`\[(\d+):(\d+(?:\.\d+)?)\]`)
)

var logger = log.With().Str("component", "lrc").Logger()

// Line 一行歌词及其时间戳（毫秒）
type Line struct {
	TimestampMs int64
	Text        string
}

// Index holds the parsed lyrics of one song. The zero value is an empty,
// usable index. Parse* calls replace the whole content; queries may run
// concurrently with a parse.
type Index struct {
	mu       sync.RWMutex
	offsetMs int64
	lines    []Line
	detect   Detector
}

// NewIndex returns an empty index that decodes raw bytes with detect.
// A nil detect means DetectCharset.
func NewIndex(detect Detector) *Index {
	return &Index{detect: detect}
}

// Parse replaces the index with the lyrics found in text.
func (idx *Index) Parse(text string) Status {
	offset, lines := parse(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(lines) == 0 {
		idx.offsetMs = 0
		idx.lines = nil
		logger.Debug().Msg("No timed lines found")
		return StatusInvalid
	}

	idx.offsetMs = offset
	idx.lines = lines
	logger.Debug().
		Int("lines", len(lines)).
		Int64("offset_ms", offset).
		Msg("Lyrics index loaded")
	return StatusOK
}

// ParseBytes decodes raw with the detected charset (UTF-8 when detection
// gives nothing usable) and parses the result.
func (idx *Index) ParseBytes(raw []byte) Status {
	detect := idx.detect
	if detect == nil {
		detect = DetectCharset
	}

	text, err := decode(raw, detect(raw))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode lyrics")
		idx.reset()
		return StatusInvalid
	}
	return idx.Parse(text)
}

// ParseFile reads and parses the lyrics file at path.
func (idx *Index) ParseFile(path string) Status {
	raw, err := os.ReadFile(path)
	if err != nil {
		idx.reset()
		if errors.Is(err, fs.ErrNotExist) {
			return StatusNotFound
		}
		logger.Warn().Err(err).Str("path", path).Msg("Failed to read lyrics file")
		return StatusInvalid
	}
	return idx.ParseBytes(raw)
}

func (idx *Index) reset() {
	idx.mu.Lock()
	idx.offsetMs = 0
	idx.lines = nil
	idx.mu.Unlock()
}

// ActiveIndex returns the index of the last line whose timestamp is not
// after ms. It returns 0 when ms is before the first line or the index is
// empty, so 0 is ambiguous for callers.
func (idx *Index) ActiveIndex(ms int64) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i := sort.Search(len(idx.lines), func(i int) bool {
		return idx.lines[i].TimestampMs > ms
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// Timestamp returns the timestamp of line i, clamped to the last line.
// Negative i and an empty index give 0.
func (idx *Index) Timestamp(i int) int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.lines) == 0 || i < 0 {
		return 0
	}
	if i >= len(idx.lines) {
		i = len(idx.lines) - 1
	}
	return idx.lines[i].TimestampMs
}

// Len 返回歌词行数
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.lines)
}

// Offset 返回 [offset:N] 指定的全局偏移（毫秒）
func (idx *Index) Offset() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.offsetMs
}

// Lines returns a copy of the parsed lines in timestamp order.
func (idx *Index) Lines() []Line {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]Line(nil), idx.lines...)
}

// Lyrics returns the line texts in timestamp order.
func (idx *Index) Lyrics() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	texts := make([]string, len(idx.lines))
	for i, l := range idx.lines {
		texts[i] = l.Text
	}
	return texts
}

// Timestamps returns the line timestamps in ascending order.
func (idx *Index) Timestamps() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stamps := make([]int64, len(idx.lines))
	for i, l := range idx.lines {
		stamps[i] = l.TimestampMs
	}
	return stamps
}

// Text returns the text of line i, or "" when i is out of range.
func (idx *Index) Text(i int) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if i < 0 || i >= len(idx.lines) {
		return ""
	}
	return idx.lines[i].Text
}

func parse(text string) (int64, []Line) {
	text = strings.TrimPrefix(text, "\ufeff")

	var offset int64
	if m := offsetRe.FindStringSubmatch(text); m != nil {
		// 超出范围的偏移按 0 处理
		if v, err := strconv.ParseUint(m[1], 10, 63); err == nil {
			offset = int64(v)
		}
	}

	byTime := make(map[int64]string)
	for _, m := range lineRe.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[2])
		if content == "" {
			continue
		}
		for _, tag := range tagRe.FindAllStringSubmatch(m[1], -1) {
			ts, ok := tagTime(tag[1], tag[2])
			if !ok || ts > math.MaxInt64-offset {
				continue
			}
			byTime[ts+offset] = content
		}
	}
	if len(byTime) == 0 {
		return offset, nil
	}

	lines := make([]Line, 0, len(byTime))
	for ts, content := range byTime {
		lines = append(lines, Line{TimestampMs: ts, Text: content})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].TimestampMs < lines[j].TimestampMs })
	return offset, lines
}

// tagTime 换算成毫秒；超出 int64 毫秒范围的标签视为无效
func tagTime(minutes, seconds string) (int64, bool) {
	mins, err := strconv.ParseInt(minutes, 10, 64)
	if err != nil || mins > math.MaxInt64/60000 {
		return 0, false
	}
	sec, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return 0, false
	}
	secMs := math.Round(sec * 1000)
	if secMs >= math.MaxInt64 {
		return 0, false
	}
	minMs := mins * 60000
	if minMs > math.MaxInt64-int64(secMs) {
		return 0, false
	}
	return minMs + int64(secMs), true
}

// HasTimedLines reports whether text contains at least one timed line.
func HasTimedLines(text string) bool {
	_, lines := parse(text)
	return len(lines) > 0
}
