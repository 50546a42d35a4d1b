package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// playerctl 输出字段之间用制表符分隔
const metadataFormat = "{{artist}}\t{{title}}\t{{xesam:url}}\t{{mpris:length}}"

// ErrNoPlayer 没有正在播放的播放器
var ErrNoPlayer = errors.New("no player running")

// Song 当前播放的曲目
type Song struct {
	Artist   string
	Title    string
	URL      string  // xesam:url，本地文件为 file:// 地址
	Duration float64 // 秒
}

// Identifier 返回 "artist - title"，缺少歌手时只返回标题
func (s Song) Identifier() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

func GetCurrentSong(ctx context.Context) (Song, error) {
	output, err := exec.CommandContext(ctx, "playerctl", "metadata", "--format", metadataFormat).Output()
	if err != nil {
		return Song{}, fmt.Errorf("%w: %v", ErrNoPlayer, err)
	}
	return parseMetadata(string(output))
}

// GetCurrentPosition 播放进度，单位毫秒
func GetCurrentPosition(ctx context.Context) (int64, error) {
	out, err := exec.CommandContext(ctx, "playerctl", "position").Output()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoPlayer, err)
	}
	return parsePosition(string(out))
}

func parseMetadata(output string) (Song, error) {
	fields := strings.Split(strings.TrimRight(output, "\r\n"), "\t")
	for len(fields) < 4 {
		fields = append(fields, "")
	}

	song := Song{
		Artist: strings.TrimSpace(fields[0]),
		Title:  strings.TrimSpace(fields[1]),
		URL:    strings.TrimSpace(fields[2]),
	}
	if song.Title == "" {
		return Song{}, errors.New("player reported no title")
	}
	// mpris:length 单位是微秒
	if us, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64); err == nil && us > 0 {
		song.Duration = float64(us) / 1e6
	}
	return song, nil
}

func parsePosition(output string) (int64, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", strings.TrimSpace(output), err)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("invalid position %v", seconds)
	}
	return int64(math.Round(seconds * 1000)), nil
}
