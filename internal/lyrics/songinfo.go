package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-lyrics/internal/player"
	"go-lyrics/pkg/music"
)

const aiRetries = 3

// ErrNotSong 媒体标题不是歌曲（例如视频或播客）
var ErrNotSong = errors.New("media is not a song")

// SongInfoCache 由 pkg/musicCache 实现
type SongInfoCache interface {
	Get(key string) (string, bool)
	Add(key, value string) error
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// resolveSongInfo 播放器提供了歌手和标题时直接使用，否则让 AI 拆分媒体标题
func (p *Provider) resolveSongInfo(ctx context.Context, song player.Song) (music.SongInfo, error) {
	if song.Artist != "" && song.Title != "" {
		return music.SongInfo{Title: song.Title, Artist: song.Artist, Duration: song.Duration, IsSong: true}, nil
	}
	if p.aiClient == nil {
		return music.SongInfo{Title: song.Title, Duration: song.Duration, IsSong: true}, nil
	}

	key := song.Identifier()
	if p.songCache != nil {
		if cached, ok := p.songCache.Get(key); ok {
			var info music.SongInfo
			if err := json.Unmarshal([]byte(cached), &info); err == nil {
				logger.Debug().Str("song", key).Msg("Song info cache hit")
				info.Duration = song.Duration
				return info, nil
			}
		}
	}

	info, err := p.querySongInfo(ctx, key)
	if err != nil {
		return music.SongInfo{}, err
	}
	if p.songCache != nil {
		if raw, err := json.Marshal(info); err == nil {
			if err := p.songCache.Add(key, string(raw)); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache song info")
			}
		}
	}
	info.Duration = song.Duration
	return info, nil
}

func (p *Provider) querySongInfo(ctx context.Context, mediaTitle string) (music.SongInfo, error) {
	var (
		raw string
		err error
	)
	for i := range aiRetries {
		raw, err = p.aiClient.HandleText(ctx, formatQuerySong(mediaTitle))
		if err == nil {
			break
		}
		logger.Warn().Err(err).Str("model", p.aiClient.Name()).Int("attempt", i+1).Msg("Failed to query AI")
		select {
		case <-ctx.Done():
			return music.SongInfo{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		return music.SongInfo{}, fmt.Errorf("failed to query %s after %d attempts: %w", p.aiClient.Name(), aiRetries, err)
	}

	info, err := parseSongInfo(raw)
	if err != nil {
		return music.SongInfo{}, err
	}
	logger.Info().Str("title", info.Title).Str("artist", info.Artist).Bool("is_song", info.IsSong).Msg("AI returned song info")
	return info, nil
}

// parseSongInfo 模型偶尔会包一层 ```json 代码块
func parseSongInfo(raw string) (music.SongInfo, error) {
	raw = strings.TrimSpace(raw)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var info music.SongInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return music.SongInfo{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if info.IsSong && strings.TrimSpace(info.Title) == "" {
		return music.SongInfo{}, errors.New("AI response has no title")
	}
	return info, nil
}
