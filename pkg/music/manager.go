package music

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go-lyrics/pkg/lrc"

	"github.com/rs/zerolog/log"
)

// Provider 音乐提供商类型
type Provider string

const (
	// ProviderTTPlayer 千千静听歌词服务
	ProviderTTPlayer Provider = "ttplayer"
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

var logger = log.With().Str("component", "music-manager").Logger()

// Manager 音乐API管理器
type Manager struct {
	providers []MusicAPI
	primary   MusicAPI
}

// NewManager 创建新的音乐API管理器
func NewManager(providers []MusicAPI) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No music providers configured")
		return &Manager{}
	}

	primary := providers[0]
	logger.Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", primary.GetProviderName()).
		Msg("Music API Manager initialized")

	return &Manager{
		providers: providers,
		primary:   primary,
	}
}

// SearchSong searches the providers in order. The returned ID is prefixed
// with the index of the provider that found it so GetLyrics can route it
// back.
func (m *Manager) SearchSong(ctx context.Context, title, artist string) (string, error) {
	if len(m.providers) == 0 {
		return "", fmt.Errorf("no music providers available")
	}

	var lastErr error
	for i, provider := range m.providers {
		logger.Info().
			Str("provider", provider.GetProviderName()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying provider")

		songID, err := provider.SearchSong(ctx, title, artist)
		if err == nil && songID != "" {
			logger.Info().
				Str("provider", provider.GetProviderName()).
				Msg("Successfully found song")
			return fmt.Sprintf("%d:%s", i, songID), nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned an empty song ID", provider.GetProviderName())
		}

		logger.Warn().
			Str("provider", provider.GetProviderName()).
			Err(err).
			Msg("Provider failed")
		lastErr = err
	}

	return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
}

// GetLyrics 获取 SearchSong 返回的歌曲的歌词
func (m *Manager) GetLyrics(ctx context.Context, songID string) (string, error) {
	if len(m.providers) == 0 {
		return "", fmt.Errorf("no music providers available")
	}

	idx, id, ok := strings.Cut(songID, ":")
	if !ok {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(m.providers) {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}

	provider := m.providers[i]
	lyrics, err := provider.GetLyrics(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s failed to get lyrics: %w", provider.GetProviderName(), err)
	}
	return lyrics, nil
}

// GetLyricsByInfo 根据歌曲信息直接获取歌词（封装搜索+获取歌词）
func (m *Manager) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	if len(m.providers) == 0 {
		return "", fmt.Errorf("no music providers available")
	}

	var lastErr error
	for i, provider := range m.providers {
		logger.Info().
			Str("title", title).
			Str("artist", artist).
			Float64("duration", duration).
			Str("provider", provider.GetProviderName()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying to get lyrics")

		if da, ok := provider.(DurationAware); ok && duration > 0 {
			lyrics, err := da.GetLyricsByInfo(ctx, title, artist, duration)
			if err == nil {
				err = checkTimed(provider, lyrics)
			}
			if err == nil {
				logger.Info().
					Str("provider", provider.GetProviderName()).
					Msg("Successfully got lyrics using duration")
				return lyrics, nil
			}
			logger.Warn().Err(err).Str("provider", provider.GetProviderName()).Msg("Lookup with duration failed")
			lastErr = err
			continue
		}

		songID, err := provider.SearchSong(ctx, title, artist)
		if err == nil && songID == "" {
			err = fmt.Errorf("%s returned an empty song ID", provider.GetProviderName())
		}
		if err != nil {
			logger.Warn().
				Str("provider", provider.GetProviderName()).
				Err(err).
				Msg("Provider search failed")
			lastErr = err
			continue
		}

		lyrics, err := provider.GetLyrics(ctx, songID)
		if err == nil {
			err = checkTimed(provider, lyrics)
		}
		if err != nil {
			logger.Warn().
				Str("provider", provider.GetProviderName()).
				Str("song_id", songID).
				Err(err).
				Msg("Provider get lyrics failed")
			lastErr = err
			continue
		}

		logger.Info().
			Str("title", title).
			Str("artist", artist).
			Str("provider", provider.GetProviderName()).
			Msg("Successfully got lyrics")
		return lyrics, nil
	}

	return "", fmt.Errorf("all providers failed to get lyrics for '%s - %s', last error: %w", title, artist, lastErr)
}

// checkTimed 纯文本歌词无法同步显示，按失败处理以便尝试下一个提供商
func checkTimed(provider MusicAPI, lyrics string) error {
	if lyrics == "" {
		return fmt.Errorf("%s returned empty lyrics", provider.GetProviderName())
	}
	if !lrc.HasTimedLines(lyrics) {
		return fmt.Errorf("%s returned lyrics without timestamps", provider.GetProviderName())
	}
	return nil
}

// GetProviderName 获取管理器名称（实现MusicAPI接口）
func (m *Manager) GetProviderName() string {
	if m.primary != nil {
		return fmt.Sprintf("Manager[Primary: %s]", m.primary.GetProviderName())
	}
	return "Manager[No Providers]"
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.GetProviderName()
	}
	return names
}
