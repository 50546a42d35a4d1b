// Package lyrics resolves the lyrics for the song a player reports,
// preferring local files over cached downloads over remote providers.
package lyrics

import (
	"context"
	"errors"
	"fmt"

	"go-lyrics/internal/player"
	"go-lyrics/pkg/ai"
	"go-lyrics/pkg/lrc"
	"go-lyrics/pkg/music"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "lyrics").Logger()

// ErrUntimed 拿到的歌词没有时间轴
var ErrUntimed = errors.New("lyrics have no timed lines")

func timed(data []byte) bool {
	return lrc.NewIndex(nil).ParseBytes(data) == lrc.StatusOK
}

type Provider struct {
	manager   music.MusicManager
	store     Store
	aiClient  ai.AiInterface
	songCache SongInfoCache
}

// NewProvider aiClient 和 songCache 可以为 nil
func NewProvider(manager music.MusicManager, store Store, aiClient ai.AiInterface, songCache SongInfoCache) *Provider {
	return &Provider{
		manager:   manager,
		store:     store,
		aiClient:  aiClient,
		songCache: songCache,
	}
}

// GetLyrics returns raw LRC bytes for song. Local files are returned in
// their original encoding; downloaded lyrics are UTF-8.
func (p *Provider) GetLyrics(ctx context.Context, song player.Song) ([]byte, error) {
	if path := localPath(song.URL); path != "" {
		if data, ok := siblingLyrics(path); ok {
			logger.Info().Str("path", path).Msg("Using sibling lyrics file")
			return data, nil
		}
		if data, ok := embeddedLyrics(path); ok {
			logger.Info().Str("path", path).Msg("Using embedded lyrics")
			return data, nil
		}
	}

	info, err := p.resolveSongInfo(ctx, song)
	if err != nil {
		return nil, err
	}
	if !info.IsSong {
		return nil, fmt.Errorf("%w: %s", ErrNotSong, song.Identifier())
	}

	key := cacheKey(info.Title, info.Artist)
	if p.store != nil {
		data, ok, err := p.store.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("key", key).Msg("Lyrics cache lookup failed")
		case ok && !timed(data):
			logger.Warn().Str("key", key).Msg("Cached lyrics have no timed lines, refetching")
		case ok:
			logger.Info().Str("key", key).Msg("Cache HIT")
			return data, nil
		}
		logger.Info().Str("key", key).Msg("Cache MISS, fetching from providers")
	}

	text, err := p.manager.GetLyricsByInfo(ctx, info.Title, info.Artist, info.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to get lyrics for '%s - %s': %w", info.Title, info.Artist, err)
	}
	data := []byte(text)
	if !timed(data) {
		return nil, fmt.Errorf("%w: '%s - %s'", ErrUntimed, info.Title, info.Artist)
	}

	if p.store != nil {
		if err := p.store.Put(ctx, key, data); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Failed to store lyrics")
		}
	}
	return data, nil
}
