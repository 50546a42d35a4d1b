package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-lyrics/internal/config"
	"go-lyrics/internal/i3block"
	"go-lyrics/internal/ipc"
	"go-lyrics/internal/lyrics"
	"go-lyrics/internal/player"
	"go-lyrics/pkg/ai"
	"go-lyrics/pkg/ai/gemini"
	"go-lyrics/pkg/ai/openai"
	"go-lyrics/pkg/music"
	musiccache "go-lyrics/pkg/musicCache"
	"go-lyrics/pkg/redis"
	"go-lyrics/pkg/tencent"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	fetchTimeout    = 30 * time.Second
	songCacheFile   = "music_cache.list"
	msgNoMusic      = "No music playing..."
	msgSearchingFmt = "... Searching for lyrics for %s ..."
)

type App struct {
	cfg            *config.Config
	ipcServer      *ipc.Server
	lyricsProvider *lyrics.Provider
	translator     tencent.Translator
	i3             *i3block.Controller
	closers        []io.Closer

	currentSong string
	mutex       sync.Mutex

	// 歌词调度器控制
	schedulerMutex  sync.Mutex
	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}

	getSong     func(ctx context.Context) (player.Song, error)
	getPosition func(ctx context.Context) (int64, error)
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.App.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.App.CacheDir, err)
	}
	log.Info().Str("cache_dir", cfg.App.CacheDir).Msg("Lyrics cache directory")

	a := &App{
		cfg:         cfg,
		ipcServer:   ipc.NewServer(cfg.App.SocketPath, cfg.App.StatusFile),
		getSong:     player.GetCurrentSong,
		getPosition: player.GetCurrentPosition,
	}

	manager, err := music.CreateManager(cfg.Lyrics.Providers, music.Options{
		TTPlayerURL:   cfg.Lyrics.TTPlayerURL,
		NeteaseCookie: cfg.Lyrics.NeteaseCookie,
		Timeout:       cfg.Lyrics.Timeout,
		Retries:       cfg.Lyrics.Retries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create music manager: %w", err)
	}
	log.Info().Strs("providers", manager.GetProviderNames()).Msg("Lyrics providers")

	aiClient := a.newAIClient(ctx)

	var songCache lyrics.SongInfoCache
	if c, err := musiccache.Open(filepath.Join(cfg.App.CacheDir, songCacheFile)); err != nil {
		log.Warn().Err(err).Msg("Song info cache disabled")
	} else {
		songCache = c
	}

	a.lyricsProvider = lyrics.NewProvider(manager, a.newStore(), aiClient, songCache)

	if cfg.Tencent.Enabled {
		translator, err := tencent.NewClient(cfg.Tencent.SecretID, cfg.Tencent.SecretKey, cfg.Tencent.Region, cfg.Tencent.Target)
		if err != nil {
			log.Warn().Err(err).Msg("Translation disabled")
		} else {
			a.translator = translator
		}
	}

	if cfg.I3Block.Enabled {
		a.i3 = i3block.NewController(cfg.I3Block.Process, cfg.I3Block.Signal)
	}

	return a, nil
}

func (a *App) newAIClient(ctx context.Context) ai.AiInterface {
	if a.cfg.AI.APIKey == "" {
		return nil
	}
	if a.cfg.AI.ModuleName == "gemini" {
		g, err := gemini.NewGemini(ctx, a.cfg.AI.APIKey, a.cfg.AI.Model)
		if err != nil {
			log.Warn().Err(err).Msg("AI title splitting disabled")
			return nil
		}
		a.closers = append(a.closers, g)
		return g
	}
	model := a.cfg.AI.Model
	if model == "" {
		// 兼容旧配置：module_name 直接写模型名
		model = a.cfg.AI.ModuleName
		if model == "openai" {
			model = ""
		}
	}
	return openai.NewOpenAi(a.cfg.AI.APIKey, model, a.cfg.AI.BaseURL)
}

// newStore redis 不可用时退回到文件缓存
func (a *App) newStore() lyrics.Store {
	rc := a.cfg.Redis
	if rc.Enabled {
		client, err := redis.NewClient(rc.Addr, rc.Password, rc.DB, rc.Prefix)
		if err == nil {
			log.Info().Str("addr", rc.Addr).Msg("Using redis lyrics cache")
			a.closers = append(a.closers, client)
			return lyrics.NewRedisStore(client, rc.TTL)
		}
		log.Warn().Err(err).Str("addr", rc.Addr).Msg("Redis unavailable, falling back to file cache")
	}
	return lyrics.NewFileStore(a.cfg.App.CacheDir)
}

// Run 轮询播放器直到 ctx 结束
func (a *App) Run(ctx context.Context) error {
	if err := a.ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer a.Close()

	if a.i3 != nil {
		if err := a.i3.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start i3block controller")
		}
	}

	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	log.Info().Msg("Starting player check loop...")
	for {
		a.updateSongInfo(ctx)
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) Close() {
	a.stopScheduler()
	if a.i3 != nil {
		a.i3.Stop()
	}
	a.ipcServer.Close()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

func (a *App) broadcast(text string) {
	a.ipcServer.Broadcast(text)
	if a.i3 != nil {
		if err := a.i3.Notify(); err != nil {
			log.Debug().Err(err).Msg("Failed to notify i3blocks")
		}
	}
}

func (a *App) updateSongInfo(ctx context.Context) {
	song, err := a.getSong(ctx)
	if err != nil {
		a.mutex.Lock()
		changed := a.currentSong != ""
		a.currentSong = ""
		a.mutex.Unlock()
		if changed {
			a.stopScheduler()
		}
		if errors.Is(err, player.ErrNoPlayer) || changed {
			a.broadcast(msgNoMusic)
		}
		return
	}

	songIdentifier := song.Identifier()
	a.mutex.Lock()
	if songIdentifier == a.currentSong {
		a.mutex.Unlock()
		return
	}
	a.currentSong = songIdentifier
	a.mutex.Unlock()

	fetchID := uuid.NewString()
	flog := log.With().Str("fetch_id", fetchID).Str("song", songIdentifier).Logger()
	flog.Info().Msg("New song detected")

	a.stopScheduler()
	a.broadcast(fmt.Sprintf(msgSearchingFmt, songIdentifier))

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	data, err := a.lyricsProvider.GetLyrics(fetchCtx, song)
	if err != nil {
		if errors.Is(err, lyrics.ErrNotSong) {
			flog.Info().Msg("Media is not a song")
			a.broadcast(fmt.Sprintf("'%s' is not a song.", songIdentifier))
			return
		}
		flog.Error().Err(err).Msg("Failed to get lyrics")
		a.broadcast(fmt.Sprintf("Error getting lyrics: %v", err))
		return
	}
	flog.Info().Int("bytes", len(data)).Msg("Lyrics fetched")

	a.startLyricScheduler(ctx, data)
}
