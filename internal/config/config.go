package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSocketPath    = "/tmp/lyrics_app.sock"
	DefaultCheckInterval = 5 * time.Second
	DefaultLead          = 100 * time.Millisecond
	DefaultTTL           = 30 * 24 * time.Hour
	DefaultTimeout       = 10 * time.Second
	DefaultRetries       = 3
	DefaultSignal        = 55
)

var logger = log.With().Str("component", "config").Logger()

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyrics")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyrics_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyrics")
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		CheckInterval string `toml:"check_interval"`
		CacheDir      string `toml:"cache_dir"`
		StatusFile    string `toml:"status_file"`
		Lead          string `toml:"lead"`
	} `toml:"app"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	AI struct {
		ModuleName string `toml:"module_name"`
		Model      string `toml:"model"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
		TTL      string `toml:"ttl"`
	} `toml:"redis"`

	Lyrics struct {
		Providers     []string `toml:"providers"`
		TTPlayerURL   string   `toml:"ttplayer_url"`
		Timeout       string   `toml:"timeout"`
		Retries       *int     `toml:"retries"`
		NeteaseCookie string   `toml:"netease_cookie"`
	} `toml:"lyrics"`

	Tencent struct {
		Enabled   bool   `toml:"enabled"`
		SecretID  string `toml:"secret_id"`
		SecretKey string `toml:"secret_key"`
		Region    string `toml:"region"`
		Target    string `toml:"target"`
	} `toml:"tencent"`

	I3Block struct {
		Enabled bool   `toml:"enabled"`
		Process string `toml:"process"`
		Signal  int    `toml:"signal"`
	} `toml:"i3block"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	CacheDir      string
	StatusFile    string        // 为空时不写状态文件
	Lead          time.Duration // 歌词提前显示的时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level string
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	Model      string
	APIKey     string
	BaseURL    string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// LyricsConfig 歌词来源配置
type LyricsConfig struct {
	Providers     []string
	TTPlayerURL   string
	Timeout       time.Duration
	Retries       int
	NeteaseCookie string
}

// TencentConfig 翻译配置
type TencentConfig struct {
	Enabled   bool
	SecretID  string
	SecretKey string
	Region    string
	Target    string
}

// I3BlockConfig i3blocks 刷新信号配置
type I3BlockConfig struct {
	Enabled bool
	Process string
	Signal  int
}

// Config 主配置结构
type Config struct {
	App     AppConfig
	Log     LogConfig
	AI      AIConfig
	Redis   RedisConfig
	Lyrics  LyricsConfig
	Tencent TencentConfig
	I3Block I3BlockConfig
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			CacheDir:      getDefaultCacheDir(),
			Lead:          DefaultLead,
		},
		Log: LogConfig{Level: "info"},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "lyrics:",
			TTL:    DefaultTTL,
		},
		Lyrics: LyricsConfig{
			Providers: []string{"ttplayer", "lrclib", "netease"},
			Timeout:   DefaultTimeout,
			Retries:   DefaultRetries,
		},
		Tencent: TencentConfig{
			Region: "ap-guangzhou",
			Target: "zh",
		},
		I3Block: I3BlockConfig{
			Process: "i3blocks",
			Signal:  DefaultSignal,
		},
	}
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyrics", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lyrics", "config.toml")
}

// Load 从默认路径加载配置，读取失败时使用默认值
func Load() *Config {
	path := GetConfigPath()
	cfg, err := LoadFrom(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to load config file, using defaults")
		return Default()
	}
	return cfg
}

// LoadFrom 加载指定路径的配置；文件不存在时返回默认配置
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	var tc TomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info().Str("path", path).Msg("Config file not found, using defaults")
			return cfg, nil
		}
		return nil, err
	}
	logger.Info().Str("path", path).Msg("Loaded config")

	cfg.apply(&tc)

	if cfg.AI.APIKey == "" {
		logger.Warn().Str("path", path).Msg("No AI API key configured; media titles without artist metadata cannot be resolved")
	}
	return cfg, nil
}

func (cfg *Config) apply(tc *TomlConfig) {
	// App
	setString(&cfg.App.SocketPath, tc.App.SocketPath)
	setDuration(&cfg.App.CheckInterval, tc.App.CheckInterval, "app.check_interval")
	setString(&cfg.App.CacheDir, tc.App.CacheDir)
	setString(&cfg.App.StatusFile, tc.App.StatusFile)
	setDuration(&cfg.App.Lead, tc.App.Lead, "app.lead")

	setString(&cfg.Log.Level, tc.Log.Level)

	// AI
	setString(&cfg.AI.ModuleName, tc.AI.ModuleName)
	setString(&cfg.AI.Model, tc.AI.Model)
	setString(&cfg.AI.BaseURL, tc.AI.BaseURL)
	setString(&cfg.AI.APIKey, tc.AI.APIKey)

	// Redis
	cfg.Redis.Enabled = tc.Redis.Enabled
	setString(&cfg.Redis.Addr, tc.Redis.Addr)
	setString(&cfg.Redis.Password, tc.Redis.Password)
	if tc.Redis.DB != 0 {
		cfg.Redis.DB = tc.Redis.DB
	}
	setString(&cfg.Redis.Prefix, tc.Redis.Prefix)
	setDuration(&cfg.Redis.TTL, tc.Redis.TTL, "redis.ttl")

	// Lyrics
	if len(tc.Lyrics.Providers) > 0 {
		cfg.Lyrics.Providers = tc.Lyrics.Providers
	}
	setString(&cfg.Lyrics.TTPlayerURL, tc.Lyrics.TTPlayerURL)
	setDuration(&cfg.Lyrics.Timeout, tc.Lyrics.Timeout, "lyrics.timeout")
	if tc.Lyrics.Retries != nil && *tc.Lyrics.Retries >= 0 {
		cfg.Lyrics.Retries = *tc.Lyrics.Retries
	}
	setString(&cfg.Lyrics.NeteaseCookie, tc.Lyrics.NeteaseCookie)

	// Tencent
	cfg.Tencent.Enabled = tc.Tencent.Enabled
	setString(&cfg.Tencent.SecretID, tc.Tencent.SecretID)
	setString(&cfg.Tencent.SecretKey, tc.Tencent.SecretKey)
	setString(&cfg.Tencent.Region, tc.Tencent.Region)
	setString(&cfg.Tencent.Target, tc.Tencent.Target)

	// i3blocks
	cfg.I3Block.Enabled = tc.I3Block.Enabled
	setString(&cfg.I3Block.Process, tc.I3Block.Process)
	if tc.I3Block.Signal > 0 {
		cfg.I3Block.Signal = tc.I3Block.Signal
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, key string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		logger.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return
	}
	*dst = d
}
