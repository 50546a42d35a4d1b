package music

import (
	"fmt"
	"strings"
	"time"

	"go-lyrics/pkg/lrclib"
	"go-lyrics/pkg/netease"
	"go-lyrics/pkg/ttplayer"
)

// Options 创建提供商时使用的参数
type Options struct {
	TTPlayerURL   string
	NeteaseCookie string
	Timeout       time.Duration
	Retries       int
}

// CreateProvider 创建音乐提供商客户端
func CreateProvider(provider Provider, opts Options) (MusicAPI, error) {
	switch provider {
	case ProviderTTPlayer:
		logger.Info().Str("base_url", opts.TTPlayerURL).Msg("Creating TTPlayer client")
		return ttplayer.NewClient(
			ttplayer.WithBaseURL(opts.TTPlayerURL),
			ttplayer.WithTimeout(opts.Timeout),
			ttplayer.WithRetries(opts.Retries),
		), nil
	case ProviderNetEase:
		logger.Info().Msg("Creating NetEase music client")
		return netease.NewClient(opts.NeteaseCookie), nil
	case ProviderLRCLib:
		logger.Info().Msg("Creating LRCLib client")
		return lrclib.NewClient(
			lrclib.WithTimeout(opts.Timeout),
			lrclib.WithRetries(opts.Retries),
		), nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// CreateManager 按配置顺序创建音乐API管理器
func CreateManager(names []string, opts Options) (*Manager, error) {
	var providers []MusicAPI

	for _, name := range names {
		providerType, err := GetProviderByName(name)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping provider")
			continue
		}
		provider, err := CreateProvider(providerType, opts)
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no music providers available")
	}

	return NewManager(providers), nil
}

// GetAvailableProviders 获取所有可用的提供商
func GetAvailableProviders() []Provider {
	return []Provider{
		ProviderTTPlayer,
		ProviderNetEase,
		ProviderLRCLib,
	}
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ttplayer", "qianqian", "千千静听":
		return ProviderTTPlayer, nil
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	case "lrclib":
		return ProviderLRCLib, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
