package tencent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

var logger = log.With().Str("component", "tencent").Logger()

// Translator 歌词行翻译
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Client 腾讯云机器翻译客户端
type Client struct {
	tmtClient *tmt.Client
	target    string
	projectID int64
}

// NewClient 创建翻译客户端，target 为目标语言（如 "zh"）
func NewClient(secretID, secretKey, region, target string) (*Client, error) {
	credential := common.NewCredential(secretID, secretKey)

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.ReqMethod = "POST"
	cpf.HttpProfile.ReqTimeout = 10
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	tmtClient, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("failed to create tencent tmt client: %w", err)
	}
	if target == "" {
		target = "zh"
	}
	return &Client{tmtClient: tmtClient, target: target}, nil
}

// Translate 翻译一行文本；原文已是目标语言时原样返回
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	detect := tmt.NewLanguageDetectRequest()
	detect.Text = common.StringPtr(text)
	detect.ProjectId = common.Int64Ptr(c.projectID)
	detected, err := c.tmtClient.LanguageDetectWithContext(ctx, detect)
	if err != nil {
		return "", fmt.Errorf("failed to detect language: %w", err)
	}

	source := "auto"
	if detected.Response != nil && detected.Response.Lang != nil {
		source = *detected.Response.Lang
	}
	if !needsTranslation(source, c.target) {
		return text, nil
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr(source)
	request.Target = common.StringPtr(c.target)
	request.ProjectId = common.Int64Ptr(c.projectID)
	response, err := c.tmtClient.TextTranslateWithContext(ctx, request)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send request")
		return "", fmt.Errorf("failed to translate text: %w", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", fmt.Errorf("empty translation response")
	}
	return *response.Response.TargetText, nil
}

// needsTranslation 比较语言主代码，例如 zh-TW 与 zh 视为相同
func needsTranslation(source, target string) bool {
	primary := func(lang string) string {
		lang = strings.ToLower(lang)
		if i := strings.IndexAny(lang, "-_"); i > 0 {
			lang = lang[:i]
		}
		return lang
	}
	return primary(source) != primary(target)
}
