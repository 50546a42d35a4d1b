package ai

import "context"

// AiInterface 文本模型的最小接口，只做单轮问答
type AiInterface interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}
