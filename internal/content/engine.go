package content

import (
	"context"
	"errors"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/llm"
	"postcraft-go/pkg/log"
	"strings"
	"time"
)

// DefaultTimeout 是单次补全调用的硬超时。
const DefaultTimeout = 20 * time.Second

// GenerateRequest 是一次生成的输入。
type GenerateRequest struct {
	Prompt     string
	Platform   model.Platform
	Tone       string
	VoiceStyle string
	Tier       model.Tier
	Priority   bool
	// MaxTokens 为 0 时按平台取默认上限。
	MaxTokens int
	// Raw 为 true 时 Prompt 原样作为 user 提示词，不再包装。
	Raw bool
}

// Generator 是 Prompt/Response 引擎对外的能力接口。
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (model.GeneratedContent, error)
}

// Engine 组合提示词构建、模型选择、补全调用与输出解析。
type Engine struct {
	client  llm.Completer
	models  ModelSet
	timeout time.Duration
}

// NewEngine 创建引擎；补全客户端通过构造函数注入。
func NewEngine(client llm.Completer, models ModelSet, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{client: client, models: models, timeout: timeout}
}

// Generate 调用补全 API 并解析结果。调用失败时返回 *GenerationError，不做兜底。
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (model.GeneratedContent, error) {
	level, temperature := SelectModel(req.Tier, req.Priority)
	modelName := e.models.Name(level)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = MaxTokensFor(req.Platform)
	}
	userPrompt := req.Prompt
	if !req.Raw {
		userPrompt = BuildUserPrompt(req.Prompt)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.client.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(req.Platform, req.Tone, req.VoiceStyle),
		UserPrompt:   userPrompt,
		Model:        modelName,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			log.Warnf("[ContentEngine] 补全调用超时, platform: %s, model: %s, timeout: %s", req.Platform, modelName, e.timeout)
		} else {
			log.Warnf("[ContentEngine] 补全调用失败, platform: %s, model: %s, error: %v", req.Platform, modelName, err)
		}
		return model.GeneratedContent{}, &GenerationError{Platform: req.Platform, Model: modelName, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return model.GeneratedContent{}, &GenerationError{Platform: req.Platform, Model: modelName, Err: errors.New("empty completion")}
	}

	parsed := Parse(raw)
	log.Infow("[ContentEngine] 生成完成",
		"platform", req.Platform,
		"model", modelName,
		"parsed", parsed.Kind == Parsed,
		"hashtags", len(parsed.Hashtags),
		"latency", time.Since(start).String(),
	)

	return model.GeneratedContent{
		Text:              parsed.Content,
		Hashtags:          parsed.Hashtags,
		EngagementScore:   parsed.Score,
		PlatformOptimized: parsed.Kind == Parsed,
	}, nil
}
