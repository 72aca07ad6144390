// Package adapter 把一段内容改写为各目标平台的版本。
// 单个平台失败时用不调用模型的兜底结果替换，聚合结果永远完整。
package adapter

import (
	"context"
	"errors"
	"fmt"
	"postcraft-go/internal/content"
	"postcraft-go/internal/formatter"
	"postcraft-go/internal/hashtag"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HashtagGenerator 是 Hashtag Ranker 对 Adapter 暴露的能力。
type HashtagGenerator interface {
	Generate(ctx context.Context, text, industry string, maxTags int) []model.HashtagSuggestion
}

// Adapter 编排每个平台的生成、格式化与标签增强。
type Adapter struct {
	generator content.Generator
	hashtags  HashtagGenerator
	platforms []model.Platform
	now       func() time.Time
}

// New 创建 Adapter。hashtags 可以为 nil，此时保留模型建议的标签。
func New(generator content.Generator, hashtags HashtagGenerator) *Adapter {
	return &Adapter{
		generator: generator,
		hashtags:  hashtags,
		platforms: model.AllPlatforms,
		now:       time.Now,
	}
}

// AdaptAll 并发改写到全部平台，永不返回错误。
func (a *Adapter) AdaptAll(ctx context.Context, text, style string, tier model.Tier) model.CrossPlatformContent {
	return a.AdaptAllStream(ctx, text, style, tier, nil)
}

// AdaptAllStream 与 AdaptAll 相同，但每个平台完成时回调 onResult（串行调用）。
// 返回的 Adaptations 仍按平台请求顺序排列。
func (a *Adapter) AdaptAllStream(ctx context.Context, text, style string, tier model.Tier, onResult func(model.PlatformContent)) model.CrossPlatformContent {
	results := make([]model.PlatformContent, len(a.platforms))

	var mu sync.Mutex
	// 不使用 errgroup.WithContext：一个平台失败不能取消其它平台。
	var g errgroup.Group
	g.SetLimit(len(a.platforms))
	for i, p := range a.platforms {
		i, p := i, p
		g.Go(func() error {
			res := a.adaptIsolated(ctx, text, p, style, tier)
			results[i] = res
			if onResult != nil {
				mu.Lock()
				onResult(res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	fallbacks := 0
	for _, r := range results {
		if !r.Optimized {
			fallbacks++
		}
	}
	log.Infow("[Adapter] 跨平台改写完成", "platforms", len(results), "fallbacks", fallbacks)

	return model.CrossPlatformContent{
		ID:           uuid.NewString(),
		OriginalText: text,
		Adaptations:  results,
		CreatedAt:    a.now().UTC(),
	}
}

// adaptIsolated 吸收 AdaptOne 的错误与 panic，替换为兜底结果。
func (a *Adapter) adaptIsolated(ctx context.Context, text string, p model.Platform, style string, tier model.Tier) (result model.PlatformContent) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Adapter] 平台 %s 改写发生 panic，使用兜底结果: %v", p, r)
			result = Fallback(text, p)
		}
	}()

	res, err := a.AdaptOne(ctx, text, p, style, tier)
	if err != nil {
		log.Warnf("[Adapter] 平台 %s 改写失败，使用兜底结果: %v", p, err)
		return Fallback(text, p)
	}
	return res
}

// AdaptOne 针对单个平台调用模型改写，然后格式化并增强话题标签。
func (a *Adapter) AdaptOne(ctx context.Context, text string, p model.Platform, style string, tier model.Tier) (model.PlatformContent, error) {
	spec, ok := model.PlatformSpecs[p]
	if !ok {
		return model.PlatformContent{}, fmt.Errorf("unsupported platform %q", p)
	}

	generated, err := a.generator.Generate(ctx, content.GenerateRequest{
		Prompt:     content.BuildAdaptationPrompt(text, p, style),
		Platform:   p,
		Tone:       spec.Tone,
		VoiceStyle: style,
		Tier:       tier,
		MaxTokens:  spec.MaxTokens,
		Raw:        true,
	})
	if err != nil {
		return model.PlatformContent{}, err
	}

	formatted := formatter.Format(generated.Text, p, spec.MaxChars)
	if formatted == "" {
		return model.PlatformContent{}, errors.New("model returned empty adaptation")
	}
	if p == model.PlatformLinkedIn {
		formatted = appendCallToAction(formatted, spec.MaxChars)
	}

	// 优化结果按推荐上限截取，推荐上限不超过平台硬上限，结果总能通过 Validate。
	tags := generated.Hashtags
	if a.hashtags != nil {
		if ranked := a.hashtags.Generate(ctx, text, "", spec.RecommendedMaxTags); len(ranked) > 0 {
			tags = hashtag.Tags(ranked)
		}
	}

	return model.NewPlatformContent(p, formatted, hashtag.NormalizeHashtags(tags, spec.RecommendedMaxTags), true), nil
}

// Validate 检查字符数与话题标签数量，仅作建议，不修改内容。
func Validate(c model.PlatformContent) model.ValidationResult {
	issues := []string{}
	spec, ok := model.PlatformSpecs[c.Platform]
	if !ok {
		issues = append(issues, fmt.Sprintf("unknown platform %q", c.Platform))
		return model.ValidationResult{Valid: false, Issues: issues}
	}

	if c.CharacterCount > spec.MaxChars {
		issues = append(issues, fmt.Sprintf("text is %d characters, exceeding the %d character limit", c.CharacterCount, spec.MaxChars))
	}
	n := len(c.Hashtags)
	if n < spec.MinHashtags {
		issues = append(issues, fmt.Sprintf("uses %d hashtags, fewer than the recommended %d", n, spec.MinHashtags))
	}
	if n > spec.RecommendedMaxTags {
		issues = append(issues, fmt.Sprintf("uses %d hashtags, more than the recommended %d", n, spec.RecommendedMaxTags))
	}
	return model.ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

// ValidateText 按 NewPlatformContent 的规则计算字符数后校验。
func ValidateText(p model.Platform, text string, hashtags []string) model.ValidationResult {
	return Validate(model.NewPlatformContent(p, text, hashtags, true))
}

// JoinForPosting 把正文与标签拼成可直接发布的文本。
func JoinForPosting(c model.PlatformContent) string {
	if len(c.Hashtags) == 0 {
		return c.Text
	}
	sep := " "
	if c.Platform != model.PlatformTwitter {
		sep = "\n\n"
	}
	return c.Text + sep + strings.Join(c.Hashtags, " ")
}
