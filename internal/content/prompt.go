// Package content 负责构建生成提示词、调用补全 API 并解析模型输出。
package content

import (
	"fmt"
	"postcraft-go/internal/config"
	"postcraft-go/internal/model"
	"strings"
)

// ModelLevel 是模型能力档位。
type ModelLevel int

const (
	LevelBasic ModelLevel = iota
	LevelStandard
	LevelAdvanced
)

func (l ModelLevel) String() string {
	switch l {
	case LevelAdvanced:
		return "advanced"
	case LevelStandard:
		return "standard"
	default:
		return "basic"
	}
}

// ModelSet 把能力档位映射为具体的模型名称。
type ModelSet struct {
	Basic    string
	Standard string
	Advanced string
}

// ModelSetFromConfig 从配置构建 ModelSet，缺省值保证三档都有可用模型。
func ModelSetFromConfig(cfg config.LLMModelsConfig) ModelSet {
	set := ModelSet{Basic: cfg.Basic, Standard: cfg.Standard, Advanced: cfg.Advanced}
	if set.Basic == "" {
		set.Basic = "gpt-4o-mini"
	}
	if set.Standard == "" {
		set.Standard = set.Basic
	}
	if set.Advanced == "" {
		set.Advanced = set.Standard
	}
	return set
}

// Name 返回档位对应的模型名。
func (s ModelSet) Name(level ModelLevel) string {
	switch level {
	case LevelAdvanced:
		return s.Advanced
	case LevelStandard:
		return s.Standard
	default:
		return s.Basic
	}
}

// SelectModel 是订阅档位与优先级的纯函数：档位越高模型越强、温度越高。
// priority 会把模型提升一档（最高 advanced），温度 +0.05。
func SelectModel(tier model.Tier, priority bool) (ModelLevel, float64) {
	var level ModelLevel
	var temperature float64
	switch tier {
	case model.TierAgency:
		level, temperature = LevelAdvanced, 0.9
	case model.TierPro:
		level, temperature = LevelStandard, 0.8
	default:
		level, temperature = LevelBasic, 0.7
	}
	if priority {
		if level < LevelAdvanced {
			level++
		}
		temperature += 0.05
	}
	return level, temperature
}

// MaxTokensFor 返回平台的生成 token 上限：twitter < instagram < linkedin。
func MaxTokensFor(p model.Platform) int {
	return model.SpecFor(p).MaxTokens
}

// BuildSystemPrompt 构建包含平台结构规则、语气与可选个人风格的 system 提示词。
func BuildSystemPrompt(p model.Platform, tone, voiceStyle string) string {
	spec := model.SpecFor(p)
	if tone == "" {
		tone = spec.Tone
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are an expert social media copywriter writing for %s.\n", platformTitle(p)))
	sb.WriteString(fmt.Sprintf("Write in a %s tone.\n", tone))
	if s := strings.TrimSpace(voiceStyle); s != "" {
		sb.WriteString(fmt.Sprintf("Match the author's voice: %s\n", s))
	}
	sb.WriteString("\nPlatform rules:\n")
	sb.WriteString(fmt.Sprintf("- Keep the post under %d characters.\n", spec.MaxChars))
	sb.WriteString(fmt.Sprintf("- Suggest between %d and %d hashtags.\n", spec.MinHashtags, spec.RecommendedMaxTags))
	sb.WriteString(fmt.Sprintf("- Structure: %s.\n", spec.ParagraphStyle))
	sb.WriteString("\nReply in exactly this format:\n")
	sb.WriteString("CONTENT: <the post text>\n")
	sb.WriteString("HASHTAGS: <comma-separated hashtags>\n")
	sb.WriteString("SCORE: <predicted engagement score from 1 to 100>\n")
	return sb.String()
}

// BuildUserPrompt 包装调用方的主题或提示词。
func BuildUserPrompt(prompt string) string {
	return fmt.Sprintf("Create a post about the following:\n\n%s", strings.TrimSpace(prompt))
}

// BuildAdaptationPrompt 要求模型在保留核心信息的前提下满足目标平台约束。
func BuildAdaptationPrompt(text string, p model.Platform, voiceStyle string) string {
	spec := model.SpecFor(p)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Adapt the following content for %s.\n", platformTitle(p)))
	sb.WriteString("Preserve the core message and key facts; do not invent new claims.\n")
	sb.WriteString(fmt.Sprintf("The result must stay under %d characters and use between %d and %d hashtags.\n",
		spec.MaxChars, spec.MinHashtags, spec.RecommendedMaxTags))
	if s := strings.TrimSpace(voiceStyle); s != "" {
		sb.WriteString(fmt.Sprintf("Keep the author's voice: %s\n", s))
	}
	sb.WriteString("\nOriginal content:\n")
	sb.WriteString(strings.TrimSpace(text))
	return sb.String()
}

func platformTitle(p model.Platform) string {
	switch p {
	case model.PlatformTwitter:
		return "Twitter/X"
	case model.PlatformInstagram:
		return "Instagram"
	case model.PlatformLinkedIn:
		return "LinkedIn"
	}
	return string(p)
}
