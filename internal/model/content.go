package model

import (
	"time"
	"unicode/utf8"
)

// GeneratedContent 是一次生成调用的结构化结果。
type GeneratedContent struct {
	Text              string   `json:"text"`
	Hashtags          []string `json:"hashtags"`
	EngagementScore   int      `json:"engagementScore"`
	PlatformOptimized bool     `json:"platformOptimized"`
}

// PlatformContent 是某个平台上的一份改写结果。Optimized=false 表示兜底结果。
type PlatformContent struct {
	Platform       Platform `json:"platform"`
	Text           string   `json:"text"`
	Hashtags       []string `json:"hashtags"`
	CharacterCount int      `json:"characterCount"`
	Optimized      bool     `json:"optimized"`
}

// NewPlatformContent 构造 PlatformContent，并按码点计算字符数。
func NewPlatformContent(p Platform, text string, hashtags []string, optimized bool) PlatformContent {
	if hashtags == nil {
		hashtags = []string{}
	}
	return PlatformContent{
		Platform:       p,
		Text:           text,
		Hashtags:       hashtags,
		CharacterCount: utf8.RuneCountInString(text),
		Optimized:      optimized,
	}
}

// CrossPlatformContent 是一次跨平台改写请求的聚合结果。
// Adaptations 与请求的平台一一对应，顺序与请求顺序一致。
type CrossPlatformContent struct {
	ID           string            `json:"id"`
	OriginalText string            `json:"originalText"`
	Adaptations  []PlatformContent `json:"adaptations"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// HashtagCategory 是话题标签的分类。
type HashtagCategory string

const (
	CategoryIndustry HashtagCategory = "industry"
	CategorySkill    HashtagCategory = "skill"
	CategoryCareer   HashtagCategory = "career"
	CategoryTrending HashtagCategory = "trending"
	CategoryGeneral  HashtagCategory = "general"
)

// HashtagSuggestion 是排序前的候选标签。
type HashtagSuggestion struct {
	Tag            string          `json:"tag"`
	Category       HashtagCategory `json:"category"`
	RelevanceScore float64         `json:"relevanceScore"`
	Description    string          `json:"description"`
}

// ValidationResult 是对平台内容的建议性校验结果。
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}
