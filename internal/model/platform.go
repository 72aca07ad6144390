// Package model 包含了应用的数据模型定义。
package model

import "fmt"

// Platform 标识一个目标社交平台。
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
)

// AllPlatforms 是跨平台改写时的固定顺序。
var AllPlatforms = []Platform{PlatformTwitter, PlatformInstagram, PlatformLinkedIn}

// ParsePlatform 校验并返回平台标识。
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case PlatformTwitter, PlatformInstagram, PlatformLinkedIn:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Tier 是订阅档位。
type Tier string

const (
	TierFree   Tier = "free"
	TierPro    Tier = "pro"
	TierAgency Tier = "agency"
)

// ParseTier 解析订阅档位，未知值按 free 处理。
func ParseTier(s string) Tier {
	switch t := Tier(s); t {
	case TierPro, TierAgency:
		return t
	}
	return TierFree
}

// PlatformSpec 描述平台的结构约束，长度统一按 Unicode 码点计算。
type PlatformSpec struct {
	MaxChars           int
	MinHashtags        int
	RecommendedMaxTags int
	MaxHashtags        int
	MaxTokens          int
	Tone               string
	ParagraphStyle     string
}

// PlatformSpecs 是各平台的约束表。
var PlatformSpecs = map[Platform]PlatformSpec{
	PlatformTwitter: {
		MaxChars:           280,
		MinHashtags:        1,
		RecommendedMaxTags: 3,
		MaxHashtags:        3,
		MaxTokens:          150,
		Tone:               "conversational",
		ParagraphStyle:     "short punchy lines separated by a blank line",
	},
	PlatformInstagram: {
		MaxChars:           2200,
		MinHashtags:        5,
		RecommendedMaxTags: 15,
		MaxHashtags:        30,
		MaxTokens:          500,
		Tone:               "inspirational",
		ParagraphStyle:     "an opening line, short middle paragraphs and a closing line, each separated by a blank line",
	},
	PlatformLinkedIn: {
		MaxChars:           3000,
		MinHashtags:        3,
		RecommendedMaxTags: 5,
		MaxHashtags:        5,
		MaxTokens:          800,
		Tone:               "professional",
		ParagraphStyle:     "a hook, value paragraphs of one or two sentences and a closing call to action, each separated by a blank line",
	},
}

// SpecFor 返回平台约束；未知平台返回最保守的 Twitter 约束。
func SpecFor(p Platform) PlatformSpec {
	if s, ok := PlatformSpecs[p]; ok {
		return s
	}
	return PlatformSpecs[PlatformTwitter]
}
