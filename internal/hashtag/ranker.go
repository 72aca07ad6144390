// Package hashtag 合并模型建议与精选关键词标签，去重、排序并按平台上限截断。
package hashtag

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/llm"
	"postcraft-go/pkg/log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

const (
	// 模型建议的候选统一给较高的相关度。
	modelSuggestionRelevance = 0.9
	modelMaxTokens           = 300
	modelTemperature         = 0.5
	defaultTimeout           = 15 * time.Second
)

// 形如 "1. #Tag - reason"、"#Tag: reason" 的行。
var suggestionLine = regexp.MustCompile(`^\s*(?:\d+[.)]\s*|[-*•]\s*)?(#[\p{L}\p{N}_]+)\s*[-–—:]\s*(.+)$`)

// Ranker 生成话题标签建议。
type Ranker struct {
	client  llm.Completer
	model   string
	timeout time.Duration
}

// NewRanker 创建 Ranker。client 为 nil 时只使用精选关键词。
func NewRanker(client llm.Completer, modelName string, timeout time.Duration) *Ranker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Ranker{client: client, model: modelName, timeout: timeout}
}

// Generate 合并两种策略的结果：大小写不敏感去重（先出现者保留）、按相关度降序、取前 maxTags 个。
// 模型调用失败时只返回精选结果，这条路径不会返回错误。
func (r *Ranker) Generate(ctx context.Context, text, industry string, maxTags int) []model.HashtagSuggestion {
	if maxTags <= 0 {
		return []model.HashtagSuggestion{}
	}

	var candidates []model.HashtagSuggestion
	suggested, err := r.suggestFromModel(ctx, text, industry, maxTags)
	if err != nil {
		log.Warnf("[HashtagRanker] 模型建议失败，仅使用精选标签: %v", err)
	} else {
		candidates = append(candidates, suggested...)
	}
	candidates = append(candidates, CuratedMatches(text, industry)...)

	return rank(candidates, maxTags)
}

func (r *Ranker) suggestFromModel(ctx context.Context, text, industry string, n int) ([]model.HashtagSuggestion, error) {
	if r.client == nil {
		return nil, fmt.Errorf("no completion client configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Suggest %d relevant hashtags for the post below.\n", n))
	if industry != "" {
		prompt.WriteString(fmt.Sprintf("The author works in: %s.\n", industry))
	}
	prompt.WriteString("Return one per line in the form: #Hashtag - short justification\n\nPost:\n")
	prompt.WriteString(strings.TrimSpace(text))

	raw, err := r.client.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: "You are a social media strategist who picks precise, professional hashtags.",
		UserPrompt:   prompt.String(),
		Model:        r.model,
		MaxTokens:    modelMaxTokens,
		Temperature:  modelTemperature,
	})
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(raw), nil
}

// ParseSuggestions 逐行匹配 "#Tag - 理由" 格式的模型输出。
func ParseSuggestions(raw string) []model.HashtagSuggestion {
	var out []model.HashtagSuggestion
	for _, line := range strings.Split(raw, "\n") {
		m := suggestionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tag := normalizeTag(m[1])
		if tag == "" {
			continue
		}
		out = append(out, model.HashtagSuggestion{
			Tag:            tag,
			Category:       model.CategoryGeneral,
			RelevanceScore: modelSuggestionRelevance,
			Description:    strings.TrimSpace(m[2]),
		})
	}
	return out
}

// CuratedMatches 在小写正文中查找精选关键词，每个类别最多贡献 maxMatchesPerCategory 个。
func CuratedMatches(text, industry string) []model.HashtagSuggestion {
	lower := strings.ToLower(text)
	industry = strings.ToLower(strings.TrimSpace(industry))

	var out []model.HashtagSuggestion
	for _, cat := range curatedCatalog {
		matched := 0
		for _, e := range cat.entries {
			if matched >= maxMatchesPerCategory {
				break
			}
			hit := containsWord(lower, e.keyword)
			if !hit && cat.category == model.CategoryIndustry && industry != "" {
				hit = containsWord(industry, e.keyword)
			}
			if !hit {
				continue
			}
			out = append(out, model.HashtagSuggestion{
				Tag:            e.tag,
				Category:       cat.category,
				RelevanceScore: cat.relevance,
				Description:    fmt.Sprintf("matched keyword %q", e.keyword),
			})
			matched++
		}
	}
	return out
}

// NormalizeHashtags 统一 # 前缀、大小写不敏感去重并截断到 max 个。
func NormalizeHashtags(tags []string, max int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if max >= 0 && len(out) >= max {
			break
		}
		tag := normalizeTag(t)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Tags 提取建议中的标签文本。
func Tags(suggestions []model.HashtagSuggestion) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Tag)
	}
	return out
}

func rank(candidates []model.HashtagSuggestion, maxTags int) []model.HashtagSuggestion {
	unique := make([]model.HashtagSuggestion, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.Tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, c)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})
	if len(unique) > maxTags {
		unique = unique[:maxTags]
	}
	return unique
}

func normalizeTag(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), "#")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return ""
	}
	return "#" + s
}

// containsWord 判断 keyword 是否以完整词的形式出现在 text 中。
func containsWord(text, keyword string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], keyword)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(keyword)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		from = start + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_')
}
