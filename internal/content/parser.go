package content

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultEngagementScore 是模型未给出分数时使用的默认值。
const DefaultEngagementScore = 75

// ParseKind 标记解析结果是按标记解析成功还是整段兜底。
type ParseKind int

const (
	Parsed ParseKind = iota
	Fallback
)

// ParseResult 是模型输出的结构化结果。
type ParseResult struct {
	Kind     ParseKind
	Content  string
	Hashtags []string
	Score    int
}

type section int

const (
	sectionContent section = iota
	sectionHashtags
	sectionScore
)

var (
	// 标记按 CONTENT → HASHTAGS → SCORE 的顺序出现，每个都可缺省。
	markerPattern  = regexp.MustCompile(`(?m)(?:^|\s)[*#]*[ \t]*(CONTENT|HASHTAGS|SCORE)[ \t]*\**[ \t]*:\**`)
	hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	integerPattern = regexp.MustCompile(`-?\d+`)
	tagCleaner     = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// Parse 解析 "CONTENT: / HASHTAGS: / SCORE:" 格式的模型输出。
// 找不到任何标记时整段作为正文，话题标签通过正则扫描恢复，分数取默认值。
func Parse(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return fallbackResult(text)
	}

	sections := make(map[section]string, 3)
	last := section(-1)
	for i, m := range matches {
		sec := sectionOf(text[m[2]:m[3]])
		// 乱序或重复的标记视为上一节内容的一部分
		if sec <= last {
			continue
		}
		end := len(text)
		for _, next := range matches[i+1:] {
			if sectionOf(text[next[2]:next[3]]) > sec {
				end = next[0]
				break
			}
		}
		sections[sec] = strings.TrimSpace(text[m[1]:end])
		last = sec
	}

	body, ok := sections[sectionContent]
	if !ok {
		// 没有 CONTENT 标记时，第一个标记之前的文本就是正文
		body = strings.TrimSpace(text[:matches[0][0]])
	}
	if body == "" {
		return fallbackResult(text)
	}

	result := ParseResult{Kind: Parsed, Content: body, Score: DefaultEngagementScore}
	if tags, ok := sections[sectionHashtags]; ok {
		result.Hashtags = parseHashtagList(tags)
	} else {
		result.Hashtags = scanHashtags(body)
	}
	if s, ok := sections[sectionScore]; ok {
		result.Score = parseScore(s)
	}
	return result
}

func fallbackResult(text string) ParseResult {
	return ParseResult{
		Kind:     Fallback,
		Content:  text,
		Hashtags: scanHashtags(text),
		Score:    DefaultEngagementScore,
	}
}

func sectionOf(marker string) section {
	switch strings.ToUpper(marker) {
	case "HASHTAGS":
		return sectionHashtags
	case "SCORE":
		return sectionScore
	default:
		return sectionContent
	}
}

// parseHashtagList 解析逗号分隔的标签列表，统一加上 # 前缀并去重。
func parseHashtagList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	tags := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		token := tagCleaner.ReplaceAllString(strings.TrimSpace(f), "")
		if token == "" {
			continue
		}
		key := strings.ToLower(token)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, "#"+token)
	}
	return tags
}

func scanHashtags(s string) []string {
	found := hashtagPattern.FindAllString(s, -1)
	tags := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, tag := range found {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// parseScore 取第一个整数并限制在 [1,100]，没有整数时返回默认分数。
func parseScore(s string) int {
	m := integerPattern.FindString(s)
	if m == "" {
		return DefaultEngagementScore
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// 超出 int 范围的数字只可能是越界值
		if strings.HasPrefix(m, "-") {
			return 1
		}
		return 100
	}
	return clampScore(n)
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}
