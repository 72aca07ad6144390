// Package formatter 将文本整理为符合各平台结构约定的形态。
// 它只调整空白、截断位置和段落分组，不改写句子本身。
package formatter

import (
	"postcraft-go/internal/model"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	ellipsis = "..."
	// 句子边界或词边界必须落在上限的 80% 之后才会被采用。
	boundaryRatio = 0.8

	twitterShortText = 100
	twitterLineLimit = 140
	paragraphBreak   = "\n\n"
)

var (
	horizontalSpaceRuns = regexp.MustCompile(`[ \t\f\v]+`)
	spaceAroundNewline  = regexp.MustCompile(` *\n *`)
	excessNewlines      = regexp.MustCompile(`\n{3,}`)
)

// Format 依次执行：空白归一化、按上限截断、平台结构重排。
// maxLength <= 0 表示不限制长度。返回值的码点长度永远不超过 maxLength。
func Format(text string, platform model.Platform, maxLength int) string {
	normalized := Normalize(text)
	truncated := Truncate(normalized, maxLength)

	var out string
	switch platform {
	case model.PlatformTwitter:
		out = formatTwitter(truncated)
	case model.PlatformInstagram:
		out = formatInstagram(truncated)
	case model.PlatformLinkedIn:
		out = formatLinkedIn(truncated)
	default:
		out = truncated
	}

	// 段落重排会把单个空格换成空行，可能让结果多出几个字符；超限时保留未重排的文本。
	if maxLength > 0 && RuneLen(out) > maxLength {
		return truncated
	}
	return out
}

// Normalize 统一换行符，折叠连续空格和 3 个以上的换行，并去掉首尾空白。
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpaceRuns.ReplaceAllString(text, " ")
	text = spaceAroundNewline.ReplaceAllString(text, "\n")
	text = excessNewlines.ReplaceAllString(text, paragraphBreak)
	return strings.TrimSpace(text)
}

// Truncate 把 text 截断到 maxLength 个码点以内。
// 优先截在上限 80% 之后的最后一个完整句子；否则截在 80% 之后的最后一个词边界并追加省略号；
// 两者都没有时在 maxLength-3 处硬截断并追加省略号。
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if maxLength <= 0 || len(runes) <= maxLength {
		return text
	}
	if maxLength <= len(ellipsis) {
		return string(runes[:maxLength])
	}

	threshold := int(float64(maxLength) * boundaryRatio)

	for i := maxLength - 1; i >= threshold; i-- {
		if isTerminator(runes[i]) && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			return string(runes[:i+1])
		}
	}

	limit := maxLength - len(ellipsis)
	for i := limit; i > threshold; i-- {
		if unicode.IsSpace(runes[i]) {
			cut := strings.TrimRightFunc(string(runes[:i]), unicode.IsSpace)
			if cut != "" {
				return cut + ellipsis
			}
		}
	}

	return string(runes[:limit]) + ellipsis
}

// SplitSentences 按 . ! ? 后跟空白（或文本结尾）以及换行切分句子，保留句末标点。
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	flush := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush(i)
			continue
		}
		if !isTerminator(r) {
			continue
		}
		// 连续的标点（"?!"、"..."）归入同一句
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			flush(j + 1)
		}
		i = j
	}
	flush(len(runes))
	return sentences
}

// RuneLen 返回字符串的码点数，这是平台字数上限使用的单位。
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func formatTwitter(text string) string {
	if RuneLen(text) < twitterShortText {
		return text
	}
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		return text
	}

	var lines []string
	current := ""
	for _, s := range sentences {
		switch {
		case current == "":
			current = s
		case RuneLen(current)+1+RuneLen(s) <= twitterLineLimit:
			current += " " + s
		default:
			lines = append(lines, current)
			current = s
		}
	}
	lines = append(lines, current)
	return strings.Join(lines, paragraphBreak)
}

func formatInstagram(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) <= 2 {
		return text
	}

	last := len(sentences) - 1
	paragraphs := []string{sentences[0]}
	paragraphs = append(paragraphs, groupPairs(sentences[1:last])...)
	paragraphs = append(paragraphs, sentences[last])
	return strings.Join(paragraphs, paragraphBreak)
}

func formatLinkedIn(text string) string {
	// 已经分段的内容视为格式化完成，保证幂等。
	if strings.Contains(text, paragraphBreak) {
		return text
	}
	sentences := SplitSentences(text)
	if len(sentences) <= 2 {
		return text
	}

	hook := 1
	if len(sentences) >= 5 {
		hook = 2
	}
	last := len(sentences) - 1

	paragraphs := []string{strings.Join(sentences[:hook], " ")}
	paragraphs = append(paragraphs, groupPairs(sentences[hook:last])...)
	paragraphs = append(paragraphs, sentences[last])
	return strings.Join(paragraphs, paragraphBreak)
}

// groupPairs 把句子按每组最多两句合并成段落。
func groupPairs(sentences []string) []string {
	var out []string
	for i := 0; i < len(sentences); i += 2 {
		end := i + 2
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, strings.Join(sentences[i:end], " "))
	}
	return out
}
