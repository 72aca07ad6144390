package adapter

import (
	"hash/fnv"
	"postcraft-go/internal/formatter"
	"postcraft-go/internal/hashtag"
	"postcraft-go/internal/model"
	"strings"
)

var linkedInCallsToAction = []string{
	"What's your take on this?",
	"How is your team approaching this?",
	"Have you seen this in your own work?",
	"What would you add?",
}

const instagramClosingLine = "💬 Share your thoughts in the comments!"

// Fallback 在不调用模型的情况下生成确定性的平台版本，Optimized=false。
func Fallback(text string, p model.Platform) model.PlatformContent {
	spec := model.SpecFor(p)
	body := formatter.Format(text, p, spec.MaxChars)

	switch p {
	case model.PlatformInstagram:
		if body != "" {
			candidate := body + "\n\n" + instagramClosingLine
			if formatter.RuneLen(candidate) <= spec.MaxChars {
				body = candidate
			}
		}
	case model.PlatformLinkedIn:
		body = appendCallToAction(body, spec.MaxChars)
	}

	tags := hashtag.Tags(hashtag.CuratedMatches(text, ""))
	return model.NewPlatformContent(p, body, hashtag.NormalizeHashtags(tags, spec.MaxHashtags), false)
}

// appendCallToAction 在没有问句的 LinkedIn 文本末尾追加一句行动号召，超出上限时不追加。
func appendCallToAction(text string, maxChars int) string {
	if strings.Contains(text, "?") || strings.TrimSpace(text) == "" {
		return text
	}
	candidate := text + " " + pickCallToAction(text)
	if formatter.RuneLen(candidate) > maxChars {
		return text
	}
	return candidate
}

// pickCallToAction 按文本哈希在固定轮换中选择，同一文本总是得到同一句。
func pickCallToAction(text string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return linkedInCallsToAction[h.Sum32()%uint32(len(linkedInCallsToAction))]
}
