package formatter

import (
	"math/rand"
	"postcraft-go/internal/model"
	"strings"
	"testing"
	"unicode"
)

func TestNormalize(t *testing.T) {
	in := "  Hello   world.\r\n\r\n\r\n\r\nNext \t line.  \n  Third.  "
	want := "Hello world.\n\nNext line.\nThird."
	if got := Normalize(in); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
	if got := Normalize(want); got != want {
		t.Errorf("Normalize is not idempotent: %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Wait... really?! Yes. Version 1.5 ships today\nNew line here")
	want := []string{"Wait...", "really?!", "Yes.", "Version 1.5 ships today", "New line here"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTruncatePrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 85) + ". " + strings.Repeat("b", 30) + "."
	got := Truncate(text, 100)
	if got != strings.Repeat("a", 85)+"." {
		t.Errorf("expected cut at sentence end, got %q", got)
	}
}

func TestTruncateFallsBackToWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 40)
	got := Truncate(strings.TrimSpace(text), 50)
	if RuneLen(got) > 50 {
		t.Fatalf("length %d exceeds limit", RuneLen(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if !strings.HasSuffix(strings.TrimSuffix(got, "..."), "word") {
		t.Errorf("expected cut after a complete word, got %q", got)
	}
}

func TestTruncateHardCut(t *testing.T) {
	text := strings.Repeat("x", 200)
	got := Truncate(text, 50)
	if got != strings.Repeat("x", 47)+"..." {
		t.Errorf("unexpected hard cut %q", got)
	}
}

func TestTruncateTinyLimit(t *testing.T) {
	if got := Truncate("abcdef", 2); got != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestTwitterShortTextUnchanged(t *testing.T) {
	in := "Short post. Still short."
	if got := Format(in, model.PlatformTwitter, 280); got != in {
		t.Errorf("got %q", got)
	}
}

func TestTwitterGroupsLines(t *testing.T) {
	s1 := strings.Repeat("a", 70) + "."
	s2 := strings.Repeat("b", 60) + "."
	s3 := strings.Repeat("c", 50) + "."
	got := Format(s1+" "+s2+" "+s3, model.PlatformTwitter, 0)
	lines := strings.Split(got, "\n\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	for _, l := range lines {
		if RuneLen(l) > 140 {
			t.Errorf("line longer than 140: %q", l)
		}
	}
}

func TestTwitter300CharsWithLimit(t *testing.T) {
	var b strings.Builder
	for b.Len() < 300 {
		b.WriteString("Marketing teams ship faster with automation ")
	}
	in := strings.TrimSpace(b.String())[:300]
	got := Format(in, model.PlatformTwitter, 280)
	if RuneLen(got) > 280 {
		t.Fatalf("length %d exceeds 280", RuneLen(got))
	}
	body := strings.TrimSuffix(got, "...")
	lastWord := body[strings.LastIndexAny(body, " \n")+1:]
	if !strings.Contains(in, lastWord+" ") && !strings.HasSuffix(got, ".") {
		t.Errorf("result ends mid-word: %q", got)
	}
}

func TestInstagramStructure(t *testing.T) {
	in := "Opening line. Two. Three. Four. Five. Closing line."
	got := Format(in, model.PlatformInstagram, 0)
	want := "Opening line.\n\nTwo. Three.\n\nFour. Five.\n\nClosing line."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	short := "One. Two."
	if got := Format(short, model.PlatformInstagram, 0); got != short {
		t.Errorf("two sentences should be unchanged, got %q", got)
	}
}

func TestLinkedInScenario(t *testing.T) {
	in := "AI is changing marketing. It helps personalize content. It also saves time. Businesses should adapt now."
	got := Format(in, model.PlatformLinkedIn, 3000)
	if n := strings.Count(got, "\n\n"); n != 2 {
		t.Fatalf("expected 2 paragraph boundaries, got %d in %q", n, got)
	}
	if !strings.HasPrefix(got, "AI is changing marketing.\n\n") {
		t.Errorf("hook missing: %q", got)
	}
	if !strings.HasSuffix(got, "\n\nBusinesses should adapt now.") {
		t.Errorf("closing sentence missing: %q", got)
	}
}

func TestLinkedInLongerHook(t *testing.T) {
	in := "One. Two. Three. Four. Five. Six."
	got := Format(in, model.PlatformLinkedIn, 0)
	want := "One. Two.\n\nThree. Four.\n\nFive.\n\nSix."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLinkedInIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Single sentence",
		"One. Two.",
		"AI is changing marketing. It helps personalize content. It also saves time. Businesses should adapt now.",
		"Already\n\nformatted. Content here. And more.",
		"Line one\nline two\nline three. End!",
		"  spaces   everywhere.   and   more. and even more.  ",
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		inputs = append(inputs, randomText(r, 5+r.Intn(400)))
	}
	for _, in := range inputs {
		once := Format(in, model.PlatformLinkedIn, 0)
		twice := Format(once, model.PlatformLinkedIn, 0)
		if once != twice {
			t.Errorf("not idempotent for %q:\nonce  %q\ntwice %q", in, once, twice)
		}
	}
}

func TestFormatNeverExceedsLimit(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	limits := []int{1, 3, 4, 10, 50, 100, 140, 280, 500}
	for i := 0; i < 200; i++ {
		text := randomText(r, r.Intn(900))
		for _, p := range model.AllPlatforms {
			for _, limit := range limits {
				got := Format(text, p, limit)
				if RuneLen(got) > limit {
					t.Fatalf("platform %s limit %d produced %d runes", p, limit, RuneLen(got))
				}
			}
		}
	}
}

func TestFormatPreservesWords(t *testing.T) {
	in := "First idea here. Second idea follows. Third idea wraps up. Fourth one closes."
	got := Format(in, model.PlatformInstagram, 0)
	if strings.Join(strings.Fields(got), " ") != in {
		t.Errorf("words changed: %q", got)
	}
	if !unicode.IsUpper(rune(got[0])) {
		t.Errorf("unexpected start %q", got)
	}
}

func randomText(r *rand.Rand, n int) string {
	const alphabet = "abcdefghij     ..!?\n"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}
