package content

import (
	"context"
	"errors"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/llm"
	"strings"
	"testing"
	"time"
)

type fakeCompleter struct {
	reply string
	err   error
	delay time.Duration
	last  llm.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

var testModels = ModelSet{Basic: "basic-m", Standard: "standard-m", Advanced: "advanced-m"}

func TestSelectModelIsMonotonic(t *testing.T) {
	tiers := []model.Tier{model.TierFree, model.TierPro, model.TierAgency}
	prevLevel, prevTemp := ModelLevel(-1), 0.0
	for _, tier := range tiers {
		level, temp := SelectModel(tier, false)
		if level <= prevLevel || temp <= prevTemp {
			t.Errorf("tier %s did not increase model/temperature", tier)
		}
		prevLevel, prevTemp = level, temp
	}
	if level, _ := SelectModel(model.TierAgency, true); level != LevelAdvanced {
		t.Errorf("priority should cap at advanced")
	}
	if level, _ := SelectModel(model.TierFree, true); level != LevelStandard {
		t.Errorf("priority should raise free to standard")
	}
}

func TestMaxTokensOrdering(t *testing.T) {
	tw, ig, li := MaxTokensFor(model.PlatformTwitter), MaxTokensFor(model.PlatformInstagram), MaxTokensFor(model.PlatformLinkedIn)
	if !(tw < ig && ig < li) {
		t.Errorf("expected twitter < instagram < linkedin, got %d %d %d", tw, ig, li)
	}
}

func TestBuildSystemPromptIncludesRules(t *testing.T) {
	p := BuildSystemPrompt(model.PlatformLinkedIn, "", "short and witty")
	for _, want := range []string{"LinkedIn", "3000", "professional", "short and witty", "CONTENT:", "HASHTAGS:", "SCORE:"} {
		if !strings.Contains(p, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestEngineGenerate(t *testing.T) {
	fc := &fakeCompleter{reply: "CONTENT: Ship it.\nHASHTAGS: devops\nSCORE: 80"}
	e := NewEngine(fc, testModels, time.Second)
	got, err := e.Generate(context.Background(), GenerateRequest{
		Prompt:   "release day",
		Platform: model.PlatformTwitter,
		Tier:     model.TierPro,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Ship it." || got.EngagementScore != 80 || !got.PlatformOptimized {
		t.Errorf("unexpected content %+v", got)
	}
	if fc.last.Model != "standard-m" || fc.last.MaxTokens != 150 {
		t.Errorf("unexpected request %+v", fc.last)
	}
	if !strings.Contains(fc.last.UserPrompt, "release day") {
		t.Errorf("user prompt not wrapped: %q", fc.last.UserPrompt)
	}
}

func TestEngineGenerateFailure(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("connection refused")}
	e := NewEngine(fc, testModels, time.Second)
	_, err := e.Generate(context.Background(), GenerateRequest{Prompt: "x", Platform: model.PlatformInstagram})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Platform != model.PlatformInstagram {
		t.Errorf("expected *GenerationError with platform, got %v", err)
	}
}

func TestEngineGenerateTimeout(t *testing.T) {
	fc := &fakeCompleter{reply: "late", delay: time.Second}
	e := NewEngine(fc, testModels, 20*time.Millisecond)
	_, err := e.Generate(context.Background(), GenerateRequest{Prompt: "x", Platform: model.PlatformTwitter})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected timeout to surface as generation failure, got %v", err)
	}
}

func TestEngineGenerateEmptyReply(t *testing.T) {
	e := NewEngine(&fakeCompleter{reply: "   "}, testModels, time.Second)
	if _, err := e.Generate(context.Background(), GenerateRequest{Prompt: "x"}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected failure on empty reply, got %v", err)
	}
}
