package orchestrator

import (
	"strings"
	"testing"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	job := &domain.Job{
		Prompt:      "Autumn drink special",
		Style:       "warm minimalist",
		AspectRatio: "4:5",
	}
	biz := &domain.Business{
		Name:        "Harbor Coffee",
		Industry:    "Food & Beverage",
		Description: "Independent roastery on the waterfront",
		BrandVoice:  "friendly, unpretentious",
	}

	got := BuildPrompt(job, biz)

	checks := []string{
		"Autumn drink special",
		`"Harbor Coffee"`,
		"food & beverage business",
		"Independent roastery on the waterfront",
		"Brand voice: friendly, unpretentious",
		"Visual style: Warm Minimalist",
		"4:5 aspect ratio",
	}
	for _, expect := range checks {
		if !strings.Contains(got, expect) {
			t.Fatalf("prompt missing %q: %s", expect, got)
		}
	}
}

func TestBuildPromptMinimal(t *testing.T) {
	got := BuildPrompt(&domain.Job{Prompt: "a mug"}, &domain.Business{})
	if !strings.Contains(got, "a mug") {
		t.Fatalf("prompt missing user text: %s", got)
	}
	if strings.Contains(got, "Visual style") || strings.Contains(got, "Brand voice") {
		t.Fatalf("prompt includes empty context sections: %s", got)
	}
}
