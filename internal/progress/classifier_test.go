package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		metric float64
		want   Tier
	}{
		{"well ahead", 5.0, Superior},
		{"just above upper bound", 3.0001, Superior},
		{"upper bound is on track", 3, OnTrack},
		{"zero is on track", 0, OnTrack},
		{"just below zero", -0.0001, SmallProblems},
		{"small lag", -2.5, SmallProblems},
		{"minus four is small problems", -4, SmallProblems},
		{"below minus four", -4.0001, Problems},
		{"minus ten is problems", -10, Problems},
		{"below minus ten", -10.0001, CriticalGap},
		{"deep gap", -25, CriticalGap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.metric))
		})
	}
}

func TestTierLabels(t *testing.T) {
	labels := map[Tier]string{
		Superior:      "Superior",
		OnTrack:       "On track",
		SmallProblems: "Small problems",
		Problems:      "Problems",
		CriticalGap:   "Critical gap",
	}
	for tier, want := range labels {
		assert.Equal(t, want, tier.String())
	}
}

func TestPersonaPromptPerTier(t *testing.T) {
	seen := make(map[string]bool)
	for _, tier := range []Tier{Superior, OnTrack, SmallProblems, Problems, CriticalGap} {
		prompt := tier.PersonaPrompt()
		assert.NotEmpty(t, prompt, "tier %s has no persona prompt", tier)
		assert.False(t, seen[prompt], "tier %s shares a prompt with another tier", tier)
		seen[prompt] = true
	}
}

func TestPromptEmbedsMetric(t *testing.T) {
	prompt := Prompt(-5)
	assert.Contains(t, prompt, "Expected Result = -5")
	assert.Contains(t, prompt, Problems.PersonaPrompt())

	assert.True(t, strings.Contains(Prompt(4.2), Superior.PersonaPrompt()))
}
