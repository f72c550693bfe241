package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPromptPerStyle(t *testing.T) {
	assert.Contains(t, SystemPrompt(StyleProfessional, ""), "professional")
	assert.Contains(t, SystemPrompt(StyleCasual, ""), "casual")
	assert.Contains(t, SystemPrompt(StyleCreative, ""), "creative")
	assert.Contains(t, SystemPrompt(StyleTechnical, ""), "technical")
}

func TestSystemPromptBalancedUsesCustom(t *testing.T) {
	custom := "You are a pirate."
	assert.Equal(t, custom, SystemPrompt(StyleBalanced, custom))
	assert.Equal(t, stylePrompts[StyleBalanced], SystemPrompt(StyleBalanced, ""))
}

func TestSystemPromptUnknownStyleFallsBack(t *testing.T) {
	assert.Equal(t, stylePrompts[StyleBalanced], SystemPrompt(Style("mystery"), ""))
	assert.Equal(t, "custom", SystemPrompt(Style("mystery"), "custom"))
}

func TestSystemPromptNamedStyleIgnoresCustom(t *testing.T) {
	got := SystemPrompt(StyleTechnical, "custom override")
	assert.Equal(t, stylePrompts[StyleTechnical], got)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "gpt-4o-mini", s.Model)
	assert.InDelta(t, 0.7, s.Temperature, 0.001)
	assert.Equal(t, 2000, s.MaxTokens)
}

func TestCallOptionsIncludesPenaltiesWhenSet(t *testing.T) {
	s := DefaultSettings()
	base := len(s.CallOptions())

	s.FrequencyPenalty = 0.5
	s.PresencePenalty = 0.3
	assert.Equal(t, base+2, len(s.CallOptions()))
}

func TestContentOfEmpty(t *testing.T) {
	assert.Equal(t, "", ContentOf(nil))
}
