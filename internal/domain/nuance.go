package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Comparison contrasts the analyzed term with a near-synonym.
type Comparison struct {
	Vs     string `json:"vs"`
	Nuance string `json:"nuance"`
}

// Homonym describes a same-sounding Korean word that learners confuse with
// the analyzed term.
type Homonym struct {
	Hanja          string `json:"hanja"`
	Reading        string `json:"reading"`
	Meaning        string `json:"meaning"`
	Differentiator string `json:"differentiator"`
}

// NuanceResult is the structured output of the first generation stage: a
// semantic analysis of a vocabulary term used both for review and as the
// input to flashcard formatting.
type NuanceResult struct {
	TermNumber        int          `json:"term_number"`
	Term              string       `json:"term"`
	IPA               string       `json:"ipa"`
	POS               PartOfSpeech `json:"pos"`
	PrimaryMeaning    string       `json:"primary_meaning"`
	OtherMeanings     string       `json:"other_meanings,omitempty"`
	Metaphor          string       `json:"metaphor"`
	MetaphorNoun      string       `json:"metaphor_noun"`
	MetaphorAction    string       `json:"metaphor_action"`
	SuggestedLocation string       `json:"suggested_location"`
	AnchorObject      string       `json:"anchor_object"`
	AnchorSensory     string       `json:"anchor_sensory"`
	Explanation       string       `json:"explanation"`
	UsageContext      string       `json:"usage_context,omitempty"`
	Comparison        Comparison   `json:"comparison"`
	Homonyms          []Homonym    `json:"homonyms,omitempty"`
	KoreanKeywords    []string     `json:"korean_keywords"`
}

// ParseNuance decodes a stage-1 provider response into a NuanceResult.
// Providers occasionally wrap the JSON object in a markdown code fence, so
// the content is trimmed before decoding. Returns ErrInvalidFormat (wrapped)
// when the content is not a valid nuance payload.
func ParseNuance(content string) (*NuanceResult, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result NuanceResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("%w: nuance payload is not valid JSON: %v", ErrInvalidFormat, err)
	}

	if result.Term == "" {
		return nil, fmt.Errorf("%w: nuance payload missing term", ErrInvalidFormat)
	}

	result.POS = NormalizePartOfSpeech(string(result.POS))
	if result.Homonyms == nil {
		result.Homonyms = []Homonym{}
	}

	return &result, nil
}
