package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vocabulary-specific validation errors
var (
	// ErrVocabularyIDEmpty is returned when a vocabulary item ID is empty or nil.
	ErrVocabularyIDEmpty = errors.New("vocabulary item ID cannot be empty")

	// ErrVocabularyTermEmpty is returned when a vocabulary item has no term.
	ErrVocabularyTermEmpty = errors.New("vocabulary term cannot be empty")

	// ErrVocabularyPositionInvalid is returned when a vocabulary item's
	// position is not positive.
	ErrVocabularyPositionInvalid = errors.New("vocabulary position must be positive")
)

// PartOfSpeech categorizes a vocabulary term.
type PartOfSpeech string

// Recognized part-of-speech values.
const (
	POSNoun         PartOfSpeech = "noun"
	POSVerb         PartOfSpeech = "verb"
	POSAdjective    PartOfSpeech = "adjective"
	POSAdverb       PartOfSpeech = "adverb"
	POSInterjection PartOfSpeech = "interjection"
	POSPhrase       PartOfSpeech = "phrase"
	POSParticle     PartOfSpeech = "particle"
	POSUnknown      PartOfSpeech = "unknown"
)

// posAbbreviations maps the short forms that appear in vocabulary CSV exports
// to their canonical values.
var posAbbreviations = map[string]PartOfSpeech{
	"n":    POSNoun,
	"v":    POSVerb,
	"adj":  POSAdjective,
	"adv":  POSAdverb,
	"int":  POSInterjection,
	"phr":  POSPhrase,
	"part": POSParticle,
}

// NormalizePartOfSpeech maps a raw part-of-speech tag to a canonical
// PartOfSpeech value. Empty and unrecognized tags normalize to POSUnknown.
func NormalizePartOfSpeech(raw string) PartOfSpeech {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return POSUnknown
	}
	if pos, ok := posAbbreviations[s]; ok {
		return pos
	}
	switch PartOfSpeech(s) {
	case POSNoun, POSVerb, POSAdjective, POSAdverb, POSInterjection, POSPhrase, POSParticle:
		return PartOfSpeech(s)
	}
	return POSUnknown
}

// VocabularyItem is a single vocabulary entry submitted for flashcard
// generation. Items are immutable once submitted to the pipeline; everything
// downstream treats them as read-only.
type VocabularyItem struct {
	ID           uuid.UUID    `json:"id"`
	Position     int          `json:"position"`
	Term         string       `json:"term"`
	Gloss        string       `json:"gloss,omitempty"`
	PartOfSpeech PartOfSpeech `json:"part_of_speech"`
	Difficulty   string       `json:"difficulty,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewVocabularyItem creates a VocabularyItem with a fresh ID and a normalized
// part-of-speech tag. Returns an error if validation fails.
func NewVocabularyItem(position int, term, pos string) (*VocabularyItem, error) {
	item := &VocabularyItem{
		ID:           uuid.New(),
		Position:     position,
		Term:         strings.TrimSpace(term),
		PartOfSpeech: NormalizePartOfSpeech(pos),
		CreatedAt:    time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the VocabularyItem has valid data.
func (v *VocabularyItem) Validate() error {
	if v.ID == uuid.Nil {
		return ErrVocabularyIDEmpty
	}

	if strings.TrimSpace(v.Term) == "" {
		return ErrVocabularyTermEmpty
	}

	if v.Position <= 0 {
		return ErrVocabularyPositionInvalid
	}

	return nil
}
