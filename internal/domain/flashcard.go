package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Flashcard-specific validation errors
var (
	// ErrFlashcardIDEmpty is returned when a flashcard ID is empty or nil.
	ErrFlashcardIDEmpty = errors.New("flashcard ID cannot be empty")

	// ErrFlashcardVocabularyIDEmpty is returned when a flashcard's vocabulary
	// item ID is empty or nil.
	ErrFlashcardVocabularyIDEmpty = errors.New("flashcard vocabulary ID cannot be empty")

	// ErrFlashcardNoRows is returned when a flashcard has no card rows.
	ErrFlashcardNoRows = errors.New("flashcard must contain at least one row")
)

// FlashcardRow is a single card face produced by the second generation stage.
// The provider emits these as TSV lines; one vocabulary term typically yields
// several rows (scene card, usage card, comparison card).
type FlashcardRow struct {
	Position       int    `json:"position"`
	Term           string `json:"term"`
	TermNumber     int    `json:"term_number"`
	TabName        string `json:"tab_name"`
	Primer         string `json:"primer"`
	Front          string `json:"front"`
	Back           string `json:"back"`
	Tags           string `json:"tags"`
	HonorificLevel string `json:"honorific_level,omitempty"`
}

// Flashcard is the persisted end product for one vocabulary item: the
// stage-1 nuance payload plus the stage-2 card rows. Export encoders consume
// these records through a read-only query interface.
type Flashcard struct {
	ID           uuid.UUID       `json:"id"`
	VocabularyID uuid.UUID       `json:"vocabulary_id"`
	BatchID      uuid.UUID       `json:"batch_id"`
	Nuance       json.RawMessage `json:"nuance"`
	Rows         []FlashcardRow  `json:"rows"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewFlashcard creates a Flashcard from the two stage payloads.
// Returns an error if validation fails.
func NewFlashcard(vocabularyID, batchID uuid.UUID, nuance json.RawMessage, rows []FlashcardRow) (*Flashcard, error) {
	card := &Flashcard{
		ID:           uuid.New(),
		VocabularyID: vocabularyID,
		BatchID:      batchID,
		Nuance:       nuance,
		Rows:         rows,
		CreatedAt:    time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Flashcard has valid data.
func (f *Flashcard) Validate() error {
	if f.ID == uuid.Nil {
		return ErrFlashcardIDEmpty
	}

	if f.VocabularyID == uuid.Nil {
		return ErrFlashcardVocabularyIDEmpty
	}

	if len(f.Rows) == 0 {
		return ErrFlashcardNoRows
	}

	return nil
}

// tsvHeader is the column header the stage-2 provider emits before the card
// rows. A leading header line is skipped during parsing.
const tsvHeader = "position\tterm"

// minTSVFields is the number of tab-separated fields a line must have to be
// a card row. The trailing honorific level column is optional.
const minTSVFields = 8

// ParseFlashcardTSV decodes the stage-2 provider response, a TSV document
// with one card row per line, into FlashcardRow values. Blank lines are
// skipped; a line with fewer than the required columns makes the whole
// payload invalid. Returns ErrInvalidFormat (wrapped) for malformed content.
func ParseFlashcardTSV(content string) ([]FlashcardRow, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```tsv")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty flashcard payload", ErrInvalidFormat)
	}

	lines := strings.Split(trimmed, "\n")
	if strings.HasPrefix(lines[0], tsvHeader) {
		lines = lines[1:]
	}

	rows := make([]FlashcardRow, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < minTSVFields {
			return nil, fmt.Errorf("%w: flashcard row %d has %d fields, want at least %d",
				ErrInvalidFormat, i+1, len(fields), minTSVFields)
		}

		position, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: flashcard row %d has non-numeric position %q",
				ErrInvalidFormat, i+1, fields[0])
		}

		termNumber, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: flashcard row %d has non-numeric term number %q",
				ErrInvalidFormat, i+1, fields[2])
		}

		row := FlashcardRow{
			Position:   position,
			Term:       fields[1],
			TermNumber: termNumber,
			TabName:    fields[3],
			Primer:     fields[4],
			Front:      fields[5],
			Back:       fields[6],
			Tags:       fields[7],
		}
		if len(fields) > minTSVFields {
			row.HonorificLevel = fields[8]
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: flashcard payload contains no rows", ErrInvalidFormat)
	}

	return rows, nil
}
