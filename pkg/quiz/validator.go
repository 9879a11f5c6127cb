// Package quiz decides whether a learner's answers match a flashcard.
//
// A Validator compares the answer typed into each enabled input mode with the
// item's canonical field for that mode, converting romaji typed into kana
// fields on the way, and rolls the per-mode results up into one
// ValidationResult. Conjugation drills reuse the same matching per
// (form, mode) cell.
//
// Everything here is pure: no I/O, no timers, no state shared between calls.
package quiz

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Logger receives debug output from validation. It is silent by default.
var Logger = zerolog.Nop()

var (
	// ErrNoModes is returned when validating with no enabled input mode.
	ErrNoModes = errors.New("quiz: no enabled input modes")
	// ErrEmptyItem is returned for an item without any canonical field.
	ErrEmptyItem = errors.New("quiz: item has no kanji, kana or english field")
)

// ValidationResult is the aggregate outcome of one submission.
type ValidationResult struct {
	IsCorrect bool `json:"isCorrect"`
	// Results holds one entry per enabled mode, in the order the modes were given.
	Results []bool `json:"results"`
	// Converted holds the answer per mode as it was compared.
	Converted []string `json:"converted"`
	// MatchedType is the field that matched in single-mode validation, "" otherwise.
	MatchedType InputMode `json:"matchedType,omitempty"`
	// ConvertedAnswer is the converted single-mode answer when conversion changed it.
	ConvertedAnswer string        `json:"convertedAnswer,omitempty"`
	Feedback        FeedbackColor `json:"feedbackColor"`
	// Similarity is the best similarity per mode, for "almost" hints.
	Similarity []float64 `json:"similarity,omitempty"`
}

// Validator orchestrates a Matcher across enabled input modes.
type Validator struct {
	matcher    *Matcher
	pref       OutputPreference
	alternates bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithOutputPreference sets the script romaji answers are displayed in.
func WithOutputPreference(p OutputPreference) ValidatorOption {
	return func(v *Validator) { v.pref = p }
}

// WithAlternateScripts lets a single Japanese answer field match any of the
// item's Japanese fields; MatchedType then reports which one matched.
func WithAlternateScripts() ValidatorOption {
	return func(v *Validator) { v.alternates = true }
}

// NewValidator returns a Validator using m.
func NewValidator(m *Matcher, opts ...ValidatorOption) *Validator {
	v := &Validator{matcher: m, pref: OutputHiragana}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var alternateModes = []InputMode{ModeHiragana, ModeKatakana, ModeKanji}

// Validate checks answers for item in every mode of modes, in order.
func (v *Validator) Validate(answers map[InputMode]string, item FlashcardItem, modes []InputMode) (ValidationResult, error) {
	if len(modes) == 0 {
		return ValidationResult{}, ErrNoModes
	}
	if err := item.Validate(); err != nil {
		return ValidationResult{}, err
	}

	single := len(modes) == 1
	res := ValidationResult{
		Results:    make([]bool, len(modes)),
		Converted:  make([]string, len(modes)),
		Similarity: make([]float64, len(modes)),
	}

	for i, mode := range modes {
		answer := answers[mode]
		mr := v.matcher.Match(answer, item.Expected(mode), mode, v.pref)
		matchedType := mode

		if !mr.IsMatch && single && v.alternates && mode.IsJapanese() {
			for _, alt := range alternateModes {
				if alt == mode {
					continue
				}
				if amr := v.matcher.Match(answer, item.Expected(alt), alt, v.pref); amr.IsMatch {
					mr, matchedType = amr, alt
					break
				}
			}
		}

		res.Results[i] = mr.IsMatch
		res.Converted[i] = mr.Converted
		res.Similarity[i] = mr.Similarity

		if single {
			if mr.IsMatch {
				res.MatchedType = matchedType
			}
			if mr.Converted != strings.TrimSpace(answer) {
				res.ConvertedAnswer = mr.Converted
			}
		}
	}

	correct, total := Score(res.Results)
	if single {
		res.IsCorrect = res.Results[0]
	} else {
		res.IsCorrect = correct == total
	}
	switch {
	case correct == total:
		res.Feedback = FeedbackCorrect
	case correct > 0:
		res.Feedback = FeedbackPartial
	default:
		res.Feedback = FeedbackIncorrect
	}

	Logger.Debug().
		Str("item", item.ID).
		Bools("results", res.Results).
		Str("feedback", res.Feedback.String()).
		Msg("validated answer")
	return res, nil
}

// Score counts the true entries of results.
func Score(results []bool) (correct, total int) {
	for _, ok := range results {
		if ok {
			correct++
		}
	}
	return correct, len(results)
}
