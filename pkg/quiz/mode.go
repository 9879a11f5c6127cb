package quiz

import (
	"encoding/json"
	"fmt"
)

// InputMode is a script a learner can answer in.
type InputMode string

const (
	ModeHiragana InputMode = "hiragana"
	ModeKatakana InputMode = "katakana"
	ModeKanji    InputMode = "kanji"
	ModeRomaji   InputMode = "romaji"
	ModeEnglish  InputMode = "english"
)

// AllModes lists every input mode in the order feedback tables render them.
var AllModes = []InputMode{ModeHiragana, ModeKatakana, ModeKanji, ModeRomaji, ModeEnglish}

// ParseMode returns the InputMode named s.
func ParseMode(s string) (InputMode, error) {
	for _, m := range AllModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown input mode %q", s)
}

// IsJapanese reports whether answers in m are written in a Japanese script.
func (m InputMode) IsJapanese() bool {
	return m == ModeHiragana || m == ModeKatakana || m == ModeKanji
}

func modeRank(m InputMode) int {
	for i, x := range AllModes {
		if x == m {
			return i
		}
	}
	return len(AllModes)
}

// OutputPreference is the kana script romaji converts to for display.
type OutputPreference string

const (
	OutputHiragana OutputPreference = "hiragana"
	OutputKatakana OutputPreference = "katakana"
)

// ConjugationForm is a grammatical inflection of a verb or adjective.
type ConjugationForm string

const (
	FormPlain          ConjugationForm = "plain"
	FormPolite         ConjugationForm = "polite"
	FormNegative       ConjugationForm = "negative"
	FormPast           ConjugationForm = "past"
	FormPastNegative   ConjugationForm = "past_negative"
	FormTe             ConjugationForm = "te"
	FormPoliteNegative ConjugationForm = "polite_negative"
	FormPolitePast     ConjugationForm = "polite_past"
	FormVolitional     ConjugationForm = "volitional"
	FormPotential      ConjugationForm = "potential"
)

// AllForms lists the conjugation forms in drill order.
var AllForms = []ConjugationForm{
	FormPlain, FormPolite, FormNegative, FormPast, FormPastNegative,
	FormTe, FormPoliteNegative, FormPolitePast, FormVolitional, FormPotential,
}

func formRank(f ConjugationForm) int {
	for i, x := range AllForms {
		if x == f {
			return i
		}
	}
	return len(AllForms)
}

// FeedbackColor is how a validation result is shown to the learner.
type FeedbackColor int

const (
	FeedbackIncorrect FeedbackColor = iota
	FeedbackPartial
	FeedbackCorrect
)

var feedbackNames = [...]string{
	FeedbackIncorrect: "incorrect",
	FeedbackPartial:   "partial",
	FeedbackCorrect:   "correct",
}

func (c FeedbackColor) String() string {
	if int(c) >= 0 && int(c) < len(feedbackNames) {
		return feedbackNames[c]
	}
	return fmt.Sprintf("FeedbackColor(%d)", int(c))
}

// MarshalJSON encodes the color as its name.
func (c FeedbackColor) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
