package quiz

import "github.com/japaniel/kotoba/pkg/selector"

// ModuleID identifies a study module (a deck family).
type ModuleID string

const (
	ModuleHiragana   ModuleID = "hiragana"
	ModuleKatakana   ModuleID = "katakana"
	ModuleVocabulary ModuleID = "vocabulary"
	ModuleKanji      ModuleID = "kanji"
	ModuleVerbs      ModuleID = "verbs"
	ModuleAdjectives ModuleID = "adjectives"
)

// ModuleCapability describes which scripts a module's items carry.
type ModuleCapability struct {
	HasKatakana         bool
	HasKanji            bool
	HasFurigana         bool
	IsConjugationModule bool
}

var capabilities = map[ModuleID]ModuleCapability{
	ModuleHiragana:   {},
	ModuleKatakana:   {HasKatakana: true},
	ModuleVocabulary: {HasKatakana: true, HasKanji: true, HasFurigana: true},
	ModuleKanji:      {HasKanji: true, HasFurigana: true},
	ModuleVerbs:      {HasKanji: true, HasFurigana: true, IsConjugationModule: true},
	ModuleAdjectives: {HasKanji: true, HasFurigana: true, IsConjugationModule: true},
}

// CapabilityOf returns the capability of a known module.
func CapabilityOf(id ModuleID) (ModuleCapability, bool) {
	c, ok := capabilities[id]
	return c, ok
}

// Supports reports whether items of the module can be answered in mode.
func (c ModuleCapability) Supports(mode InputMode) bool {
	switch mode {
	case ModeKatakana:
		return c.HasKatakana
	case ModeKanji:
		return c.HasKanji
	}
	return true
}

// Settings is the learner's configuration as consumed by the engine.
type Settings struct {
	Modes        map[InputMode]bool   `yaml:"modes" json:"modes"`
	RomajiOutput OutputPreference     `yaml:"romaji_output" json:"romaji_output"`
	Proportions  selector.Proportions `yaml:"proportions" json:"proportions"`
	Module       ModuleID             `yaml:"module" json:"module"`
}

// DefaultSettings enables hiragana and English answers on the vocabulary module
// and shows prompts in kanji twice as often as in kana.
func DefaultSettings() Settings {
	return Settings{
		Modes:        map[InputMode]bool{ModeHiragana: true, ModeEnglish: true},
		RomajiOutput: OutputHiragana,
		Proportions: selector.Proportions{
			{Mode: string(ModeKanji), Weight: 2},
			{Mode: string(ModeHiragana), Weight: 1},
			{Mode: string(ModeEnglish), Weight: 1},
		},
		Module: ModuleVocabulary,
	}
}

// EnabledModes returns the modes switched on in the settings that the
// module supports, in canonical order. Unknown modules support every mode.
func (s Settings) EnabledModes() []InputMode {
	capability, ok := CapabilityOf(s.Module)
	var out []InputMode
	for _, m := range AllModes {
		if !s.Modes[m] {
			continue
		}
		if ok && !capability.Supports(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Preference returns the romaji output preference, defaulting to hiragana.
func (s Settings) Preference() OutputPreference {
	if s.RomajiOutput == OutputKatakana {
		return OutputKatakana
	}
	return OutputHiragana
}
