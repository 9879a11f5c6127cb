package quiz

import "strings"

// FlashcardItem is one vocabulary item with its canonical form per script.
// English may hold several acceptable translations.
type FlashcardItem struct {
	ID       string   `json:"id"`
	Module   ModuleID `json:"module,omitempty"`
	Kanji    string   `json:"kanji,omitempty"`
	Hiragana string   `json:"hiragana,omitempty"`
	Katakana string   `json:"katakana,omitempty"`
	Romaji   string   `json:"romaji,omitempty"`
	English  []string `json:"english,omitempty"`
}

// Validate checks that the item has at least one canonical field.
func (it FlashcardItem) Validate() error {
	if blank(it.Kanji) && blank(it.Hiragana) && blank(it.Katakana) && len(nonBlank(it.English)) == 0 {
		return ErrEmptyItem
	}
	return nil
}

// Expected returns the canonical values an answer in mode is judged against.
// Romaji answers are judged against the hiragana reading, or the katakana one
// for items written only in katakana.
func (it FlashcardItem) Expected(mode InputMode) []string {
	switch mode {
	case ModeHiragana:
		return nonBlank([]string{it.Hiragana})
	case ModeKatakana:
		return nonBlank([]string{it.Katakana})
	case ModeKanji:
		return nonBlank([]string{it.Kanji})
	case ModeEnglish:
		return nonBlank(it.English)
	case ModeRomaji:
		if !blank(it.Hiragana) {
			return []string{it.Hiragana}
		}
		return nonBlank([]string{it.Katakana})
	}
	return nil
}

// Field returns the item's text for a display mode, or "" when it has none.
func (it FlashcardItem) Field(mode InputMode) string {
	switch mode {
	case ModeHiragana:
		return it.Hiragana
	case ModeKatakana:
		return it.Katakana
	case ModeKanji:
		return it.Kanji
	case ModeRomaji:
		return it.Romaji
	case ModeEnglish:
		return strings.Join(it.English, ", ")
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func nonBlank(ss []string) []string {
	var out []string
	for _, s := range ss {
		if !blank(s) {
			out = append(out, s)
		}
	}
	return out
}
