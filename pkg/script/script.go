// Package script classifies which Japanese writing system a string is written in
// and shifts kana between the hiragana and katakana blocks.
//
// All functions are total and safe for concurrent use.
package script

import (
	"unicode"
)

// Kind is the writing system a string is written in.
type Kind int

const (
	Empty    Kind = iota // empty or whitespace only
	Hiragana             // hiragana block only
	Katakana             // katakana block only (full or half width)
	Kanji                // at least one Han ideograph
	Romaji               // ASCII letters and common punctuation
	Mixed                // anything else
)

var kindNames = [...]string{
	Empty:    "empty",
	Hiragana: "hiragana",
	Katakana: "katakana",
	Kanji:    "kanji",
	Romaji:   "romaji",
	Mixed:    "mixed",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

const (
	prolongedSoundMark = 'ー' // U+30FC, used with both kana
	kanaShift          = 0x60
)

// Classify returns the writing system of s.
//
// Whitespace is ignored. A Han ideograph anywhere wins, since vocabulary mixes
// kanji with okurigana. The prolonged sound mark counts as either kana.
func Classify(s string) Kind {
	var hira, kata, long, latin, punct bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case IsKanji(r):
			return Kanji
		case r == prolongedSoundMark:
			long = true
		case IsHiragana(r):
			hira = true
		case IsKatakana(r):
			kata = true
		case isASCIILetter(r):
			latin = true
		case isRomajiPunct(r):
			punct = true
		default:
			return Mixed
		}
	}

	kana := hira || kata || long
	switch {
	case !kana && !latin && !punct:
		return Empty
	case latin:
		if kana {
			return Mixed
		}
		return Romaji
	case punct:
		return Mixed
	case hira && kata:
		return Mixed
	case hira:
		return Hiragana
	}
	// katakana, or only prolonged sound marks
	return Katakana
}

// IsHiragana reports whether r is in the hiragana block.
func IsHiragana(r rune) bool {
	return r >= 0x3040 && r <= 0x309F
}

// IsKatakana reports whether r is full width katakana, a katakana phonetic
// extension or half width katakana.
func IsKatakana(r rune) bool {
	return (r >= 0x30A0 && r <= 0x30FF) ||
		(r >= 0x31F0 && r <= 0x31FF) ||
		(r >= 0xFF66 && r <= 0xFF9F)
}

// IsKanji reports whether r is a Han ideograph (including 々).
func IsKanji(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// IsKana reports whether r is hiragana, katakana or the prolonged sound mark.
func IsKana(r rune) bool {
	return IsHiragana(r) || IsKatakana(r)
}

// ContainsKanji reports whether s has at least one Han ideograph.
func ContainsKanji(s string) bool {
	for _, r := range s {
		if IsKanji(r) {
			return true
		}
	}
	return false
}

// HasLatin reports whether s contains at least one ASCII letter.
func HasLatin(s string) bool {
	for _, r := range s {
		if isASCIILetter(r) {
			return true
		}
	}
	return false
}

// ToHiragana shifts katakana to hiragana. Other runes are untouched.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - kanaShift
		}
	}
	return string(runes)
}

// ToKatakana shifts hiragana to katakana. Other runes are untouched.
func ToKatakana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x3041 && r <= 0x3096 {
			runes[i] = r + kanaShift
		}
	}
	return string(runes)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isRomajiPunct(r rune) bool {
	switch r {
	case '\'', '-', '.', ',', '!', '?':
		return true
	}
	return false
}
