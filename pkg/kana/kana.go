// Package kana converts romanized Japanese into hiragana or katakana and back.
//
// Conversion is a greedy longest-prefix match over a mora table, applied left
// to right. It never fails: anything that matches no table entry (kana that is
// already converted, digits, punctuation, a consonant still waiting for its
// vowel) is copied through one rune at a time, so partially typed input
// degrades to a partial conversion.
//
// Moraic n follows one rule everywhere:
//   - "n'" is always ん; the apostrophe marks a boundary and is consumed
//     ("kon'ya" -> こんや).
//   - an n followed by a vowel or y starts the next mora ("konya" -> こにゃ).
//   - "nn" is ん; when a vowel or y follows, the second n starts the next mora
//     ("onna" -> おんな, "konnichiha" -> こんにちは).
//   - an n followed by anything else, or at the end of input, is ん.
//
// A Transliterator is read-only after New and safe for concurrent use.
package kana

import (
	"strings"
	"unicode/utf8"

	"github.com/japaniel/kotoba/pkg/script"
)

type table struct {
	mora    map[string]string
	sokuon  string
	moraicN string
}

// Transliterator converts between romaji and kana.
type Transliterator struct {
	hiragana table
	katakana table
	// reverse maps hiragana morae (one or two runes) to their Hepburn romaji.
	reverse map[string]string
}

// New builds a Transliterator from the mora table. The katakana table is the
// hiragana table shifted into the katakana block.
func New() *Transliterator {
	t := &Transliterator{
		hiragana: table{mora: make(map[string]string, len(moraTable)), sokuon: sokuon, moraicN: moraicN},
		katakana: table{
			mora:    make(map[string]string, len(moraTable)),
			sokuon:  script.ToKatakana(sokuon),
			moraicN: script.ToKatakana(moraicN),
		},
		reverse: make(map[string]string, len(moraTable)),
	}
	for _, e := range moraTable {
		t.hiragana.mora[e.romaji] = e.kana
		t.katakana.mora[e.romaji] = script.ToKatakana(e.kana)
		if _, ok := t.reverse[e.kana]; !ok {
			t.reverse[e.kana] = e.romaji
		}
	}
	return t
}

// ToHiragana converts romaji in s to hiragana.
func (t *Transliterator) ToHiragana(s string) string {
	return t.convert(s, &t.hiragana)
}

// ToKatakana converts romaji in s to katakana.
func (t *Transliterator) ToKatakana(s string) string {
	return t.convert(s, &t.katakana)
}

func (t *Transliterator) convert(s string, tbl *table) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s) * 2)

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == 'n' {
			if n := moraicNLen(runes, i); n > 0 {
				b.WriteString(tbl.moraicN)
				i += n
				continue
			}
		}

		if geminates(runes, i) {
			b.WriteString(tbl.sokuon)
			i++
			continue
		}

		if k, n := tbl.longest(runes[i:]); n > 0 {
			b.WriteString(k)
			i += n
			continue
		}

		b.WriteRune(r)
		i++
	}
	return b.String()
}

// longest returns the kana for the longest table key prefixing runes and the
// number of runes it consumed, or 0 when nothing matches.
func (tbl *table) longest(runes []rune) (string, int) {
	n := min(maxRomajiLen, len(runes))
	for l := n; l > 0; l-- {
		if k, ok := tbl.mora[string(runes[:l])]; ok {
			return k, l
		}
	}
	return "", 0
}

// moraicNLen returns how many runes starting at the n at i make up a moraic
// n, or 0 when the n belongs to the next mora.
func moraicNLen(runes []rune, i int) int {
	if i+1 >= len(runes) {
		return 1
	}
	next := runes[i+1]
	switch {
	case next == '\'':
		return 2
	case next == 'n':
		if i+2 < len(runes) && startsMora(runes[i+2]) {
			return 1
		}
		return 2
	case startsMora(next):
		return 0
	}
	return 1
}

// geminates reports whether the consonant at i is doubled and should be
// written as a small tsu.
func geminates(runes []rune, i int) bool {
	if i+1 >= len(runes) {
		return false
	}
	r, next := runes[i], runes[i+1]
	if !isConsonant(r) || r == 'n' {
		return false
	}
	if next == r {
		return true
	}
	// Hepburn writes a doubled ch as tch (matcha)
	return r == 't' && next == 'c' && i+2 < len(runes) && runes[i+2] == 'h'
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}

func startsMora(r rune) bool {
	return isVowel(r) || r == 'y'
}

func isConsonant(r rune) bool {
	return r >= 'a' && r <= 'z' && !isVowel(r)
}

// ToRomaji converts hiragana and katakana in s to Hepburn romaji. Small tsu
// doubles the following consonant, ん is written n' before a vowel, y or
// another ん, and ー becomes a hyphen, so that ToHiragana(ToRomaji(s)) == s
// for hiragana input. Other runes pass through.
func (t *Transliterator) ToRomaji(s string) string {
	runes := []rune(script.ToHiragana(s))

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(runes); {
		switch string(runes[i]) {
		case sokuon:
			next, _ := t.reverseAt(runes, i+1)
			if next != "" && isConsonant(rune(next[0])) && next[0] != 'n' {
				if strings.HasPrefix(next, "ch") {
					b.WriteByte('t')
				} else {
					b.WriteByte(next[0])
				}
			} else {
				b.WriteString("xtu")
			}
			i++
			continue
		case moraicN:
			b.WriteByte('n')
			next, _ := t.reverseAt(runes, i+1)
			if next != "" && (startsMora(rune(next[0])) || next[0] == 'n') {
				b.WriteByte('\'')
			}
			i++
			continue
		}

		if romaji, n := t.reverseAt(runes, i); n > 0 {
			b.WriteString(romaji)
			i += n
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

// reverseAt looks up the mora starting at i, preferring two-rune digraphs.
func (t *Transliterator) reverseAt(runes []rune, i int) (string, int) {
	if i >= len(runes) {
		return "", 0
	}
	if i+1 < len(runes) {
		if r, ok := t.reverse[string(runes[i:i+2])]; ok {
			return r, 2
		}
	}
	if string(runes[i]) == moraicN {
		return "n", 1
	}
	if r, ok := t.reverse[string(runes[i])]; ok {
		return r, 1
	}
	return "", 0
}

// IsComplete reports whether every rune of s was consumed by the table, that
// is whether converting s leaves no romaji behind. Useful to tell a finished
// word from one still being typed.
func (t *Transliterator) IsComplete(s string) bool {
	converted := t.ToHiragana(s)
	for len(converted) > 0 {
		r, size := utf8.DecodeRuneInString(converted)
		if r < utf8.RuneSelf && (isVowel(r) || isConsonant(r)) {
			return false
		}
		converted = converted[size:]
	}
	return true
}
