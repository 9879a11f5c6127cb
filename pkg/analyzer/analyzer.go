// Package analyzer segments Japanese text into sentences and morphemes with
// kagome and the IPA dictionary, and extracts article text from HTML.
package analyzer

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/kotoba/pkg/script"
)

// Token is one analyzed morpheme.
type Token struct {
	Surface  string   // as written, e.g. "行っ"
	BaseForm string   // dictionary form, e.g. "行く"
	Reading  string   // katakana reading of the surface, e.g. "イッ"
	POS      []string // the four IPA part-of-speech columns
	ConjType string   // e.g. "五段・カ行促音便", "" when not inflecting
	ConjForm string   // e.g. "連用タ接続"
}

// PrimaryPOS returns the first part-of-speech column.
func (t Token) PrimaryPOS() string {
	if len(t.POS) == 0 {
		return ""
	}
	return t.POS[0]
}

// POSDetail returns the second part-of-speech column.
func (t Token) POSDetail() string {
	if len(t.POS) < 2 {
		return ""
	}
	return t.POS[1]
}

// BaseReading returns the hiragana reading of the dictionary form. IPA gives
// the reading of the surface only, so for an inflected token the inflected
// tail is swapped for the base form's kana tail.
func (t Token) BaseReading() string {
	reading := script.ToHiragana(t.Reading)
	if reading == "" || t.BaseForm == t.Surface {
		return reading
	}
	surface, base := []rune(t.Surface), []rune(t.BaseForm)
	// length of the common prefix of surface and base
	n := 0
	for n < len(surface) && n < len(base) && surface[n] == base[n] {
		n++
	}
	surfaceTail := script.ToHiragana(string(surface[n:]))
	baseTail := string(base[n:])
	if !strings.HasSuffix(reading, surfaceTail) || script.ContainsKanji(baseTail) {
		return reading
	}
	return strings.TrimSuffix(reading, surfaceTail) + script.ToHiragana(baseTail)
}

// IsStudyWord reports whether the token is a content word worth a
// flashcard: independent nouns, verbs and adjectives, not numbers, proper
// nouns or suffixes.
func (t Token) IsStudyWord() bool {
	switch t.PrimaryPOS() {
	case "名詞":
		switch t.POSDetail() {
		case "数", "固有名詞", "代名詞", "非自立", "接尾", "特殊":
			return false
		}
		return t.Reading != ""
	case "動詞", "形容詞":
		return t.POSDetail() == "自立" && t.Reading != ""
	}
	return false
}

// Sentence is one sentence with its tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer wraps a kagome tokenizer. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// New loads the IPA dictionary and returns an Analyzer.
func New() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze tokenizes text, dropping unknown-class dummies and whitespace.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 part of speech, 4 conjugation type,
		// 5 conjugation form, 6 base form, 7 reading, 8 pronunciation
		features := token.Features()
		result = append(result, Token{
			Surface:  token.Surface,
			BaseForm: feature(features, 6, token.Surface),
			Reading:  feature(features, 7, ""),
			POS:      features[:min(4, len(features))],
			ConjType: feature(features, 4, ""),
			ConjForm: feature(features, 5, ""),
		})
	}
	return result
}

func feature(features []string, i int, fallback string) string {
	if i < len(features) && features[i] != "*" {
		return features[i]
	}
	return fallback
}

// AnalyzeDocument splits text into sentences and tokenizes each one.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: strings.TrimSpace(s), Tokens: a.Analyze(s)})
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
