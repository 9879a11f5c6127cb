package quiz

import (
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/japaniel/kotoba/pkg/script"
)

// MatchResult is the outcome of comparing one answer with one field.
type MatchResult struct {
	IsMatch bool
	// Converted is the answer as it was compared, after any romaji conversion.
	Converted string
	// Similarity is the best Jaro-Winkler score against the expected values,
	// 1 on a match. It never changes IsMatch and only feeds "almost" hints.
	Similarity float64
}

// Matcher compares a learner's answer with the canonical values of a field.
type Matcher struct {
	norm *Normalizer
}

// NewMatcher returns a Matcher converting romaji through n.
func NewMatcher(n *Normalizer) *Matcher {
	return &Matcher{norm: n}
}

// Match compares user with expected for mode. Any expected value matching is
// enough. When expected is empty the field cannot be satisfied and the answer
// is returned unchanged.
func (m *Matcher) Match(user string, expected []string, mode InputMode, pref OutputPreference) MatchResult {
	res := MatchResult{Converted: user}
	candidates := nonBlank(expected)
	if len(candidates) == 0 {
		return res
	}

	answer := strings.TrimSpace(user)
	var got string
	fold := strings.TrimSpace

	switch mode {
	case ModeEnglish:
		got = normalizeEnglish(answer)
		fold = normalizeEnglish
		res.Converted = answer
	case ModeRomaji:
		got = m.readingKey(answer)
		fold = m.readingKey
		res.Converted = m.display(answer, pref)
	default:
		got = m.norm.NormalizeField(answer, mode, pref)
		fold = foldJapanese
		res.Converted = got
	}

	if got == "" {
		return res
	}
	for _, c := range candidates {
		want := fold(c)
		if got == want {
			res.IsMatch = true
			res.Similarity = 1
			return res
		}
		if s := matchr.JaroWinkler(got, want, false); s > res.Similarity {
			res.Similarity = s
		}
	}
	return res
}

// readingKey folds a romaji or kana reading into hiragana without spaces so
// "tabe ru", "タベル" and "たべる" compare equal.
func (m *Matcher) readingKey(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "")
	if script.HasLatin(s) {
		s = m.norm.Transliterator().ToHiragana(s)
	}
	return script.ToHiragana(s)
}

// display renders a romaji answer in the preferred kana for feedback.
func (m *Matcher) display(answer string, pref OutputPreference) string {
	tr := m.norm.Transliterator()
	folded := width.Fold.String(answer)
	if pref == OutputKatakana {
		return tr.ToKatakana(folded)
	}
	return tr.ToHiragana(folded)
}

func foldJapanese(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}

// normalizeEnglish applies NFKC, folds case, collapses inner whitespace and
// drops trailing punctuation.
func normalizeEnglish(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".,!?;: ")
}
