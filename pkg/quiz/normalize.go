package quiz

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/width"

	"github.com/japaniel/kotoba/pkg/kana"
	"github.com/japaniel/kotoba/pkg/script"
)

// Normalizer converts the value of one answer field into the script of its
// target mode. It keeps no state between calls beyond an optional cache keyed
// by the full input, so each call derives only from the value it is given and
// superseded calls from a debounced caller are harmless.
type Normalizer struct {
	tr    *kana.Transliterator
	cache *lru.Cache[normalizeKey, string]
}

type normalizeKey struct {
	raw    string
	target InputMode
	pref   OutputPreference
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithCache keeps the last size conversions in an LRU cache.
func WithCache(size int) NormalizerOption {
	return func(n *Normalizer) {
		if c, err := lru.New[normalizeKey, string](size); err == nil {
			n.cache = c
		}
	}
}

// NewNormalizer returns a Normalizer converting through tr.
func NewNormalizer(tr *kana.Transliterator, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{tr: tr}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Transliterator returns the transliterator the normalizer converts with.
func (n *Normalizer) Transliterator() *kana.Transliterator {
	return n.tr
}

// NormalizeField returns raw converted for target.
//
// Romaji and English fields are returned unchanged. Hiragana and katakana
// fields convert romaji, including a romaji tail typed after kana, into their
// own script. A kanji field converts romaji into the preferred kana so kana-only
// words can be answered without an IME. Full width latin letters and half width
// katakana are folded first.
func (n *Normalizer) NormalizeField(raw string, target InputMode, pref OutputPreference) string {
	switch target {
	case ModeHiragana, ModeKatakana, ModeKanji:
	default:
		return raw
	}

	key := normalizeKey{raw: raw, target: target, pref: pref}
	if n.cache != nil {
		if v, ok := n.cache.Get(key); ok {
			return v
		}
	}

	out := n.normalize(raw, target, pref)
	if n.cache != nil {
		n.cache.Add(key, out)
	}
	return out
}

func (n *Normalizer) normalize(raw string, target InputMode, pref OutputPreference) string {
	folded := width.Fold.String(raw)
	switch script.Classify(folded) {
	case script.Romaji:
	case script.Mixed:
		if !script.HasLatin(folded) {
			return folded
		}
	default:
		return folded
	}

	switch target {
	case ModeKatakana:
		return n.tr.ToKatakana(folded)
	case ModeKanji:
		if pref == OutputKatakana {
			return n.tr.ToKatakana(folded)
		}
	}
	return n.tr.ToHiragana(folded)
}
