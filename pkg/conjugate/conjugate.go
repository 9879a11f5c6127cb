// Package conjugate derives the inflected forms drilled by the verb and
// adjective modules from a dictionary form and its reading.
package conjugate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/kotoba/pkg/kana"
	"github.com/japaniel/kotoba/pkg/quiz"
	"github.com/japaniel/kotoba/pkg/script"
)

// Class is the inflection class of a word.
type Class string

const (
	Ichidan     Class = "ichidan"
	Godan       Class = "godan"
	Suru        Class = "suru"
	Kuru        Class = "kuru"
	IAdjective  Class = "i-adjective"
	NaAdjective Class = "na-adjective"
)

// ErrUnsupported is returned for a word whose ending does not fit its class.
var ErrUnsupported = errors.New("conjugate: unsupported word")

// Table holds the expected surface per form and answer mode.
type Table map[quiz.ConjugationForm]map[quiz.InputMode]string

// Forms returns the forms a class inflects into, in drill order.
func Forms(c Class) []quiz.ConjugationForm {
	switch c {
	case IAdjective, NaAdjective:
		return quiz.AllForms[:len(quiz.AllForms)-1]
	}
	return quiz.AllForms
}

// Conjugate inflects word, read as reading, through every form of class.
// The kanji column is present only when word is written differently from its
// reading. Romaji is produced from the hiragana column with tr.
func Conjugate(tr *kana.Transliterator, word, reading string, class Class) (Table, error) {
	if word == "" {
		word = reading
	}
	if reading == "" {
		return nil, fmt.Errorf("%w: %q has no reading", ErrUnsupported, word)
	}

	surface, err := inflect(word, word, reading, class)
	if err != nil {
		return nil, err
	}
	kanaForms, err := inflect(reading, word, reading, class)
	if err != nil {
		return nil, err
	}

	out := make(Table, len(kanaForms))
	for form, h := range kanaForms {
		cell := map[quiz.InputMode]string{
			quiz.ModeHiragana: h,
			quiz.ModeRomaji:   tr.ToRomaji(h),
		}
		if word != reading {
			cell[quiz.ModeKanji] = surface[form]
		}
		out[form] = cell
	}
	return out, nil
}

// inflect conjugates s, which is either word or its reading.
func inflect(s, word, reading string, class Class) (map[quiz.ConjugationForm]string, error) {
	switch class {
	case Ichidan:
		return ichidan(s)
	case Godan:
		return godan(s, reading)
	case Suru:
		return suru(s)
	case Kuru:
		return kuru(s)
	case IAdjective:
		return iAdjective(s, isYoi(word, reading))
	case NaAdjective:
		return naAdjective(s), nil
	}
	return nil, fmt.Errorf("%w: unknown class %q", ErrUnsupported, class)
}

func ichidan(s string) (map[quiz.ConjugationForm]string, error) {
	stem, ok := strings.CutSuffix(s, "る")
	if !ok {
		return nil, fmt.Errorf("%w: ichidan %q does not end in る", ErrUnsupported, s)
	}
	return map[quiz.ConjugationForm]string{
		quiz.FormPlain:          s,
		quiz.FormPolite:         stem + "ます",
		quiz.FormNegative:       stem + "ない",
		quiz.FormPast:           stem + "た",
		quiz.FormPastNegative:   stem + "なかった",
		quiz.FormTe:             stem + "て",
		quiz.FormPoliteNegative: stem + "ません",
		quiz.FormPolitePast:     stem + "ました",
		quiz.FormVolitional:     stem + "よう",
		quiz.FormPotential:      stem + "られる",
	}, nil
}

// godanRows maps a godan ending to its a, i, e and o row kana.
var godanRows = map[string][4]string{
	"う": {"わ", "い", "え", "お"},
	"く": {"か", "き", "け", "こ"},
	"ぐ": {"が", "ぎ", "げ", "ご"},
	"す": {"さ", "し", "せ", "そ"},
	"つ": {"た", "ち", "て", "と"},
	"ぬ": {"な", "に", "ね", "の"},
	"ぶ": {"ば", "び", "べ", "ぼ"},
	"む": {"ま", "み", "め", "も"},
	"る": {"ら", "り", "れ", "ろ"},
}

// onbin returns the te form ending for a godan ending; the past ending swaps
// the final て/で for た/だ.
func onbin(end string, iku bool) string {
	switch end {
	case "う", "つ", "る":
		return "って"
	case "む", "ぶ", "ぬ":
		return "んで"
	case "く":
		if iku {
			return "って"
		}
		return "いて"
	case "ぐ":
		return "いで"
	case "す":
		return "して"
	}
	return ""
}

func godan(s, reading string) (map[quiz.ConjugationForm]string, error) {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil, fmt.Errorf("%w: empty godan verb", ErrUnsupported)
	}
	end := string(runes[len(runes)-1])
	row, ok := godanRows[end]
	if !ok {
		return nil, fmt.Errorf("%w: godan %q has no u-row ending", ErrUnsupported, s)
	}
	stem := string(runes[:len(runes)-1])
	iku := reading == "いく" || reading == "ゆく" || strings.HasSuffix(s, "行く")

	te := stem + onbin(end, iku)
	past := strings.TrimSuffix(te, "て")
	if past == te {
		past = strings.TrimSuffix(te, "で") + "だ"
	} else {
		past += "た"
	}

	negative := stem + row[0] + "ない"
	pastNegative := stem + row[0] + "なかった"
	if reading == "ある" {
		negative, pastNegative = "ない", "なかった"
	}

	return map[quiz.ConjugationForm]string{
		quiz.FormPlain:          s,
		quiz.FormPolite:         stem + row[1] + "ます",
		quiz.FormNegative:       negative,
		quiz.FormPast:           past,
		quiz.FormPastNegative:   pastNegative,
		quiz.FormTe:             te,
		quiz.FormPoliteNegative: stem + row[1] + "ません",
		quiz.FormPolitePast:     stem + row[1] + "ました",
		quiz.FormVolitional:     stem + row[3] + "う",
		quiz.FormPotential:      stem + row[2] + "る",
	}, nil
}

func suru(s string) (map[quiz.ConjugationForm]string, error) {
	prefix, ok := strings.CutSuffix(s, "する")
	if !ok {
		return nil, fmt.Errorf("%w: suru verb %q does not end in する", ErrUnsupported, s)
	}
	return map[quiz.ConjugationForm]string{
		quiz.FormPlain:          s,
		quiz.FormPolite:         prefix + "します",
		quiz.FormNegative:       prefix + "しない",
		quiz.FormPast:           prefix + "した",
		quiz.FormPastNegative:   prefix + "しなかった",
		quiz.FormTe:             prefix + "して",
		quiz.FormPoliteNegative: prefix + "しません",
		quiz.FormPolitePast:     prefix + "しました",
		quiz.FormVolitional:     prefix + "しよう",
		quiz.FormPotential:      prefix + "できる",
	}, nil
}

// kuruForms holds the stem vowel kana and the tail of each form of 来る.
var kuruForms = map[quiz.ConjugationForm][2]string{
	quiz.FormPlain:          {"く", "る"},
	quiz.FormPolite:         {"き", "ます"},
	quiz.FormNegative:       {"こ", "ない"},
	quiz.FormPast:           {"き", "た"},
	quiz.FormPastNegative:   {"こ", "なかった"},
	quiz.FormTe:             {"き", "て"},
	quiz.FormPoliteNegative: {"き", "ません"},
	quiz.FormPolitePast:     {"き", "ました"},
	quiz.FormVolitional:     {"こ", "よう"},
	quiz.FormPotential:      {"こ", "られる"},
}

func kuru(s string) (map[quiz.ConjugationForm]string, error) {
	prefix, kanji := strings.CutSuffix(s, "来る")
	if !kanji {
		var ok bool
		if prefix, ok = strings.CutSuffix(s, "くる"); !ok {
			return nil, fmt.Errorf("%w: kuru verb %q does not end in 来る", ErrUnsupported, s)
		}
	}
	out := make(map[quiz.ConjugationForm]string, len(kuruForms))
	for form, f := range kuruForms {
		head := f[0]
		if kanji {
			head = "来"
		}
		out[form] = prefix + head + f[1]
	}
	return out, nil
}

// isYoi reports whether the adjective is いい (良い), alone or at the end of a
// compound such as 格好いい. かわいい and other words merely ending in いい
// are regular.
func isYoi(word, reading string) bool {
	if reading == "いい" || strings.HasSuffix(word, "良い") {
		return true
	}
	base, ok := strings.CutSuffix(word, "いい")
	return ok && script.ContainsKanji(base)
}

func iAdjective(s string, yoi bool) (map[quiz.ConjugationForm]string, error) {
	stem, ok := strings.CutSuffix(s, "い")
	if !ok {
		return nil, fmt.Errorf("%w: adjective %q does not end in い", ErrUnsupported, s)
	}
	// いい inflects from よい
	if base, ok := strings.CutSuffix(s, "いい"); ok && yoi {
		stem = base + "よ"
	}
	return map[quiz.ConjugationForm]string{
		quiz.FormPlain:          s,
		quiz.FormPolite:         s + "です",
		quiz.FormNegative:       stem + "くない",
		quiz.FormPast:           stem + "かった",
		quiz.FormPastNegative:   stem + "くなかった",
		quiz.FormTe:             stem + "くて",
		quiz.FormPoliteNegative: stem + "くないです",
		quiz.FormPolitePast:     stem + "かったです",
		quiz.FormVolitional:     stem + "かろう",
	}, nil
}

func naAdjective(s string) map[quiz.ConjugationForm]string {
	s = strings.TrimSuffix(s, "な")
	return map[quiz.ConjugationForm]string{
		quiz.FormPlain:          s + "だ",
		quiz.FormPolite:         s + "です",
		quiz.FormNegative:       s + "じゃない",
		quiz.FormPast:           s + "だった",
		quiz.FormPastNegative:   s + "じゃなかった",
		quiz.FormTe:             s + "で",
		quiz.FormPoliteNegative: s + "じゃありません",
		quiz.FormPolitePast:     s + "でした",
		quiz.FormVolitional:     s + "だろう",
	}
}

// ClassFromIPA maps IPA dictionary features to a Class: pos and posDetail are
// the first two part-of-speech columns, conjType the conjugation type column.
func ClassFromIPA(pos, posDetail, conjType string) (Class, bool) {
	switch {
	case pos == "名詞" && posDetail == "形容動詞語幹":
		return NaAdjective, true
	case pos == "形容詞":
		return IAdjective, true
	case pos != "動詞":
		return "", false
	case conjType == "一段" || strings.HasPrefix(conjType, "一段・"):
		return Ichidan, true
	case strings.HasPrefix(conjType, "五段"):
		return Godan, true
	case strings.HasPrefix(conjType, "サ変"):
		return Suru, true
	case strings.HasPrefix(conjType, "カ変"):
		return Kuru, true
	}
	return "", false
}
