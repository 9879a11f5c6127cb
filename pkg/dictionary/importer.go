package dictionary

import (
	"database/sql"
	"slices"
	"strings"

	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/script"
)

// MaxGlosses bounds how many English translations a card is given.
const MaxGlosses = 5

// Importer matches deck words against an in-memory dictionary index. The
// index is built once in NewImporter and only read afterwards, so an
// Importer is safe for concurrent lookups.
type Importer struct {
	conn *sql.DB
	// Key: kanji or kana text
	index map[string][]JMdictEntry
}

// NewImporter creates an importer and builds an in-memory index of the provided dictionary.
func NewImporter(conn *sql.DB, entries []JMdictEntry) *Importer {
	idx := make(map[string][]JMdictEntry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Importer{conn: conn, index: idx}
}

// ProcessUpdates fills in English for every card that has none and returns
// how many cards were updated.
func (im *Importer) ProcessUpdates() (int, error) {
	cards, err := db.ListFlashcardsMissingEnglish(im.conn)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, c := range cards {
		english := im.English(cardWord(c), "", c.Hiragana)
		if len(english) == 0 {
			continue
		}
		if err := db.UpdateFlashcardEnglish(im.conn, c.ID, english); err != nil {
			Logger.Warn().Err(err).Int64("flashcard", c.ID).Msg("failed to update english")
			continue
		}
		updated++
	}
	Logger.Debug().Int("cards", len(cards)).Int("updated", updated).Msg("dictionary import done")
	return updated, nil
}

func cardWord(c db.Flashcard) string {
	switch {
	case c.Kanji != "":
		return c.Kanji
	case c.Katakana != "":
		return c.Katakana
	}
	return c.Hiragana
}

// Lookup finds matching entries for a given word, lemma, and pronunciation.
func (im *Importer) Lookup(word, lemma, pronunciation string) []JMdictEntry {
	return im.findMatches(word, lemma, pronunciation)
}

// English returns the English glosses of the entries matching the word.
func (im *Importer) English(word, lemma, pronunciation string) []string {
	return Glosses(im.findMatches(word, lemma, pronunciation), MaxGlosses)
}

// Katakana returns the katakana spelling of word when the dictionary lists
// one for it, "" otherwise.
func (im *Importer) Katakana(word, pronunciation string) string {
	for _, e := range im.findMatches(word, "", pronunciation) {
		for _, k := range e.Kana {
			if k.Text != "" && script.Classify(k.Text) == script.Katakana {
				return k.Text
			}
		}
	}
	return ""
}

func (im *Importer) findMatches(word, lemma, pronunciation string) []JMdictEntry {
	candidates := make(map[string]JMdictEntry) // dedupe by entry id
	for _, term := range []string{word, lemma} {
		if term == "" {
			continue
		}
		for _, e := range im.index[term] {
			candidates[e.Id] = e
		}
	}

	var results []JMdictEntry
	for _, entry := range candidates {
		if isMatch(entry, word, lemma, pronunciation) {
			results = append(results, entry)
		}
	}

	// common entries first, then by id
	slices.SortFunc(results, func(a, b JMdictEntry) int {
		if ca, cb := isCommon(a), isCommon(b); ca != cb {
			if ca {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Id, b.Id)
	})
	return results
}

func isCommon(e JMdictEntry) bool {
	for _, k := range e.Kanji {
		if k.Common {
			return true
		}
	}
	for _, k := range e.Kana {
		if k.Common {
			return true
		}
	}
	return false
}

// isMatch requires the entry to spell word or lemma and, when a reading is
// known, to have a kana element reading the same.
func isMatch(entry JMdictEntry, word, lemma, pronunciation string) bool {
	hasText := false
	for _, els := range [][]JMdictElement{entry.Kanji, entry.Kana} {
		for _, k := range els {
			if k.Text != "" && (k.Text == word || k.Text == lemma) {
				hasText = true
			}
		}
	}
	if !hasText {
		return false
	}
	if pronunciation == "" {
		return true
	}

	normalizedPron := script.ToHiragana(pronunciation)
	for _, k := range entry.Kana {
		if script.ToHiragana(k.Text) == normalizedPron {
			return true
		}
	}
	return false
}
