// Package dictionary loads JMdict-simplified and looks up English glosses
// for deck words.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// LoadJMdictSimplified reads a dictionary file, either the release object
// ({"words": [...]}) or a bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var getEntries struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&getEntries); err == nil && len(getEntries.Words) > 0 {
		return getEntries.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// Glosses returns up to max distinct English glosses of entries, in sense
// order. A max <= 0 returns all of them.
func Glosses(entries []JMdictEntry, max int) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		for _, s := range e.Sense {
			for _, g := range s.Gloss {
				if g.Lang != "" && g.Lang != "eng" {
					continue
				}
				text := strings.TrimSpace(g.Text)
				key := strings.ToLower(text)
				if text == "" || seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, text)
				if max > 0 && len(out) == max {
					return out
				}
			}
		}
	}
	return out
}

// PartsOfSpeech returns the distinct JMdict part-of-speech tags of entries.
func PartsOfSpeech(entries []JMdictEntry) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		for _, s := range e.Sense {
			for _, p := range s.PartOfSpeech {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	return out
}
