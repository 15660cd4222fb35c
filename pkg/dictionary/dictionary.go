// Package dictionary loads JMdict-simplified glossaries and uses them to seed
// definitions for phrases that have none.
package dictionary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	ID    string          `json:"id"`
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

// LoadJMdictSimplified reads a dictionary file, either the release format
// ({"words": [...]}) or a bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	if err := json.NewDecoder(f).Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// FormatGloss renders entries as definition text: one line per entry, senses
// separated by "; " and numbered when there is more than one.
func FormatGloss(entries []JMdictEntry) string {
	var lines []string
	for _, e := range entries {
		var senses []string
		for _, s := range e.Sense {
			var glosses []string
			for _, g := range s.Gloss {
				if g.Lang != "" && g.Lang != "eng" {
					continue
				}
				glosses = append(glosses, g.Text)
			}
			if len(glosses) == 0 {
				continue
			}
			sense := strings.Join(glosses, ", ")
			if len(s.PartOfSpeech) > 0 {
				sense = fmt.Sprintf("(%s) %s", strings.Join(s.PartOfSpeech, ","), sense)
			}
			senses = append(senses, sense)
		}
		if len(senses) == 0 {
			continue
		}
		if len(senses) > 1 {
			for i := range senses {
				senses[i] = fmt.Sprintf("%d. %s", i+1, senses[i])
			}
		}
		lines = append(lines, strings.Join(senses, "; "))
	}
	return strings.Join(lines, "\n")
}
