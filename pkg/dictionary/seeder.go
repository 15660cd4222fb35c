package dictionary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/db"
	"github.com/japaniel/ferdinand/pkg/text"
)

// Glossary is an in-memory index of dictionary entries keyed by their kanji
// and kana spellings. It is read-only after construction.
type Glossary struct {
	index map[string][]JMdictEntry
}

// NewGlossary builds the index for entries.
func NewGlossary(entries []JMdictEntry) *Glossary {
	idx := make(map[string][]JMdictEntry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Glossary{index: idx}
}

// Len reports the number of indexed spellings.
func (g *Glossary) Len() int { return len(g.index) }

// Lookup finds entries spelled as word or lemma. When reading is set, only
// entries with a matching kana reading are returned. Results are ordered by
// entry ID; nil means no match.
func (g *Glossary) Lookup(word, lemma, reading string) []JMdictEntry {
	candidates := make(map[string]JMdictEntry)
	for _, term := range []string{word, lemma} {
		if term == "" {
			continue
		}
		for _, e := range g.index[term] {
			candidates[e.ID] = e
		}
	}

	var results []JMdictEntry
	for _, entry := range candidates {
		if isMatch(entry, word, lemma, reading) {
			results = append(results, entry)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

func isMatch(entry JMdictEntry, word, lemma, reading string) bool {
	hasText := false
	for _, els := range [][]JMdictElement{entry.Kanji, entry.Kana} {
		for _, k := range els {
			if k.Text == word || k.Text == lemma {
				hasText = true
				break
			}
		}
	}
	if !hasText {
		return false
	}
	if reading == "" {
		return true
	}

	want := ToHiragana(reading)
	for _, k := range entry.Kana {
		if ToHiragana(k.Text) == want {
			return true
		}
	}
	return false
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// PhraseStore is the part of the phrase component the seeder needs.
type PhraseStore interface {
	ListAll(ctx context.Context) ([]db.PhraseView, error)
	ReviseDefinition(ctx context.Context, phraseID int64, words string) (int64, error)
}

// Seeder writes glossary definitions for phrases that have none yet.
type Seeder struct {
	Glossary *Glossary
	Phrases  PhraseStore
	// Analyzer is optional. With it, a single-word phrase is also looked up
	// by its dictionary form and filtered by its reading.
	Analyzer *text.Analyzer
	Logger   *zap.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(glossary *Glossary, phrases PhraseStore, analyzer *text.Analyzer, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		Glossary: glossary,
		Phrases:  phrases,
		Analyzer: analyzer,
		Logger:   logger.Named("dictionary"),
	}
}

func (s *Seeder) lookup(phrase string) []JMdictEntry {
	word := strings.TrimSpace(phrase)
	if matches := s.Glossary.Lookup(word, "", ""); len(matches) > 0 {
		return matches
	}
	if s.Analyzer == nil {
		return nil
	}
	words := s.Analyzer.Words(word)
	if len(words) != 1 {
		return nil
	}
	w := words[0]
	// The reading belongs to the surface form, so it only narrows an
	// uninflected word.
	reading := ""
	if w.BaseForm == w.Surface {
		reading = w.Reading
	}
	return s.Glossary.Lookup(w.Surface, w.BaseForm, reading)
}

// Seed defines every undefined phrase the glossary knows and returns how many
// were written. Phrases that already have a definition are never touched.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	views, err := s.Phrases.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list phrases: %w", err)
	}

	seeded := 0
	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return seeded, err
		}
		if v.Definition != nil {
			continue
		}
		gloss := FormatGloss(s.lookup(v.Words))
		if gloss == "" {
			s.Logger.Debug("No dictionary entry", zap.Int64("phrase_id", v.ID), zap.String("words", v.Words))
			continue
		}
		if _, err := s.Phrases.ReviseDefinition(ctx, v.ID, gloss); err != nil {
			return seeded, fmt.Errorf("define phrase %d: %w", v.ID, err)
		}
		seeded++
	}

	s.Logger.Info("Seeded definitions",
		zap.Int("phrases", len(views)),
		zap.Int("seeded", seeded))
	return seeded, nil
}
