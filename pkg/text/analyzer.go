// Package text splits prose into sentences and words and turns a selection of
// words into a normalised phrase.
package text

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Word is one selectable unit of a sentence.
type Word struct {
	Index    int    // position among the sentence's words, from 0
	Surface  string // the text as it appears (e.g. "Sentence" or "行っ")
	BaseForm string // dictionary form when the tokenizer knows it
	Reading  string // katakana reading, empty for unknown words
	// SpaceBefore is set when whitespace separated this word from the previous one.
	SpaceBefore bool
	PrimaryPOS  string
	// Start and End are the byte offsets of Surface in the sentence.
	Start, End int
}

// Analyzer handles text segmentation.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Words breaks a sentence into indexed words. Whitespace and punctuation
// tokens are dropped.
func (a *Analyzer) Words(sentence string) []Word {
	var (
		out     []Word
		pending bool
		cursor  int
	)
	for _, token := range a.t.Tokenize(sentence) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		start := cursor
		if off := strings.Index(sentence[cursor:], token.Surface); off >= 0 {
			start = cursor + off
			cursor = start + len(token.Surface)
		}
		if strings.TrimSpace(token.Surface) == "" {
			pending = true
			continue
		}
		if isPunctuation(token.Surface) {
			continue
		}

		features := token.Features()
		base := token.Surface
		// IPA feature 6 is the base form (lemma).
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		out = append(out, Word{
			Index:       len(out),
			Surface:     token.Surface,
			BaseForm:    base,
			Reading:     reading,
			SpaceBefore: pending && len(out) > 0,
			PrimaryPOS:  primaryPOS,
			Start:       start,
			End:         start + len(token.Surface),
		})
		pending = false
	}
	return out
}

func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// NormalizeWord lower-cases a word and strips surrounding punctuation.
func NormalizeWord(s string) string {
	return strings.TrimFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// PhraseFromSelection turns the selected words of sentence into a phrase.
// Runs of consecutive words are copied from the sentence verbatim, so
// contractions, hyphenated words and decimals that the tokenizer split keep
// the characters between their pieces. Separate runs are joined by a space.
// Each run is normalised with NormalizeWord.
func PhraseFromSelection(sentence string, words []Word, indices []int) (string, error) {
	if len(indices) == 0 {
		return "", fmt.Errorf("no words selected")
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	var (
		parts      []string
		start, end int
	)
	flush := func() {
		if p := NormalizeWord(sentence[start:end]); p != "" {
			parts = append(parts, p)
		}
	}
	prev := -1
	for _, i := range sorted {
		if i < 0 || i >= len(words) {
			return "", fmt.Errorf("word index %d out of range (sentence has %d words)", i, len(words))
		}
		w := words[i]
		if w.Start < 0 || w.End > len(sentence) || w.Start > w.End {
			return "", fmt.Errorf("word %d does not belong to the sentence", i)
		}
		switch {
		case i == prev:
			continue
		case prev >= 0 && i == prev+1:
			end = w.End
		default:
			if prev >= 0 {
				flush()
			}
			start, end = w.Start, w.End
		}
		prev = i
	}
	flush()

	if len(parts) == 0 {
		return "", fmt.Errorf("selection contains no words")
	}
	return strings.Join(parts, " "), nil
}

// SplitSentences splits prose on Japanese and Western sentence delimiters and
// newlines. Western delimiters only end a sentence when followed by
// whitespace, so "3.5" stays intact. A period closing an initialism ("e.g.",
// "U.S.") or a title such as "Dr." does not end a sentence either.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		// 。(3002), ！(FF01), ？(FF1F)
		case '。', '！', '？', '\n':
			flush()
		case '.', '!', '?':
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			if r == '.' && i+1 < len(runes) && isAbbreviation(wordBefore(runes, i)) {
				continue
			}
			flush()
		}
	}
	flush()
	return sentences
}

var (
	reInitialism = regexp.MustCompile(`^\pL(\.\pL)+$`)
	titles       = map[string]bool{"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true, "vs": true}
)

// wordBefore returns the run of non-space runes ending just before runes[i],
// without leading punctuation.
func wordBefore(runes []rune, i int) string {
	start := i
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return strings.TrimLeftFunc(string(runes[start:i]), unicode.IsPunct)
}

func isAbbreviation(word string) bool {
	return reInitialism.MatchString(word) || titles[strings.ToLower(word)]
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability extracts all text including furigana, which
// would otherwise end up duplicated in imported sentences (e.g. "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
