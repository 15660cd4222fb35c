package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfaces(words []Word) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, w.Surface)
	}
	return out
}

func TestWordsDropsPunctuationAndSpace(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	words := a.Words("This is the best sentence.")
	got := surfaces(words)
	assert.Contains(t, got, "best")
	assert.Contains(t, got, "sentence")
	assert.NotContains(t, got, ".")
	assert.NotContains(t, got, " ")
	for i, w := range words {
		assert.Equal(t, i, w.Index)
	}
	assert.False(t, words[0].SpaceBefore)
}

func TestWordsJapanese(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	words := a.Words("この猫は可愛い。")
	got := surfaces(words)
	assert.Contains(t, got, "猫")
	assert.NotContains(t, got, "。")
	for _, w := range words {
		assert.False(t, w.SpaceBefore, "no whitespace in %q", w.Surface)
		if w.Surface == "猫" {
			assert.Equal(t, "ネコ", w.Reading)
		}
	}
}

// wordsAt lays out surfaces over sentence the way Words does.
func wordsAt(t *testing.T, sentence string, surfaces ...string) []Word {
	t.Helper()
	var (
		out    []Word
		cursor int
	)
	for i, s := range surfaces {
		off := strings.Index(sentence[cursor:], s)
		require.GreaterOrEqual(t, off, 0, "%q not found after offset %d", s, cursor)
		gap := sentence[cursor : cursor+off]
		start := cursor + off
		out = append(out, Word{
			Index:       i,
			Surface:     s,
			SpaceBefore: i > 0 && strings.ContainsAny(gap, " \t\n"),
			Start:       start,
			End:         start + len(s),
		})
		cursor = start + len(s)
	}
	return out
}

func TestPhraseFromSelection(t *testing.T) {
	sentence := "This is the Best sentence, really."
	words := wordsAt(t, sentence, "This", "is", "the", "Best", "sentence", "really")

	got, err := PhraseFromSelection(sentence, words, []int{4, 3})
	require.NoError(t, err)
	assert.Equal(t, "best sentence", got)

	got, err = PhraseFromSelection(sentence, words, []int{0, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, "this the", got)

	got, err = PhraseFromSelection(sentence, words, []int{4, 5})
	require.NoError(t, err)
	assert.Equal(t, "sentence, really", got)

	_, err = PhraseFromSelection(sentence, words, []int{9})
	assert.Error(t, err)

	_, err = PhraseFromSelection(sentence, words, nil)
	assert.Error(t, err)

	_, err = PhraseFromSelection("short", words, []int{4})
	assert.Error(t, err)
}

func TestPhraseFromSelectionKeepsUnspacedWordsJoined(t *testing.T) {
	sentence := "この猫は可愛い"
	words := wordsAt(t, sentence, "この", "猫", "は", "可愛い")

	got, err := PhraseFromSelection(sentence, words, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "猫は", got)

	got, err = PhraseFromSelection(sentence, words, []int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, "猫 可愛い", got)
}

func TestPhraseFromSelectionStaysInSentence(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	tests := []struct {
		sentence string
		want     string
	}{
		{"I don't know the answer.", "i don't know the answer"},
		{"It's a well-known fact.", "it's a well-known fact"},
		{"The U.S. economy grew 3.5 percent.", "the u.s. economy grew 3.5 percent"},
	}
	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			words := a.Words(tt.sentence)
			require.NotEmpty(t, words)
			for _, w := range words {
				assert.Equal(t, w.Surface, tt.sentence[w.Start:w.End])
			}

			all := make([]int, len(words))
			for i := range words {
				all[i] = i
			}
			got, err := PhraseFromSelection(tt.sentence, words, all)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.Contains(strings.ToLower(tt.sentence), got), "%q not in %q", got, tt.sentence)
		})
	}
}

func TestNormalizeWord(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Sentence.", "sentence"},
		{"  (Define)  ", "define"},
		{"don't", "don't"},
		{"...", ""},
		{"猫", "猫"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, NormalizeWord(tt.in), "NormalizeWord(%q)", tt.in)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("This is the third sentence to define. Version 3.5 shipped!\nこの猫は可愛い。犬も？ trailing")
	assert.Equal(t, []string{
		"This is the third sentence to define.",
		"Version 3.5 shipped!",
		"この猫は可愛い。",
		"犬も？",
		"trailing",
	}, got)

	assert.Empty(t, SplitSentences("   \n "))
}

func TestSplitSentencesKeepsAbbreviations(t *testing.T) {
	got := SplitSentences("Eat fruit, e.g. apples and pears. Ask Dr. Smith about the U.S. market. Done.")
	assert.Equal(t, []string{
		"Eat fruit, e.g. apples and pears.",
		"Ask Dr. Smith about the U.S. market.",
		"Done.",
	}, got)
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<p><ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>です</p>`)
	assert.Equal(t, `<p><ruby>漢字</ruby>です</p>`, string(SanitizeRuby(in)))
}
