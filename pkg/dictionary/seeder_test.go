package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/phrases"
	"github.com/japaniel/ferdinand/pkg/testhelpers"
	"github.com/japaniel/ferdinand/pkg/text"
)

const sampleDict = `
{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "犬", "common": true}],
      "kana": [{"text": "いぬ", "common": true}],
      "sense": [{"gloss": [{"text": "dog"}], "partOfSpeech": ["n"]}]
    },
    {
      "id": "2",
      "kanji": [{"text": "走る", "common": true}],
      "kana": [{"text": "はしる", "common": true}],
      "sense": [{"gloss": [{"text": "to run"}], "partOfSpeech": ["v5r"]}]
    },
    {
      "id": "3",
      "kanji": [{"text": "猫", "common": true}],
      "kana": [{"text": "ねこ", "common": true}],
      "sense": [
        {"gloss": [{"text": "cat"}], "partOfSpeech": ["n"]},
        {"gloss": [{"text": "shamisen"}, {"text": "Katze", "lang": "ger"}], "partOfSpeech": ["n"]}
      ]
    },
    {
      "id": "4",
      "kanji": [],
      "kana": [{"text": "テスト", "common": true}],
      "sense": [{"gloss": [{"text": "test"}], "partOfSpeech": ["n", "vs"]}]
    }
  ]
}
`

func loadSample(t *testing.T) []JMdictEntry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jmdict.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDict), 0o644))
	entries, err := LoadJMdictSimplified(path)
	require.NoError(t, err)
	return entries
}

func TestLoadJMdictSimplifiedAcceptsBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jmdict.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "9", "kana": [{"text": "あ"}]}]`), 0o644))

	entries, err := LoadJMdictSimplified(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "9", entries[0].ID)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = LoadJMdictSimplified(path)
	assert.Error(t, err)
}

func TestGlossaryLookup(t *testing.T) {
	g := NewGlossary(loadSample(t))

	got := g.Lookup("犬", "", "")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Len(t, g.Lookup("走っ", "走る", "ハシッ"), 0, "reading must match a kana form")
	assert.Len(t, g.Lookup("走っ", "走る", "ハシル"), 1)
	assert.Len(t, g.Lookup("テスト", "", "テスト"), 1)
	assert.Nil(t, g.Lookup("未知", "", ""))
}

func TestFormatGloss(t *testing.T) {
	g := NewGlossary(loadSample(t))

	assert.Equal(t, "(n) dog", FormatGloss(g.Lookup("犬", "", "")))
	assert.Equal(t, "1. (n) cat; 2. (n) shamisen", FormatGloss(g.Lookup("猫", "", "")))
	assert.Equal(t, "", FormatGloss(nil))
}

func TestSeedDefinesOnlyUndefinedPhrases(t *testing.T) {
	ctx := context.Background()
	conn := testhelpers.NewDB(t)
	svc := phrases.NewService(conn, zap.NewNop())

	dog, err := svc.Create(ctx, nil, "犬")
	require.NoError(t, err)
	cat, err := svc.Create(ctx, nil, "猫")
	require.NoError(t, err)
	unknown, err := svc.Create(ctx, nil, "未知")
	require.NoError(t, err)
	_, err = svc.ReviseDefinition(ctx, cat, "my own words")
	require.NoError(t, err)

	seeder := NewSeeder(NewGlossary(loadSample(t)), svc, nil, zap.NewNop())
	n, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := svc.Get(ctx, dog)
	require.NoError(t, err)
	require.NotNil(t, v.Definition)
	assert.Equal(t, "(n) dog", *v.Definition)

	v, err = svc.Get(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, "my own words", *v.Definition)

	v, err = svc.Get(ctx, unknown)
	require.NoError(t, err)
	assert.Nil(t, v.Definition)

	// A second run has nothing left to do.
	n, err = seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedUsesDictionaryFormWithAnalyzer(t *testing.T) {
	ctx := context.Background()
	conn := testhelpers.NewDB(t)
	svc := phrases.NewService(conn, zap.NewNop())
	analyzer, err := text.NewAnalyzer()
	require.NoError(t, err)

	id, err := svc.Create(ctx, nil, "走っ")
	require.NoError(t, err)

	n, err := NewSeeder(NewGlossary(loadSample(t)), svc, nil, zap.NewNop()).Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "surface form alone is not in the glossary")

	n, err = NewSeeder(NewGlossary(loadSample(t)), svc, analyzer, zap.NewNop()).Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, v.Definition)
	assert.Equal(t, "(v5r) to run", *v.Definition)
}

func TestToHiragana(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ア", "あ"},
		{"イ", "い"},
		{"カ", "か"},
		{"ガ", "が"},
		{"パ", "ぱ"},
		{"ン", "ん"},
		{"ー", "ー"},
		{"abc", "abc"},
		{"あいう", "あいう"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, ToHiragana(tt.in), "ToHiragana(%q)", tt.in)
	}
}
