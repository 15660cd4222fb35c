package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/ferdinand/pkg/graph"
)

type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("FERDINAND_LOG_LEVEL", "error")
	return &cli{t: t, dbPath: filepath.Join(t.TempDir(), "kb.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), append([]string{"--db", c.dbPath}, args...), &out, &errOut)
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "ferdinand %s", strings.Join(args, " "))
	return out
}

func TestMigrate(t *testing.T) {
	c := newCLI(t)
	assert.Contains(t, c.mustRun("migrate"), "up to date")
	// A second run against the same file is a no-op.
	assert.Contains(t, c.mustRun("migrate"), "up to date")
}

func TestSentenceLifecycle(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun("sentence", "add", "This", "is", "the", "best", "sentence."), "Created stack 1")
	assert.Contains(t, c.mustRun("sentence", "show", "1"), "This is the best sentence.")

	c.mustRun("sentence", "revise", "1", "This is the worst sentence.")
	out := c.mustRun("sentence", "history", "1")
	assert.Contains(t, out, "best")
	assert.Contains(t, out, "worst")

	c.mustRun("sentence", "stale", "1")
	assert.Contains(t, c.mustRun("sentence", "list"), "yes")
	c.mustRun("sentence", "fresh", "1")
	assert.NotContains(t, c.mustRun("sentence", "list"), "yes")

	assert.Contains(t, c.mustRun("sentence", "delete", "1"), "Deleted stack 1")
	_, err := c.run("sentence", "show", "1")
	assert.ErrorContains(t, err, "stack 1 not found")
}

func TestSentenceValidation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("sentence", "add", "   ")
	assert.ErrorContains(t, err, "must not be blank")

	_, err = c.run("sentence", "revise", "7", "words")
	assert.ErrorContains(t, err, "stack 7 not found")

	_, err = c.run("sentence", "show", "abc")
	assert.ErrorContains(t, err, "invalid id")
}

func TestPhraseWorkflow(t *testing.T) {
	c := newCLI(t)
	c.mustRun("sentence", "add", "The quick brown fox jumps.")

	out := c.mustRun("sentence", "words", "1")
	assert.Contains(t, out, "quick")

	assert.Contains(t, c.mustRun("phrase", "pick", "1", "2", "1"), "Created phrase 1: quick brown")
	assert.Contains(t, c.mustRun("phrase", "add", "--stack", "1", "fox"), "Created phrase 2")
	assert.Contains(t, c.mustRun("phrase", "add", "standalone"), "Created phrase 3")

	_, err := c.run("phrase", "add", "--stack", "9", "ghost")
	assert.ErrorContains(t, err, "stack 9 not found")

	out = c.mustRun("phrase", "list", "--stack", "1")
	assert.Contains(t, out, "quick brown")
	assert.NotContains(t, out, "standalone")

	_, err = c.run("phrase", "define", "1", "  ")
	assert.ErrorContains(t, err, "must not be blank")
	c.mustRun("phrase", "define", "1", "moving fast")
	c.mustRun("phrase", "define", "1", "moving very fast")

	c.mustRun("phrase", "status", "1", "accepted")
	_, err = c.run("phrase", "status", "1", "DONE")
	assert.Error(t, err)

	c.mustRun("phrase", "notes", "1", "seen in a typing drill")

	out = c.mustRun("phrase", "show", "1")
	assert.Contains(t, out, "moving very fast")
	assert.Contains(t, out, "ACCEPTED")
	assert.Contains(t, out, "typing drill")

	// Revising the source drops "quick brown" but keeps "fox".
	c.mustRun("sentence", "revise", "1", "The slow fox jumps.")
	assert.Contains(t, c.mustRun("phrase", "show", "1"), "Stale:      yes")
	assert.Contains(t, c.mustRun("phrase", "show", "2"), "Stale:      -")

	c.mustRun("phrase", "rephrase", "1", "slow")
	assert.Contains(t, c.mustRun("phrase", "show", "1"), "Stale:      -")

	assert.Contains(t, c.mustRun("phrase", "delete", "3"), "Deleted phrase 3")
	_, err = c.run("phrase", "show", "3")
	assert.ErrorContains(t, err, "phrase 3 not found")
}

func TestGraphFormats(t *testing.T) {
	c := newCLI(t)
	c.mustRun("sentence", "add", "A cat sat.")
	c.mustRun("phrase", "add", "--stack", "1", "cat")
	c.mustRun("phrase", "define", "1", "small feline")

	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("graph")), &g))
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "cat", g.Edges[0].ID)
	require.NotNil(t, g.Edges[0].Source)
	require.NotNil(t, g.Edges[0].Target)
	assert.Equal(t, int64(1), *g.Edges[0].Source)
	assert.Equal(t, int64(2), *g.Edges[0].Target)

	var y graph.Graph
	require.NoError(t, yaml.Unmarshal([]byte(c.mustRun("graph", "--format", "yaml")), &y))
	assert.Equal(t, g, y)

	_, err := c.run("graph", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestImportFiles(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("First line here. Second line here.\nThird."), 0o644))
	assert.Contains(t, c.mustRun("import", "--text", txt), "Imported 3 of 3 sentences")

	html := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(html, []byte(`<html><head><title>Page</title></head><body><article>
<p>It was the best of times, it was the worst of times, it was the age of wisdom, it was the age of foolishness.</p>
<p>It was the epoch of belief, it was the epoch of incredulity, it was the season of Light, it was the season of Darkness.</p>
</article></body></html>`), 0o644))
	out := c.mustRun("import", html)
	assert.Contains(t, out, "Title: Page")
	assert.Contains(t, out, "Imported")

	assert.Contains(t, c.mustRun("sentence", "list"), "epoch of belief")

	_, err := c.run("import", filepath.Join(dir, "missing.html"))
	assert.Error(t, err)
}

func TestSeedDefinitions(t *testing.T) {
	c := newCLI(t)
	dict := filepath.Join(t.TempDir(), "jmdict.json")
	require.NoError(t, os.WriteFile(dict, []byte(`{"words": [
		{"id": "1", "kanji": [{"text": "犬"}], "kana": [{"text": "いぬ"}],
		 "sense": [{"gloss": [{"text": "dog"}], "partOfSpeech": ["n"]}]}
	]}`), 0o644))

	c.mustRun("phrase", "add", "犬")
	c.mustRun("phrase", "add", "鳥")

	assert.Contains(t, c.mustRun("seed-definitions", dict), "Seeded definitions for 1 phrases")
	assert.Contains(t, c.mustRun("phrase", "show", "1"), "(n) dog")
}
