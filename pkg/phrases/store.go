package phrases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/japaniel/ferdinand/pkg/db"
	"github.com/japaniel/ferdinand/pkg/stacks"
)

// LatestDefinition joins definitions d to the newest definition row of phrase
// p. That row is the authoritative definition.
const LatestDefinition = `definitions d ON d.id = (
	SELECT id FROM definitions WHERE phrase_id = p.id
	ORDER BY timestamp DESC, id DESC LIMIT 1)`

func viewQuery() sq.SelectBuilder {
	return db.Builder.
		Select(
			"p.id", "p.stack_id", "p.words", "p.stale",
			"n.words AS notes", "n.definition_status",
			"d.stack_id AS def_stack_id",
			"ds.words AS definition",
			"dst.stale AS definition_stale",
		).
		From("phrases p").
		Join("notes n ON n.phrase_id = p.id").
		LeftJoin(LatestDefinition).
		LeftJoin("stacks dst ON dst.id = d.stack_id").
		LeftJoin(stacks.LatestSentences + " latest ON latest.stack_id = d.stack_id").
		LeftJoin("sentences ds ON ds.id = latest.id")
}

// Create inserts a phrase together with its NEW note. stackID may be nil for
// phrases not extracted from a sentence.
func Create(ctx context.Context, ex db.Executor, stackID *int64, words string) (int64, error) {
	id, err := db.InsertReturningID(ctx, ex, db.Builder.Insert("phrases").Columns("stack_id", "words").Values(stackID, words))
	if err != nil {
		return 0, fmt.Errorf("insert phrase: %w", err)
	}
	_, err = db.Exec(ctx, ex, db.Builder.Insert("notes").
		Columns("phrase_id", "definition_status").
		Values(id, db.StatusNew))
	if err != nil {
		return 0, fmt.Errorf("insert note for phrase %d: %w", id, err)
	}
	return id, nil
}

// Get returns the joined view of a phrase, or nil, nil when it does not exist.
func Get(ctx context.Context, ex db.Executor, phraseID int64) (*db.PhraseView, error) {
	var v db.PhraseView
	err := db.Get(ctx, ex, &v, viewQuery().Where(sq.Eq{"p.id": phraseID}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get phrase %d: %w", phraseID, err)
	}
	return &v, nil
}

// List returns phrase views matching where (nil for all), ordered by id.
func List(ctx context.Context, ex db.Executor, where sq.Sqlizer) ([]db.PhraseView, error) {
	q := viewQuery().OrderBy("p.id")
	if where != nil {
		q = q.Where(where)
	}
	out := []db.PhraseView{}
	if err := db.Select(ctx, ex, &out, q); err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	return out, nil
}

// ReviseDefinition creates the phrase's definition stack on first use and
// appends to it afterwards, so every wording stays in its history. It returns
// 0 when the phrase does not exist.
func ReviseDefinition(ctx context.Context, ex db.Executor, phraseID int64, words string) (int64, error) {
	view, err := Get(ctx, ex, phraseID)
	if err != nil || view == nil {
		return 0, err
	}

	if view.DefStackID != nil {
		if _, err := stacks.Append(ctx, ex, *view.DefStackID, words); err != nil {
			return 0, fmt.Errorf("revise definition of phrase %d: %w", phraseID, err)
		}
		return phraseID, nil
	}

	stackID, err := stacks.Create(ctx, ex, words)
	if err != nil {
		return 0, fmt.Errorf("create definition stack for phrase %d: %w", phraseID, err)
	}
	_, err = db.Exec(ctx, ex, db.Builder.Insert("definitions").
		Columns("phrase_id", "stack_id").
		Values(phraseID, stackID))
	if err != nil {
		return 0, fmt.Errorf("link definition stack %d to phrase %d: %w", stackID, phraseID, err)
	}
	return phraseID, nil
}

// SetStatus moves a phrase's note to status after validating it.
func SetStatus(ctx context.Context, ex db.Executor, phraseID int64, status db.Status) error {
	s, err := db.ParseStatus(string(status))
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, ex, db.Builder.Update("notes").
		Set("definition_status", s).
		Where(sq.Eq{"phrase_id": phraseID}))
	if err != nil {
		return fmt.Errorf("set status of phrase %d: %w", phraseID, err)
	}
	return nil
}

// ReviseNotes overwrites the free-text note of a phrase.
func ReviseNotes(ctx context.Context, ex db.Executor, phraseID int64, text string) error {
	_, err := db.Exec(ctx, ex, db.Builder.Update("notes").
		Set("words", text).
		Where(sq.Eq{"phrase_id": phraseID}))
	if err != nil {
		return fmt.Errorf("revise notes of phrase %d: %w", phraseID, err)
	}
	return nil
}

// Rephrase replaces a phrase's wording and clears its stale flag. It returns
// 0 when the phrase does not exist.
func Rephrase(ctx context.Context, ex db.Executor, phraseID int64, words string) (int64, error) {
	res, err := db.Exec(ctx, ex, db.Builder.Update("phrases").
		Set("words", words).
		Set("stale", false).
		Where(sq.Eq{"id": phraseID}))
	if err != nil {
		return 0, fmt.Errorf("rephrase phrase %d: %w", phraseID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected (rephrase): %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return phraseID, nil
}

// Delete marks the phrase's definition stack stale, keeping its history, then
// removes the phrase. Its note and definition rows cascade.
func Delete(ctx context.Context, ex db.Executor, phraseID int64) (bool, error) {
	view, err := Get(ctx, ex, phraseID)
	if err != nil || view == nil {
		return false, err
	}
	if view.DefStackID != nil {
		if err := stacks.SetStale(ctx, ex, *view.DefStackID, true); err != nil {
			return false, err
		}
	}
	res, err := db.Exec(ctx, ex, db.Builder.Delete("phrases").Where(sq.Eq{"id": phraseID}))
	if err != nil {
		return false, fmt.Errorf("delete phrase %d: %w", phraseID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected (phrase delete): %w", err)
	}
	return n > 0, nil
}
