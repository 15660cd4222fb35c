package stacks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/japaniel/ferdinand/pkg/db"
)

// LatestSentences maps every stack to the id of its newest sentence.
const LatestSentences = `(SELECT stack_id, MAX(id) AS id FROM sentences GROUP BY stack_id)`

func currentQuery() sq.SelectBuilder {
	return db.Builder.
		Select("st.id AS stack_id", "st.stale", "s.words").
		From("stacks st").
		Join(LatestSentences + " latest ON latest.stack_id = st.id").
		Join("sentences s ON s.id = latest.id")
}

// Create opens a new stack whose first sentence is words.
func Create(ctx context.Context, ex db.Executor, words string) (int64, error) {
	stackID, err := db.InsertReturningID(ctx, ex, db.Builder.Insert("stacks").Columns("stale").Values(false))
	if err != nil {
		return 0, fmt.Errorf("insert stack: %w", err)
	}
	if err := insertSentence(ctx, ex, stackID, words); err != nil {
		return 0, err
	}
	return stackID, nil
}

func insertSentence(ctx context.Context, ex db.Executor, stackID int64, words string) error {
	_, err := db.Exec(ctx, ex, db.Builder.Insert("sentences").Columns("stack_id", "words").Values(stackID, words))
	if err != nil {
		return fmt.Errorf("insert sentence for stack %d: %w", stackID, err)
	}
	return nil
}

// Current resolves a stack to its newest sentence. It returns nil, nil when
// the stack does not exist or holds no sentences.
func Current(ctx context.Context, ex db.Executor, stackID int64) (*db.CurrentSentence, error) {
	var cur db.CurrentSentence
	err := db.Get(ctx, ex, &cur, currentQuery().Where(sq.Eq{"st.id": stackID}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current sentence for stack %d: %w", stackID, err)
	}
	return &cur, nil
}

// ListCurrent resolves every stack, in creation order.
func ListCurrent(ctx context.Context, ex db.Executor) ([]db.CurrentSentence, error) {
	out := []db.CurrentSentence{}
	if err := db.Select(ctx, ex, &out, currentQuery().OrderBy("st.id")); err != nil {
		return nil, fmt.Errorf("list current sentences: %w", err)
	}
	return out, nil
}

// History returns every version of a stack, oldest first.
func History(ctx context.Context, ex db.Executor, stackID int64) ([]db.Sentence, error) {
	out := []db.Sentence{}
	q := db.Builder.Select("id", "stack_id", "words").
		From("sentences").
		Where(sq.Eq{"stack_id": stackID}).
		OrderBy("id")
	if err := db.Select(ctx, ex, &out, q); err != nil {
		return nil, fmt.Errorf("list history for stack %d: %w", stackID, err)
	}
	return out, nil
}

// Exists reports whether a stack row is present.
func Exists(ctx context.Context, ex db.Executor, stackID int64) (bool, error) {
	var n int
	q := db.Builder.Select("COUNT(*)").From("stacks").Where(sq.Eq{"id": stackID})
	if err := db.Get(ctx, ex, &n, q); err != nil {
		return false, fmt.Errorf("check stack %d: %w", stackID, err)
	}
	return n > 0, nil
}

// Append pushes words as the new current sentence of an existing stack and
// re-evaluates the phrases extracted from it. It returns 0 without writing
// when the stack does not exist.
func Append(ctx context.Context, ex db.Executor, stackID int64, words string) (int64, error) {
	ok, err := Exists(ctx, ex, stackID)
	if err != nil || !ok {
		return 0, err
	}
	if err := insertSentence(ctx, ex, stackID, words); err != nil {
		return 0, err
	}
	if _, err := RefreshPhrases(ctx, ex, stackID, words); err != nil {
		return 0, err
	}
	return stackID, nil
}

// RefreshPhrases marks the phrases of stackID stale when their wording no
// longer occurs in words (case-insensitive), and fresh otherwise. Phrases of
// other stacks are left alone. It returns how many phrases ended up stale.
func RefreshPhrases(ctx context.Context, ex db.Executor, stackID int64, words string) (int, error) {
	var phrases []db.Phrase
	q := db.Builder.Select("id", "stack_id", "words", "stale").
		From("phrases").
		Where(sq.Eq{"stack_id": stackID})
	if err := db.Select(ctx, ex, &phrases, q); err != nil {
		return 0, fmt.Errorf("list phrases for stack %d: %w", stackID, err)
	}

	lowered := strings.ToLower(words)
	var stale, fresh []int64
	for _, p := range phrases {
		if strings.Contains(lowered, strings.ToLower(p.Words)) {
			fresh = append(fresh, p.ID)
		} else {
			stale = append(stale, p.ID)
		}
	}

	if err := setPhraseStale(ctx, ex, fresh, false); err != nil {
		return 0, err
	}
	if err := setPhraseStale(ctx, ex, stale, true); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func setPhraseStale(ctx context.Context, ex db.Executor, ids []int64, stale bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, ex, db.Builder.Update("phrases").Set("stale", stale).Where(sq.Eq{"id": ids}))
	if err != nil {
		return fmt.Errorf("set stale=%t on %d phrases: %w", stale, len(ids), err)
	}
	return nil
}

// SetStale sets the stack-level staleness flag. Phrase staleness is separate.
func SetStale(ctx context.Context, ex db.Executor, stackID int64, stale bool) error {
	_, err := db.Exec(ctx, ex, db.Builder.Update("stacks").Set("stale", stale).Where(sq.Eq{"id": stackID}))
	if err != nil {
		return fmt.Errorf("set stale=%t on stack %d: %w", stale, stackID, err)
	}
	return nil
}

// Delete removes a stack; its sentences and any definitions pointing at it
// cascade. Phrases extracted from it keep existing without an origin.
func Delete(ctx context.Context, ex db.Executor, stackID int64) (bool, error) {
	res, err := db.Exec(ctx, ex, db.Builder.Delete("stacks").Where(sq.Eq{"id": stackID}))
	if err != nil {
		return false, fmt.Errorf("delete stack %d: %w", stackID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected (stack delete): %w", err)
	}
	return n > 0, nil
}
