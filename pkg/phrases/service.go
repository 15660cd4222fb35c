// Package phrases manages phrases, their notes and their versioned definitions.
package phrases

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/db"
)

// Service runs each phrase operation in its own transaction.
type Service struct {
	conn   *sqlx.DB
	logger *zap.Logger
}

// NewService creates a phrase service over conn.
func NewService(conn *sqlx.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{conn: conn, logger: logger.Named("phrases")}
}

func (s *Service) tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.WithTx(ctx, s.conn, fn)
}

// Create inserts a phrase and its note atomically.
func (s *Service) Create(ctx context.Context, stackID *int64, words string) (int64, error) {
	var id int64
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = Create(ctx, tx, stackID, words)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Created phrase", zap.Int64("phrase_id", id), zap.Int64p("stack_id", stackID))
	return id, nil
}

// Get returns a phrase view, or nil when the phrase does not exist.
func (s *Service) Get(ctx context.Context, phraseID int64) (*db.PhraseView, error) {
	return Get(ctx, s.conn, phraseID)
}

// ListAll returns every phrase view.
func (s *Service) ListAll(ctx context.Context) ([]db.PhraseView, error) {
	return List(ctx, s.conn, nil)
}

// ListForStack returns the phrases extracted from a stack.
func (s *Service) ListForStack(ctx context.Context, stackID int64) ([]db.PhraseView, error) {
	return List(ctx, s.conn, sq.Eq{"p.stack_id": stackID})
}

// ReviseDefinition upserts the phrase's definition. Callers must not pass
// blank words; the write happens unconditionally. It returns 0 when the phrase
// does not exist.
func (s *Service) ReviseDefinition(ctx context.Context, phraseID int64, words string) (int64, error) {
	var id int64
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = ReviseDefinition(ctx, tx, phraseID, words)
		return err
	})
	if err != nil {
		return 0, err
	}
	if id != 0 {
		s.logger.Debug("Revised definition", zap.Int64("phrase_id", id))
	}
	return id, nil
}

// SetStatus updates the definition status of a phrase. Invalid statuses are
// rejected with an *apperrors.ValidationError.
func (s *Service) SetStatus(ctx context.Context, phraseID int64, status db.Status) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return SetStatus(ctx, tx, phraseID, status)
	})
}

// ReviseNotes overwrites the free-text note of a phrase.
func (s *Service) ReviseNotes(ctx context.Context, phraseID int64, text string) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return ReviseNotes(ctx, tx, phraseID, text)
	})
}

// Rephrase reconciles a phrase with new wording and clears its stale flag.
func (s *Service) Rephrase(ctx context.Context, phraseID int64, words string) (int64, error) {
	var id int64
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = Rephrase(ctx, tx, phraseID, words)
		return err
	})
	return id, err
}

// Delete removes a phrase, leaving its definition stack behind marked stale.
func (s *Service) Delete(ctx context.Context, phraseID int64) (bool, error) {
	var deleted bool
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = Delete(ctx, tx, phraseID)
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("Deleted phrase", zap.Int64("phrase_id", phraseID))
	}
	return deleted, nil
}
