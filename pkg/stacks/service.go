// Package stacks manages sentence stacks: append-only version histories whose
// newest sentence is the current value.
package stacks

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/db"
)

// Service runs each stack operation in its own transaction.
type Service struct {
	conn   *sqlx.DB
	logger *zap.Logger
}

// NewService creates a stack service over conn.
func NewService(conn *sqlx.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{conn: conn, logger: logger.Named("stacks")}
}

// Create opens a new stack holding words and returns its id.
func (s *Service) Create(ctx context.Context, words string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		var err error
		id, err = Create(ctx, tx, words)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Created stack", zap.Int64("stack_id", id))
	return id, nil
}

// Current returns the newest sentence of a stack, or nil when absent.
func (s *Service) Current(ctx context.Context, stackID int64) (*db.CurrentSentence, error) {
	return Current(ctx, s.conn, stackID)
}

// ListCurrent returns the newest sentence of every stack.
func (s *Service) ListCurrent(ctx context.Context) ([]db.CurrentSentence, error) {
	return ListCurrent(ctx, s.conn)
}

// History returns every version of a stack, oldest first.
func (s *Service) History(ctx context.Context, stackID int64) ([]db.Sentence, error) {
	return History(ctx, s.conn, stackID)
}

// Append revises a stack and re-evaluates its phrases. It returns 0 when the
// stack does not exist.
func (s *Service) Append(ctx context.Context, stackID int64, words string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		var err error
		id, err = Append(ctx, tx, stackID, words)
		return err
	})
	if err != nil {
		return 0, err
	}
	if id == 0 {
		s.logger.Debug("Append skipped, stack not found", zap.Int64("stack_id", stackID))
		return 0, nil
	}
	s.logger.Debug("Appended sentence", zap.Int64("stack_id", id))
	return id, nil
}

// MarkStale flags a stack as outdated.
func (s *Service) MarkStale(ctx context.Context, stackID int64) error {
	return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		return SetStale(ctx, tx, stackID, true)
	})
}

// MarkFresh clears a stack's stale flag.
func (s *Service) MarkFresh(ctx context.Context, stackID int64) error {
	return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		return SetStale(ctx, tx, stackID, false)
	})
}

// Delete removes a stack and its whole history. It reports whether a stack
// was removed.
func (s *Service) Delete(ctx context.Context, stackID int64) (bool, error) {
	var deleted bool
	err := db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = Delete(ctx, tx, stackID)
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("Deleted stack", zap.Int64("stack_id", stackID))
	}
	return deleted, nil
}
