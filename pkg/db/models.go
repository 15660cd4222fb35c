package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/ferdinand/pkg/apperrors"
)

// Stack is a versioned slot. Its value is the newest Sentence bound to it.
type Stack struct {
	ID    int64 `db:"id"`
	Stale bool  `db:"stale"`
}

// Sentence is one immutable version of a Stack's text.
type Sentence struct {
	ID      int64  `db:"id"`
	StackID int64  `db:"stack_id"`
	Words   string `db:"words"`
}

// CurrentSentence is a stack resolved to its newest sentence.
type CurrentSentence struct {
	StackID int64  `db:"stack_id"`
	Stale   bool   `db:"stale"`
	Words   string `db:"words"`
}

// Phrase is a text span extracted from a stack, or entered on its own when
// StackID is nil.
type Phrase struct {
	ID      int64  `db:"id"`
	StackID *int64 `db:"stack_id"`
	Words   string `db:"words"`
	Stale   bool   `db:"stale"`
}

// Definition links a phrase to the stack holding its definition history.
type Definition struct {
	ID        int64     `db:"id"`
	PhraseID  int64     `db:"phrase_id"`
	StackID   int64     `db:"stack_id"`
	Timestamp time.Time `db:"timestamp"`
}

// Note is the per-phrase annotation and workflow status.
type Note struct {
	PhraseID         int64   `db:"phrase_id"`
	Words            *string `db:"words"`
	DefinitionStatus Status  `db:"definition_status"`
}

// PhraseView joins a phrase with its note and current definition.
type PhraseView struct {
	ID               int64   `db:"id" json:"id"`
	StackID          *int64  `db:"stack_id" json:"stack_id"`
	Words            string  `db:"words" json:"words"`
	Stale            bool    `db:"stale" json:"stale"`
	Notes            *string `db:"notes" json:"notes"`
	DefinitionStatus Status  `db:"definition_status" json:"definition_status"`
	DefStackID       *int64  `db:"def_stack_id" json:"def_stack_id"`
	Definition       *string `db:"definition" json:"definition"`
	DefinitionStale  *bool   `db:"definition_stale" json:"definition_stale"`
}

// Status tracks how far along a phrase's definition is.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusExploring Status = "EXPLORING"
	StatusAccepted  Status = "ACCEPTED"
	StatusStuck     Status = "STUCK"
)

// Statuses lists every accepted Status in workflow order.
var Statuses = []Status{StatusNew, StatusExploring, StatusAccepted, StatusStuck}

// Valid reports whether s is one of the accepted statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", &apperrors.ValidationError{
			Field: "definition_status",
			Value: raw,
			Err:   fmt.Errorf("%w: want one of %v", apperrors.ErrInvalidStatus, Statuses),
		}
	}
	return s, nil
}
