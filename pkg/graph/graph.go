// Package graph projects stacks and phrase-definition links into a node/edge
// view for visualisation.
package graph

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/japaniel/ferdinand/pkg/db"
	"github.com/japaniel/ferdinand/pkg/phrases"
	"github.com/japaniel/ferdinand/pkg/stacks"
)

// Node is a stack resolved to its current sentence.
type Node struct {
	ID    int64  `json:"id" yaml:"id"`
	Words string `json:"words" yaml:"words"`
}

// Edge links the stack a phrase came from to the stack defining it. Target is
// nil for phrases without a definition, Source for phrases entered on their own.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source *int64 `json:"source" yaml:"source"`
	Target *int64 `json:"target" yaml:"target"`
	Stale  bool   `json:"stale" yaml:"stale"`
}

// Graph is the whole projection.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

type edgeRow struct {
	Words      string `db:"words"`
	StackID    *int64 `db:"stack_id"`
	DefStackID *int64 `db:"def_stack_id"`
	Stale      bool   `db:"stale"`
}

// Assembler builds graphs from the current database state.
type Assembler struct {
	conn *sqlx.DB
}

// NewAssembler creates an Assembler reading from conn.
func NewAssembler(conn *sqlx.DB) *Assembler {
	return &Assembler{conn: conn}
}

// Assemble reads nodes and edges from one snapshot. It never writes and
// does not hold up writers while it runs.
func (a *Assembler) Assemble(ctx context.Context) (*Graph, error) {
	var g *Graph
	err := db.WithReadTx(ctx, a.conn, func(ex db.Executor) error {
		var err error
		g, err = Build(ctx, ex)
		return err
	})
	return g, err
}

// Build assembles the graph using ex.
func Build(ctx context.Context, ex db.Executor) (*Graph, error) {
	current, err := stacks.ListCurrent(ctx, ex)
	if err != nil {
		return nil, err
	}

	var rows []edgeRow
	q := db.Builder.
		Select("p.words", "p.stack_id", "d.stack_id AS def_stack_id", "p.stale").
		From("phrases p").
		LeftJoin(phrases.LatestDefinition).
		OrderBy("p.id")
	if err := db.Select(ctx, ex, &rows, q); err != nil {
		return nil, fmt.Errorf("list phrase definition links: %w", err)
	}

	g := &Graph{
		Nodes: make([]Node, 0, len(current)),
		Edges: make([]Edge, 0, len(rows)),
	}
	for _, c := range current {
		g.Nodes = append(g.Nodes, Node{ID: c.StackID, Words: c.Words})
	}
	for _, r := range rows {
		g.Edges = append(g.Edges, Edge{ID: r.Words, Source: r.StackID, Target: r.DefStackID, Stale: r.Stale})
	}
	return g, nil
}
