package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/config"
	"github.com/japaniel/ferdinand/pkg/db"
	"github.com/japaniel/ferdinand/pkg/graph"
	"github.com/japaniel/ferdinand/pkg/logging"
	"github.com/japaniel/ferdinand/pkg/phrases"
	"github.com/japaniel/ferdinand/pkg/stacks"
	"github.com/japaniel/ferdinand/pkg/text"
)

// app holds what every subcommand needs. It is filled in by the root
// command's pre-run hook.
type app struct {
	configPath string
	dbPath     string

	cfg     *config.Config
	logger  *zap.Logger
	conn    *sqlx.DB
	stacks  *stacks.Service
	phrases *phrases.Service
	graph   *graph.Assembler

	analyzer *text.Analyzer
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger

	conn, err := db.Open(ctx, db.Options{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout}, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Path, err)
	}
	a.conn = conn
	a.stacks = stacks.NewService(conn, logger)
	a.phrases = phrases.NewService(conn, logger)
	a.graph = graph.NewAssembler(conn)
	return nil
}

func (a *app) close() {
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// textAnalyzer loads the tokenizer dictionary on first use.
func (a *app) textAnalyzer() (*text.Analyzer, error) {
	if a.analyzer == nil {
		an, err := text.NewAnalyzer()
		if err != nil {
			return nil, fmt.Errorf("create analyzer: %w", err)
		}
		a.analyzer = an
	}
	return a.analyzer, nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ferdinand",
		Short:         "Versioned phrase and definition knowledge base",
		Long:          "ferdinand keeps phrases, the sentences they come from and their definitions.\nEvery sentence revision is kept; phrases whose source changed are flagged stale.\n\n" + config.Usage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Shell completion scripts need no database.
			if p := cmd.Parent(); p != nil && p.Name() == "completion" {
				return nil
			}
			return a.init(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the SQLite database (overrides config)")

	rootCmd.AddCommand(
		migrateCommand(a),
		sentenceCommand(a),
		phraseCommand(a),
		graphCommand(a),
		importCommand(a),
		seedCommand(a),
	)
	return rootCmd
}

// execute runs the CLI with args and releases its resources.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the database has already applied pending migrations.
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", a.cfg.Database.Path)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// joinWords turns trailing arguments into one text value, rejecting blanks.
func joinWords(args []string, what string) (string, error) {
	s := strings.TrimSpace(strings.Join(args, " "))
	if s == "" {
		return "", fmt.Errorf("%s must not be blank", what)
	}
	return s, nil
}
