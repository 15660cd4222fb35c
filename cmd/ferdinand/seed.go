package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/dictionary"
)

func seedCommand(a *app) *cobra.Command {
	var download bool
	cmd := &cobra.Command{
		Use:   "seed-definitions [jmdict.json]",
		Short: "Define undefined phrases from a JMdict-simplified file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Dictionary
			if len(args) == 1 {
				path = args[0]
			}
			if download {
				if err := dictionary.NewDownloader(a.logger).EnsureDictionary(cmd.Context(), path); err != nil {
					return err
				}
			}

			start := time.Now()
			entries, err := dictionary.LoadJMdictSimplified(path)
			if err != nil {
				return fmt.Errorf("load dictionary: %w", err)
			}
			a.logger.Info("Dictionary loaded",
				zap.Int("entries", len(entries)),
				zap.Duration("took", time.Since(start)))

			analyzer, err := a.textAnalyzer()
			if err != nil {
				return err
			}
			seeder := dictionary.NewSeeder(dictionary.NewGlossary(entries), a.phrases, analyzer, a.logger)
			n, err := seeder.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded definitions for %d phrases\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "download the dictionary first if the file is missing")
	return cmd
}
