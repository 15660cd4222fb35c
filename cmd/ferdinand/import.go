package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/ferdinand/pkg/ingest"
)

func importCommand(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "import <url|file>",
		Short: "Create one stack per sentence of an article",
		Long: "Create one stack per sentence of an article.\n" +
			"URLs and HTML files go through article extraction; use --text for plain text files.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := a.textAnalyzer()
			if err != nil {
				return err
			}
			im := ingest.NewImporter(a.conn, analyzer, a.logger)
			ic := a.cfg.Import
			im.Workers = ic.Workers
			im.BatchSize = ic.BatchSize
			im.FlushInterval = ic.FlushInterval
			im.MaxBodyBytes = ic.MaxBodyBytes
			im.Client.Timeout = ic.Timeout
			if ic.UserAgent != "" {
				im.UserAgent = ic.UserAgent
			}

			start := time.Now()
			source := args[0]
			var res *ingest.Result
			switch {
			case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
				res, err = im.ImportURL(cmd.Context(), source)
			case plain:
				var body []byte
				body, err = os.ReadFile(source)
				if err != nil {
					return err
				}
				res, err = im.ImportText(cmd.Context(), string(body))
			default:
				res, err = importFile(cmd, im, source)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Title != "" {
				fmt.Fprintf(out, "Title: %s\n", res.Title)
			}
			fmt.Fprintf(out, "Imported %d of %d sentences in %v\n",
				len(res.StackIDs), res.Sentences, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "text", false, "treat the file as plain text instead of HTML")
	return cmd
}

func importFile(cmd *cobra.Command, im *ingest.Importer, path string) (*ingest.Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.ImportHTML(cmd.Context(), f, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
}
