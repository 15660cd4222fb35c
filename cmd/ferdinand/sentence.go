package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/ferdinand/pkg/db"
)

func sentenceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sentence",
		Aliases: []string{"s"},
		Short:   "Manage sentence stacks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <words>...",
			Short: "Create a stack with its first sentence",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				words, err := joinWords(args, "sentence")
				if err != nil {
					return err
				}
				id, err := a.stacks.Create(cmd.Context(), words)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created stack %d\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <stack>",
			Short: "Show the current sentence of a stack",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := a.currentSentence(cmd, args[0])
				if err != nil {
					return err
				}
				printSentences(cmd.OutOrStdout(), []db.CurrentSentence{*cur})
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the current sentence of every stack",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rows, err := a.stacks.ListCurrent(cmd.Context())
				if err != nil {
					return err
				}
				printSentences(cmd.OutOrStdout(), rows)
				return nil
			},
		},
		&cobra.Command{
			Use:   "history <stack>",
			Short: "Show every revision of a stack, oldest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				history, err := a.stacks.History(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(history) == 0 {
					return fmt.Errorf("stack %d not found", id)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "REV\tSENTENCE\tWORDS")
				for i, s := range history {
					fmt.Fprintf(w, "%d\t%d\t%s\n", i+1, s.ID, s.Words)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "revise <stack> <words>...",
			Short: "Push a new revision onto a stack",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				words, err := joinWords(args[1:], "sentence")
				if err != nil {
					return err
				}
				got, err := a.stacks.Append(cmd.Context(), id, words)
				if err != nil {
					return err
				}
				if got == 0 {
					return fmt.Errorf("stack %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revised stack %d\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "words <stack>",
			Short: "List the selectable words of a stack's current sentence",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := a.currentSentence(cmd, args[0])
				if err != nil {
					return err
				}
				analyzer, err := a.textAnalyzer()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tWORD\tBASE\tPOS")
				for _, word := range analyzer.Words(cur.Words) {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", word.Index, word.Surface, word.BaseForm, word.PrimaryPOS)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "stale <stack>",
			Short: "Flag a stack as stale",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := a.currentSentence(cmd, args[0])
				if err != nil {
					return err
				}
				return a.stacks.MarkStale(cmd.Context(), cur.StackID)
			},
		},
		&cobra.Command{
			Use:   "fresh <stack>",
			Short: "Clear a stack's stale flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := a.currentSentence(cmd, args[0])
				if err != nil {
					return err
				}
				return a.stacks.MarkFresh(cmd.Context(), cur.StackID)
			},
		},
		&cobra.Command{
			Use:   "delete <stack>",
			Short: "Delete a stack and its history",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ok, err := a.stacks.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("stack %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted stack %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) currentSentence(cmd *cobra.Command, raw string) (*db.CurrentSentence, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	return a.stackByID(cmd, id)
}

func (a *app) stackByID(cmd *cobra.Command, id int64) (*db.CurrentSentence, error) {
	cur, err := a.stacks.Current(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("stack %d not found", id)
	}
	return cur, nil
}

func printSentences(out io.Writer, rows []db.CurrentSentence) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STACK\tSTALE\tWORDS")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.StackID, yesNo(r.Stale), r.Words)
	}
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
