package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/ferdinand/pkg/db"
	"github.com/japaniel/ferdinand/pkg/text"
)

func phraseCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "phrase",
		Aliases: []string{"p"},
		Short:   "Manage phrases and their definitions",
	}

	var addStack int64
	addCmd := &cobra.Command{
		Use:   "add <words>...",
		Short: "Create a phrase, optionally taken from a stack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := joinWords(args, "phrase")
			if err != nil {
				return err
			}
			var stackID *int64
			if cmd.Flags().Changed("stack") {
				if _, err := a.stackByID(cmd, addStack); err != nil {
					return err
				}
				stackID = &addStack
			}
			return a.createPhrase(cmd, stackID, words)
		},
	}
	addCmd.Flags().Int64Var(&addStack, "stack", 0, "stack the phrase was taken from")

	var listStack int64
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				views []db.PhraseView
				err   error
			)
			if cmd.Flags().Changed("stack") {
				views, err = a.phrases.ListForStack(cmd.Context(), listStack)
			} else {
				views, err = a.phrases.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			printPhrases(cmd.OutOrStdout(), views)
			return nil
		},
	}
	listCmd.Flags().Int64Var(&listStack, "stack", 0, "only phrases taken from this stack")

	cmd.AddCommand(
		addCmd,
		listCmd,
		&cobra.Command{
			Use:   "pick <stack> <index>...",
			Short: "Create a phrase from words of a stack's current sentence",
			Long:  "Create a phrase from words of a stack's current sentence.\nIndices are those printed by \"sentence words\".",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cur, err := a.currentSentence(cmd, args[0])
				if err != nil {
					return err
				}
				indices := make([]int, 0, len(args)-1)
				for _, raw := range args[1:] {
					i, err := strconv.Atoi(raw)
					if err != nil {
						return fmt.Errorf("invalid word index %q", raw)
					}
					indices = append(indices, i)
				}
				analyzer, err := a.textAnalyzer()
				if err != nil {
					return err
				}
				words, err := text.PhraseFromSelection(cur.Words, analyzer.Words(cur.Words), indices)
				if err != nil {
					return err
				}
				stackID := cur.StackID
				return a.createPhrase(cmd, &stackID, words)
			},
		},
		&cobra.Command{
			Use:   "show <phrase>",
			Short: "Show a phrase with its definition and notes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.getPhrase(cmd, args[0])
				if err != nil {
					return err
				}
				printPhrase(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "define <phrase> <words>...",
			Short: "Write a new revision of a phrase's definition",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				words, err := joinWords(args[1:], "definition")
				if err != nil {
					return err
				}
				got, err := a.phrases.ReviseDefinition(cmd.Context(), id, words)
				if err != nil {
					return err
				}
				if got == 0 {
					return fmt.Errorf("phrase %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Defined phrase %d\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:       "status <phrase> <status>",
			Short:     "Set the definition status (NEW, EXPLORING, ACCEPTED, STUCK)",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"NEW", "EXPLORING", "ACCEPTED", "STUCK"},
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := db.ParseStatus(args[1])
				if err != nil {
					return err
				}
				v, err := a.getPhrase(cmd, args[0])
				if err != nil {
					return err
				}
				return a.phrases.SetStatus(cmd.Context(), v.ID, status)
			},
		},
		&cobra.Command{
			Use:   "notes <phrase> <text>...",
			Short: "Replace a phrase's notes",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.getPhrase(cmd, args[0])
				if err != nil {
					return err
				}
				notes, err := joinWords(args[1:], "notes")
				if err != nil {
					return err
				}
				return a.phrases.ReviseNotes(cmd.Context(), v.ID, notes)
			},
		},
		&cobra.Command{
			Use:   "rephrase <phrase> <words>...",
			Short: "Replace a phrase's words and clear its stale flag",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				words, err := joinWords(args[1:], "phrase")
				if err != nil {
					return err
				}
				got, err := a.phrases.Rephrase(cmd.Context(), id, words)
				if err != nil {
					return err
				}
				if got == 0 {
					return fmt.Errorf("phrase %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rephrased phrase %d\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <phrase>",
			Short: "Delete a phrase, its notes and definition links",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ok, err := a.phrases.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("phrase %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted phrase %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) createPhrase(cmd *cobra.Command, stackID *int64, words string) error {
	id, err := a.phrases.Create(cmd.Context(), stackID, words)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created phrase %d: %s\n", id, words)
	return nil
}

func (a *app) getPhrase(cmd *cobra.Command, raw string) (*db.PhraseView, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	v, err := a.phrases.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("phrase %d not found", id)
	}
	return v, nil
}

func optID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func printPhrases(out io.Writer, views []db.PhraseView) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHRASE\tSTACK\tSTALE\tSTATUS\tWORDS\tDEFINITION")
	for _, v := range views {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, optID(v.StackID), yesNo(v.Stale), v.DefinitionStatus, v.Words, optString(v.Definition))
	}
	w.Flush()
}

func printPhrase(out io.Writer, v *db.PhraseView) {
	fmt.Fprintf(out, "Phrase:     %d\n", v.ID)
	fmt.Fprintf(out, "Words:      %s\n", v.Words)
	fmt.Fprintf(out, "Stack:      %s\n", optID(v.StackID))
	fmt.Fprintf(out, "Stale:      %s\n", yesNo(v.Stale))
	fmt.Fprintf(out, "Status:     %s\n", v.DefinitionStatus)
	if v.Definition != nil {
		defStale := v.DefinitionStale != nil && *v.DefinitionStale
		fmt.Fprintf(out, "Definition: %s (stack %s, stale %s)\n", *v.Definition, optID(v.DefStackID), yesNo(defStale))
	}
	if v.Notes != nil && *v.Notes != "" {
		fmt.Fprintf(out, "Notes:      %s\n", *v.Notes)
	}
}
