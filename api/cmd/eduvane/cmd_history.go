package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"eduvane/api/internal/config"
	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [user]",
		Short: "List saved submissions and practice sets, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := store.GuestUserID
			if len(args) == 1 {
				user = args[0]
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			subs, err := a.store.ListSubmissions(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			sets, err := a.store.ListPracticeSets(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), subs, sets)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "entries per list")
	return cmd
}

func writeHistory(w io.Writer, subs []types.Submission, sets []types.PracticeSet) {
	fmt.Fprintf(w, "Submissions (%d):\n", len(subs))
	for _, s := range subs {
		fmt.Fprintf(w, "  %s  %-10s %-24s %5.0f  %s\n",
			s.Timestamp.Format("2006-01-02 15:04"), s.Subject, s.Topic, s.Score, s.ID)
	}
	fmt.Fprintf(w, "Practice sets (%d):\n", len(sets))
	for _, p := range sets {
		fmt.Fprintf(w, "  %s  %-10s %-24s %-6s %2d questions  %s\n",
			p.Timestamp.Format("2006-01-02 15:04"), p.Subject, p.Topic, p.Difficulty, len(p.Questions), p.ID)
	}
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate providers, models and credentials without calling any model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fast:      %s %s\n", cfg.Fast.Provider, cfg.Fast.Model)
			fmt.Fprintf(out, "reasoning: %s %s\n", cfg.Reasoning.Provider, cfg.Reasoning.Model)
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
