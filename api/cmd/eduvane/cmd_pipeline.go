package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eduvane/api/internal/store"
	"eduvane/api/internal/types"
	"eduvane/api/internal/util"
)

func newEvaluateCmd() *cobra.Command {
	var (
		user string
		mime string
		save bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate <image-file>",
		Short: "Score a photo of student work and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			orch, err := a.pipeline()
			if err != nil {
				return err
			}

			mime = util.PickMIME(mime, "", img)
			res, err := orch.EvaluateWorkFlow(cmd.Context(), img, mime)
			if err != nil {
				return err
			}
			if !save {
				return printJSON(cmd.OutOrStdout(), res)
			}
			sub := types.Submission{
				ID:               uuid.NewString(),
				UserID:           store.NormalizeUserID(user),
				Timestamp:        time.Now().UTC(),
				ImageURL:         store.ImageRef(user, img, mime),
				EvaluationResult: res,
			}
			if err := a.store.SaveSubmission(cmd.Context(), sub); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	}
	cmd.Flags().StringVar(&user, "user", store.GuestUserID, "user id to save under")
	cmd.Flags().StringVar(&mime, "mime", "", "image MIME type (sniffed when empty)")
	cmd.Flags().BoolVar(&save, "save", false, "store the result as a submission")
	return cmd
}

func newPracticeCmd() *cobra.Command {
	var (
		user string
		save bool
	)
	cmd := &cobra.Command{
		Use:   "practice <request>",
		Short: "Generate practice questions from a free-text request",
		Example: `  eduvane practice "10 Physics problems on Newton's Laws"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			orch, err := a.pipeline()
			if err != nil {
				return err
			}

			res, err := orch.GeneratePracticeFlow(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !save {
				return printJSON(cmd.OutOrStdout(), res)
			}
			set := types.PracticeSet{
				ID:         uuid.NewString(),
				UserID:     store.NormalizeUserID(user),
				Timestamp:  time.Now().UTC(),
				Subject:    res.Intent.Subject,
				Topic:      res.Intent.Topic,
				Difficulty: res.Intent.Difficulty,
				Questions:  res.Questions,
			}
			if err := a.store.SavePracticeSet(cmd.Context(), set); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), set)
		},
	}
	cmd.Flags().StringVar(&user, "user", store.GuestUserID, "user id to save under")
	cmd.Flags().BoolVar(&save, "save", false, "store the questions as a practice set")
	return cmd
}
