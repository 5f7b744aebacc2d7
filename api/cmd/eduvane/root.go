package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eduvane",
		Short: "Score photographed student work and generate practice questions",
		Long: "eduvane runs a three-stage pipeline (perception, interpretation, reasoning)\n" +
			"over hosted generative models. Configure it with environment variables or\n" +
			"a YAML file named by EDUVANE_CONFIG.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.AddCommand(
		newServeCmd(),
		newBotCmd(),
		newEvaluateCmd(),
		newPracticeCmd(),
		newHistoryCmd(),
		newCheckConfigCmd(),
	)
	return root
}
