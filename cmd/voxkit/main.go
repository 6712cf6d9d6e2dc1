package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "voxkit",
		Short:         "Batch audio transcription with pluggable models",
		Long:          "voxkit normalizes audio, runs it through a primary transcription model with a single fallback and reports the outcome of every request.",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newFormatsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
