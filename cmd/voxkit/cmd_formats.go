package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/transcription"
)

func newDetectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "detect <file>",
		Short: "Detect an audio file's format from its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg.Audio.ApplyDefaults()
			resolver := audio.NewResolver(cfg.Audio)

			path := args[0]
			format, ok, err := resolver.DetectFormat(path)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: format not recognized", path)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s (%s)\n", path, format, format.MIMEType())

			if withMeta, _ := cmd.Flags().GetBool("metadata"); withMeta {
				meta, err := resolver.Metadata(cmd.Context(), path)
				if err != nil {
					return err
				}
				return printJSON(out, meta)
			}
			return nil
		},
	}
	c.Flags().Bool("metadata", false, "also print duration, sample rate and channels")
	return c
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported input and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printFormats(cmd.OutOrStdout())
		},
	}
}

func printFormats(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tMIME TYPE")
	for _, f := range audio.SupportedFormats {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f, f.Extension(), f.MIMEType())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprint(w, "\nOutput formats:")
	for _, f := range transcription.OutputFormats {
		fmt.Fprintf(w, " %s", f)
	}
	fmt.Fprintln(w)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
