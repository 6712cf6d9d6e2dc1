package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/audio"
)

func newConvertCmd() *cobra.Command {
	var to, output string
	c := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert an audio file to another supported format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := audio.ParseFormat(to)
			if err != nil {
				return err
			}
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg.Audio.ApplyDefaults()
			resolver := audio.NewResolver(cfg.Audio)
			return runConvert(cmd.Context(), resolver, args[0], target, output, cmd.OutOrStdout())
		},
	}
	c.Flags().StringVar(&to, "to", "", "target format")
	c.Flags().StringVarP(&output, "output", "o", "", "output path (default: input path with the target extension)")
	_ = c.MarkFlagRequired("to")
	return c
}

// runConvert writes src converted to target at output. A source already in
// the target format is copied unless output is src itself.
func runConvert(ctx context.Context, resolver *audio.Resolver, src string, target audio.Format, output string, stdout io.Writer) error {
	if output == "" {
		output = strings.TrimSuffix(src, filepath.Ext(src)) + target.Extension()
	}

	n, err := resolver.ConvertIfNeeded(ctx, audio.Handle{Path: src}, target)
	if err != nil {
		return err
	}
	defer n.Release()

	if !n.Converted && samePath(src, output) {
		fmt.Fprintf(stdout, "%s: already %s\n", src, target)
		return nil
	}
	if samePath(src, output) {
		return fmt.Errorf("refusing to overwrite %s; pass --output", src)
	}
	if err := copyFile(n.Path, output); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%s) -> %s (%s)\n", src, n.Source, output, target)
	return nil
}

func samePath(a, b string) bool {
	a, errA := filepath.Abs(a)
	b, errB := filepath.Abs(b)
	return errA == nil && errB == nil && a == b
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
