package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/spf13/cobra"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/orchestrator"
	"github.com/kbukum/voxkit/transcription"
)

type transcribeOptions struct {
	format     string
	output     string
	language   string
	modelKind  string
	locator    string
	params     string
	noFallback bool
}

func newTranscribeCmd() *cobra.Command {
	opts := &transcribeOptions{}
	c := &cobra.Command{
		Use:   "transcribe <file>...",
		Short: "Transcribe one or more audio files",
		Long:  "Transcribe audio files with the configured models. Several files run as one batch; a failed file does not stop the others.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return rt.app.RunTask(cmd.Context(), func(ctx context.Context) error {
				return runTranscribe(ctx, rt.orch, opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			})
		},
	}
	c.Flags().StringVarP(&opts.format, "format", "f", "", "declared input format (detected from content when empty)")
	c.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or srt")
	c.Flags().StringVarP(&opts.language, "language", "l", "", "language hint passed to the model")
	c.Flags().StringVarP(&opts.modelKind, "model", "m", "", "primary model kind (overrides config)")
	c.Flags().StringVar(&opts.locator, "locator", "default", "primary model locator, used with --model")
	c.Flags().StringVar(&opts.params, "params", "", "model parameters as a JSON object")
	c.Flags().BoolVar(&opts.noFallback, "no-fallback", false, "disable the fallback model")
	return c
}

func (o *transcribeOptions) models(cfg orchestrator.Config) orchestrator.Models {
	models := cfg.Models()
	if o.modelKind != "" {
		models.Primary = transcription.ModelConfig{
			Kind:            o.modelKind,
			Locator:         o.locator,
			Parameters:      models.Primary.Parameters,
			FallbackEnabled: models.Primary.FallbackEnabled,
		}
	}
	if o.noFallback {
		models.Fallback = nil
	}
	return models
}

func (o *transcribeOptions) requests(args []string) ([]transcription.AudioRequest, error) {
	var format audio.Format
	if o.format != "" {
		f, err := audio.ParseFormat(o.format)
		if err != nil {
			return nil, err
		}
		format = f
	}
	output, err := transcription.ParseOutputFormat(o.output)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if o.params != "" {
		if err := json.Unmarshal([]byte(o.params), &params); err != nil {
			return nil, fmt.Errorf("--params must be a JSON object: %w", err)
		}
	}
	if o.language != "" {
		params["language"] = o.language
	}

	reqs := make([]transcription.AudioRequest, len(args))
	for i, path := range args {
		reqs[i] = transcription.AudioRequest{
			Source:       transcription.Source{Path: path},
			Format:       format,
			OutputFormat: output,
			Parameters:   maps.Clone(params),
			Metadata:     map[string]any{"file": path},
		}
	}
	return reqs, nil
}

func runTranscribe(ctx context.Context, orch *orchestrator.Orchestrator, opts *transcribeOptions, args []string, stdout, stderr io.Writer) error {
	reqs, err := opts.requests(args)
	if err != nil {
		return err
	}
	results := orch.ProcessBatchWith(ctx, reqs, opts.models(orch.Config()))
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", args[i], r.Err)
			continue
		}
		body, err := r.Result.Render(reqs[i].OutputFormat)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", args[i], err)
			continue
		}
		if len(args) > 1 && reqs[i].OutputFormat != transcription.OutputJSON {
			fmt.Fprintf(stdout, "==> %s <==\n", args[i])
		}
		stdout.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			fmt.Fprintln(stdout)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
