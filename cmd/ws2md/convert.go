package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jwtly10/ws2md"
	"github.com/jwtly10/ws2md/internal/cli"
	"github.com/jwtly10/ws2md/internal/transformer"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert WordStar files or directories in place",
	Long: `Convert writes the converted form of every given file next to it, swapping
the extension for .md or .html. Directories are walked recursively for
WordStar files (.ws, .ws3 to .ws7, .wsd), honouring .gitignore when the
directory is a git repository. Existing outputs are backed up first.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Int("workers", 0, "files converted concurrently (default 4)")
	rootCmd.AddCommand(convertCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := cfg.TransformOptions()

	if len(args) == 2 {
		p := cli.NewProcessor(cli.ProcessorOptions{Transform: opts, Workers: 1})
		res, err := p.ProcessFileTo(args[0], args[1])
		if err != nil {
			return err
		}
		slog.Info("converted", "source", args[0], "output", res.OutPath, "duration", res.Duration)
		return nil
	}

	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer in.Close()

	_, err = transformer.NewTransformer(opts).TransformToWriter(transformer.WordStarSource{
		Content: in,
		Metadata: ws2md.MetaData{
			Source:    args[0],
			AbsSource: ws2md.MustAbs(args[0]),
		},
	}, cmd.OutOrStdout())
	return err
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more WordStar files or directories")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	slog.Debug("converting", "options", cfg.TransformOptions().Pretty(), "workers", cfg.Workers)

	p := cli.NewProcessor(cli.ProcessorOptions{
		Transform: cfg.TransformOptions(),
		Workers:   cfg.Workers,
		MaxFiles:  cfg.MaxFiles,
	})

	start := time.Now()
	converted := 0
	var failed []error
	for _, path := range args {
		results, err := p.ProcessPath(path)
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.Path, r.OutPath)
		}
		converted += len(results)
		if err != nil {
			slog.Error("conversion failed", "path", path, "error", err)
			failed = append(failed, err)
		}
	}

	slog.Debug("conversion finished", "converted", converted, "duration", time.Since(start))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d path(s) failed: %w", len(failed), len(args), failed[0])
	}
	return nil
}
