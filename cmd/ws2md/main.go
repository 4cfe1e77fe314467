package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jwtly10/ws2md/internal/cli"
	"github.com/jwtly10/ws2md/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
	vp      *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "ws2md [input] [output]",
	Short: "Convert WordStar documents to Markdown",
	Long: `ws2md reads legacy WordStar documents, classifies every line (text,
comments, headings, dot commands, page breaks) and renders the result as
Markdown or HTML.

With only an input file the result is written to stdout. Use the convert
subcommand to convert whole directory trees in place.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(debug)
		return nil
	},
	RunE: runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./ws2md.yaml or ~/.config/ws2md/ws2md.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.String("header", "", "document header handling: auto, fixed or none")
	pf.String("charset", "", "byte decoding: utf8, cp437 or 7bit")
	pf.String("format", "", "output format: markdown or html")
	pf.Bool("comments", false, "keep comment lines as HTML comments")
	pf.Bool("no-backup", false, "do not back up existing output files")
	pf.Int("keep-backups", 0, "backups kept per output file (0 keeps all)")
	pf.Bool("no-header", false, "omit the generated-by comment")
}

// flagKeys binds command line flags onto config keys
var flagKeys = map[string]string{
	"header":       config.KeyHeader,
	"charset":      config.KeyCharset,
	"format":       config.KeyFormat,
	"comments":     config.KeyKeepComments,
	"no-backup":    config.KeyNoBackup,
	"keep-backups": config.KeyKeepBackups,
	"no-header":    config.KeyNoHeader,
	"workers":      config.KeyWorkers,
	"addr":         config.KeyAddr,
}

func initConfig() {
	vp = config.NewViper(cfgFile)
}

// loadConfig merges flags, environment and config file for cmd
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if vp == nil {
		initConfig()
	}
	for name, key := range flagKeys {
		// Only flags the user set override lower layers
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := vp.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	if err := config.ReadFile(vp); err != nil {
		return config.Config{}, err
	}
	if used := vp.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", "path", used)
	}

	cfg := config.Load(vp)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cli.IsMalformed(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
