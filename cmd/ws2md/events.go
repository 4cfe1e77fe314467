package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jwtly10/ws2md"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var eventsCmd = &cobra.Command{
	Use:   "events <file>",
	Short: "Print the classified line events of a WordStar file",
	Long: `Events classifies a WordStar file and prints the resulting event sequence
(text runs, comments, headings, dot commands, page breaks and the final
end of file event) as YAML or JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().String("output", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	doc, err := ws2md.NewParser(cfg.ParseOptions()).ParseWordStarDoc(f, ws2md.MetaData{
		Source:    args[0],
		AbsSource: ws2md.MustAbs(args[0]),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported output %q: use yaml or json", format)
	}
}
