package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/selector"

	"github.com/spf13/cobra"
)

var (
	flagChapterURL string
	flagSave       bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Guess selectors from a TOC page and a first chapter page",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(sourceOptions())
		if err != nil {
			return err
		}
		defer s.Close()
		cfg := s.cfg

		if cfg.Source.TOCURL == "" {
			return errors.New("missing --url and no source.toc_url in config")
		}
		if flagChapterURL == "" {
			return errors.New("--chapter-url is required")
		}

		d := selector.NewDetector(s.fetcher, cfg.Network.ProxyURL, cfg.Network.Timeout)
		found, err := d.Detect(context.Background(), cfg.Source.TOCURL, flagChapterURL)

		fields := found.Fields()
		if len(fields) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEY\tSELECTOR")
			for _, f := range fields {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", f.Key, f.Value)
			}
			_ = w.Flush()
		}
		if err != nil {
			return err
		}

		if !flagSave {
			return nil
		}
		return saveDetected(found)
	},
}

// saveDetected writes found into the active profile after confirmation.
func saveDetected(found selector.Detected) error {
	path, err := config.ActiveConfigPath()
	if err != nil {
		return fmt.Errorf("no profile to save into: %w", err)
	}

	fmt.Println()
	if !confirm(fmt.Sprintf("Write these selectors to %s", path)) {
		fmt.Println("Aborted.")
		return nil
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	found.Apply(cfg)
	if cfg.Source.TOCURL == "" {
		cfg.Source.TOCURL = flagURL
	}

	if err := config.SaveYAML(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}

func init() {
	addSourceFlags(detectCmd)
	detectCmd.Flags().StringVar(&flagChapterURL, "chapter-url", "", "URL of a typical chapter page")
	detectCmd.Flags().BoolVar(&flagSave, "save", false, "write the detected selectors to the active profile")
	rootCmd.AddCommand(detectCmd)
}
