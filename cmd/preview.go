package cmd

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/packaging"

	"github.com/spf13/cobra"
)

var flagPreviewHTML bool

var previewCmd = &cobra.Command{
	Use:   "preview <chapter-url>",
	Short: "Fetch, stitch and clean a single chapter and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(sourceOptions())
		if err != nil {
			return err
		}
		defer s.Close()

		url := args[0]
		p, err := chapters.NewContentResolver(s.fetcher, s.log).
			Resolve(context.Background(), url, mapset.NewSet(url), s.cfg)
		if err != nil {
			return err
		}

		cleaned, err := chapters.Clean(p.Content, p.FirstPage, s.cfg)
		if err != nil {
			return err
		}

		if cleaned.Title != "" {
			fmt.Printf("# %s\n", cleaned.Title)
		}
		fmt.Printf("(%d page(s))\n\n", p.Pages)

		if flagPreviewHTML {
			fmt.Println(cleaned.Content)
		} else {
			fmt.Println(packaging.HTMLToText(cleaned.Content))
		}
		return nil
	},
}

func init() {
	addSourceFlags(previewCmd)
	previewCmd.Flags().BoolVar(&flagPreviewHTML, "html", false, "print the cleaned markup instead of plain text")
	rootCmd.AddCommand(previewCmd)
}
