package cmd

import (
	"context"
	"fmt"

	"github.com/brogergvhs/noveld/internal/toc"
	"github.com/brogergvhs/noveld/internal/util"

	"github.com/spf13/cobra"
)

var tocCmd = &cobra.Command{
	Use:   "toc",
	Short: "Resolve the table of contents and list the chapters found",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(sourceOptions())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := util.SetupInterruptHandler(context.Background(), ".")
		defer stop()

		res, err := toc.NewResolver(s.fetcher, s.log).Resolve(ctx, s.cfg)
		if err != nil {
			return err
		}

		all, err := arrange(res.Chapters, s.cfg)
		if err != nil {
			return err
		}

		d := res.Details
		for _, row := range [][2]string{
			{"Title", d.Title}, {"Author", d.Author}, {"Cover", d.CoverURL},
		} {
			if row[1] != "" {
				fmt.Printf("%-7s %s\n", row[0]+":", row[1])
			}
		}
		if d.Synopsis != "" {
			fmt.Printf("\n%s\n", d.Synopsis)
		}

		fmt.Printf("\n%d chapters on %d page(s):\n\n", len(all), res.Pages)
		printStubs(all)
		return nil
	},
}

func init() {
	addSourceFlags(tocCmd)
	addArrangeFlags(tocCmd)
	rootCmd.AddCommand(tocCmd)
}
