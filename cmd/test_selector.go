package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/brogergvhs/noveld/internal/selector"

	"github.com/spf13/cobra"
)

var (
	flagTestSelector string
	flagTestType     string
	flagTestAttr     string
	flagTestMulti    bool
)

var testSelectorCmd = &cobra.Command{
	Use:   "test-selector [key]",
	Short: "Run one configured or ad-hoc selector against a live page",
	Long: "Run one selector against a live page and print what it extracts.\n\n" +
		"With a key the selector comes from the active profile. Keys: " + strings.Join(selector.Keys(), ", ") + ".\n" +
		"With --selector the query is ad-hoc and runs against --chapter-url, or the TOC URL when that is empty.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(sourceOptions())
		if err != nil {
			return err
		}
		defer s.Close()
		cfg := s.cfg

		var q selector.Query
		switch {
		case flagTestSelector != "":
			q = selector.Query{
				URL:        flagChapterURL,
				Selector:   flagTestSelector,
				ReturnType: selector.ReturnType(flagTestType),
				Attribute:  flagTestAttr,
				Multi:      flagTestMulti,
			}
			if q.URL == "" {
				q.URL = cfg.Source.TOCURL
			}
		case len(args) == 1:
			if q, err = selector.QueryFor(cfg, args[0], flagChapterURL); err != nil {
				return err
			}
		default:
			return fmt.Errorf("give a selector key (%s) or --selector", strings.Join(selector.Keys(), ", "))
		}

		tester := selector.NewTester(s.fetcher, cfg.Network.ProxyURL, cfg.Network.Timeout)
		res, err := tester.Test(context.Background(), q)
		if err != nil {
			return err
		}

		s.log.Debugf("%q on %s matched %d value(s)", q.Selector, q.URL, len(res.Values))
		fmt.Println(res.String())
		return nil
	},
}

func init() {
	addSourceFlags(testSelectorCmd)
	testSelectorCmd.Flags().StringVar(&flagChapterURL, "chapter-url", "", "chapter page for chapter selectors")
	testSelectorCmd.Flags().StringVar(&flagTestSelector, "selector", "", "ad-hoc CSS selector")
	testSelectorCmd.Flags().StringVar(&flagTestType, "type", string(selector.ReturnText), "what to extract: text, html or attribute")
	testSelectorCmd.Flags().StringVar(&flagTestAttr, "attr", "", "attribute name for --type attribute")
	testSelectorCmd.Flags().BoolVar(&flagTestMulti, "multi", false, "return every match instead of the first")
	rootCmd.AddCommand(testSelectorCmd)
}
