package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listingPage int

// urlsCmd represents the urls command
var urlsCmd = &cobra.Command{
	GroupID: groupCrawl,
	Use:     "urls",
	Short:   "Print the detail URLs of one listing page",
	Long: `Loads a single listing page and prints its detail URLs, one per line, in
page order with duplicates removed. A page that fails to load or render
prints nothing.`,
	Example: `  # Detail links of the third listing page
  linkareer urls --page 3`,
	Args: cobra.NoArgs,
	RunE: runURLs,
}

func init() {
	rootCmd.AddCommand(urlsCmd)

	urlsCmd.Flags().IntVar(&listingPage, "page", 1, "Listing page number (1-based)")
}

func runURLs(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd)
	if err != nil {
		return err
	}

	w, err := a.NewWorker(0)
	if err != nil {
		return err
	}
	defer w.Close()

	urls, err := w.Collector.CollectURLs(cmd.Context(), listingPage)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		log.Warn().Int("page", listingPage).Msg("No detail URLs found")
	}

	out := cmd.OutOrStdout()
	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	return nil
}
