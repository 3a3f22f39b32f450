package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	urlutil "github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/utils/url"
)

// errNoRecord is returned when a detail page yields nothing
var errNoRecord = errors.New("no record extracted: page failed to load or render")

// detailCmd represents the detail command
var detailCmd = &cobra.Command{
	GroupID: groupCrawl,
	Use:     "detail <url>",
	Short:   "Extract the record of one detail page",
	Long: `Loads one contest detail page and prints its record as JSON. Fields the
page does not show are null. Exits non-zero when the page fails to load or
never renders.`,
	Example: `  linkareer detail https://linkareer.com/activity/123456`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDetail,
}

func init() {
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
	detailURL := args[0]
	if err := urlutil.ValidateURL(detailURL); err != nil {
		return err
	}

	a, err := mustApp(cmd)
	if err != nil {
		return err
	}

	w, err := a.NewWorker(0)
	if err != nil {
		return err
	}
	defer w.Close()

	rec, err := w.Extractor.Extract(cmd.Context(), detailURL)
	if err != nil {
		return err
	}
	if rec == nil {
		return errNoRecord
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
