package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lab-trend-thumbnails/internal/app"
)

var (
	exportRows      string
	exportURL       string
	exportFocus     string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a focus series as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportRows != "" && exportURL != "" {
			return fmt.Errorf("--rows and --url are mutually exclusive")
		}

		opts := app.ExportOptions{
			RowsPath:  exportRows,
			URL:       exportURL,
			Focus:     exportFocus,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRows, "rows", "", "Path to a result set JSON file")
	exportCmd.Flags().StringVar(&exportURL, "url", "", "Result set endpoint (defaults to config source.url)")
	exportCmd.Flags().StringVar(&exportFocus, "focus", "", "Series to export (defaults to the hint focus)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
