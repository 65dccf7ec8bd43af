package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lab-trend-thumbnails/internal/app"
)

var (
	deriveRows       string
	deriveURL        string
	deriveHintStatus string
	deriveHintFocus  string
	deriveOut        string
	derivePersist    bool
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a thumbnail from a result set once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deriveRows != "" && deriveURL != "" {
			return fmt.Errorf("--rows and --url are mutually exclusive")
		}

		opts := app.DeriveOptions{
			RowsPath:   deriveRows,
			URL:        deriveURL,
			HintStatus: deriveHintStatus,
			HintFocus:  deriveHintFocus,
			OutPath:    deriveOut,
			Persist:    derivePersist,
		}

		return getApp().Derive(cmd.Context(), opts)
	},
}

func init() {
	deriveCmd.Flags().StringVar(&deriveRows, "rows", "", "Path to a result set JSON file")
	deriveCmd.Flags().StringVar(&deriveURL, "url", "", "Result set endpoint (defaults to config source.url)")
	deriveCmd.Flags().StringVar(&deriveHintStatus, "hint-status", "", "Override hint status (normal/high/low/unknown)")
	deriveCmd.Flags().StringVar(&deriveHintFocus, "hint-focus", "", "Override hint focus series name")
	deriveCmd.Flags().StringVar(&deriveOut, "out", "", "Write the thumbnail JSON to a file instead of stdout")
	deriveCmd.Flags().BoolVar(&derivePersist, "persist", false, "Persist the thumbnail and capture the result set")
}
