package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lab-trend-thumbnails/internal/app"
)

var (
	rederiveFrom   string
	rederiveTo     string
	rederiveDryRun bool
)

var rederiveCmd = &cobra.Command{
	Use:   "rederive",
	Short: "Re-run derivation over captured result sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rederiveFrom == "" || rederiveTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.RFC3339, rederiveFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.RFC3339, rederiveTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}

		opts := app.RederiveOptions{
			From:   from,
			To:     to,
			DryRun: rederiveDryRun,
		}

		return getApp().Rederive(cmd.Context(), opts)
	},
}

func init() {
	rederiveCmd.Flags().StringVar(&rederiveFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	rederiveCmd.Flags().StringVar(&rederiveTo, "to", "", "End timestamp (RFC3339, exclusive)")
	rederiveCmd.Flags().BoolVar(&rederiveDryRun, "dry-run", false, "Run without writing to storage")
}
