package cli

import (
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:         "quote <isbn>",
	Short:       "Look up buyback offers for one ISBN and print them as JSON",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{logOutputAnnotation: "stderr"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Quote(cmd.Context(), args[0])
	},
}
