package cli

import "github.com/spf13/cobra"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll watched products and alert on price drops",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context())
	},
}
