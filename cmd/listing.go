package cmd

import (
	"github.com/spf13/cobra"
)

var listingCmd = &cobra.Command{
	Use:   "listing",
	Short: "Print the file picker descriptor and supported return types",
	RunE:  runListing,
}

func init() {
	rootCmd.AddCommand(listingCmd)
}

func runListing(cmd *cobra.Command, args []string) error {
	service, err := loadService(cmd.Context())
	if err != nil {
		return err
	}

	plugin := service.Plugin()
	returnTypes := plugin.SupportedReturnTypes()

	return printJSON(map[string]any{
		"listing":     plugin.Listing("", ""),
		"returntypes": int(returnTypes),
		"type":        returnTypes.String(),
	})
}
