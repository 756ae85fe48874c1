package cmd

import (
	"fmt"

	"kaltura-uploader/internal/app"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|gs://bucket/prefix>",
	Short: "Upload every video file in a directory or bucket prefix",
	Long: `Upload video files one at a time. A failed upload is reported and the run
continues; the command exits with an error if any upload failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	addUploadFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	result, batchErr := app.NewPipeline(service).Batch(ctx, uploadRequest(args[0]))
	if result == nil {
		return batchErr
	}

	if uploadJSON {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printBatch(result)
	}

	if batchErr != nil {
		return fmt.Errorf("%d of %d uploads failed", len(result.Failed), len(result.Failed)+len(result.Uploaded))
	}
	return nil
}

func printBatch(result *app.BatchResult) {
	fmt.Println()
	for _, item := range result.Uploaded {
		fmt.Println(successStyle.Render("✓ "+item.Ref) + "\n    " + item.Result.URL)
	}
	for _, item := range result.Failed {
		fmt.Println(errorStyle.Render("✗ "+item.Ref) + "\n    " + item.Error)
	}
	fmt.Println()
	fmt.Println(infoStyle.Render(fmt.Sprintf("%d uploaded, %d failed", len(result.Uploaded), len(result.Failed))))
}
