package cmd

import (
	"context"
	"errors"
	"fmt"

	"kaltura-uploader/internal/app"
	"kaltura-uploader/internal/repository"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	uploadItemID    int64
	uploadLicense   string
	uploadAuthor    string
	uploadSavePath  string
	uploadName      string
	uploadOverwrite bool
	uploadOpen      bool
	uploadJSON      bool
)

var errNoResult = errors.New("upload finished without a result")

var uploadCmd = &cobra.Command{
	Use:   "upload <file|gs://bucket/object>",
	Short: "Upload a single file",
	Long: `Upload one file to Kaltura as a new video entry and print its player link.
Every run creates a new entry, even for a file uploaded before.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	addUploadFlags(uploadCmd)
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "Entry name (defaults to the file name)")
	uploadCmd.Flags().BoolVarP(&uploadOpen, "open", "o", false, "Open the player link in a browser")
	rootCmd.AddCommand(uploadCmd)
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&uploadItemID, "item-id", 0, "Draft area item id echoed in the result")
	cmd.Flags().StringVar(&uploadLicense, "license", "", "License code (defaults to repository.default_license)")
	cmd.Flags().StringVar(&uploadAuthor, "author", "", "Author recorded with the upload")
	cmd.Flags().StringVar(&uploadSavePath, "save-path", "/", "Target folder in the draft area")
	cmd.Flags().BoolVar(&uploadOverwrite, "overwrite", false, "Replace an existing file with the same name")
	cmd.Flags().BoolVar(&uploadJSON, "json", false, "Print results as JSON")
}

func uploadRequest(ref string) app.UploadRequest {
	return app.UploadRequest{
		Ref:       ref,
		Name:      uploadName,
		ItemID:    uploadItemID,
		License:   uploadLicense,
		Author:    uploadAuthor,
		SavePath:  uploadSavePath,
		Overwrite: uploadOverwrite,
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	pipeline := app.NewPipeline(service)
	req := uploadRequest(args[0])

	var result *repository.Result
	upload := func(ctx context.Context) error {
		var err error
		result, err = pipeline.Upload(ctx, req)
		return err
	}

	if uploadJSON {
		err = upload(ctx)
	} else {
		err = runWithSpinner(ctx, "Uploading "+args[0], upload)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return errNoResult
	}

	if uploadJSON {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printResult(result)
	}

	if uploadOpen {
		if err := browser.OpenURL(result.URL); err != nil {
			fmt.Println(warnStyle.Render("Could not open browser: " + err.Error()))
		}
	}

	return nil
}

func printResult(result *repository.Result) {
	fmt.Println(infoStyle.Render("  File:    ") + result.File)
	fmt.Println(infoStyle.Render("  Item id: ") + fmt.Sprint(result.ID))
	fmt.Println(infoStyle.Render("  Player:  ") + result.URL)
}
