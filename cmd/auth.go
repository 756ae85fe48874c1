package cmd

import (
	"context"
	"fmt"

	"kaltura-uploader/internal/app"
	"kaltura-uploader/pkg/config"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect and verify Kaltura credentials",
	Long:  `Check the partner credentials loaded from .env, config.yaml or Secret Manager.`,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which settings are configured",
	RunE:  runAuthStatus,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Open a session with Kaltura using the configured secret",
	RunE:  runAuthCheck,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authCheckCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(infoStyle.Render("\nKaltura configuration:\n"))

	printSetting("Service URL", cfg.ServiceURL, true)
	printSetting("Partner ID", nonZero(cfg.PartnerID), true)
	printSetting("Player uiconf", nonZero(cfg.PlayerUIConf), true)

	if cfg.AdminSecret != "" {
		fmt.Println(successStyle.Render("✓ Admin secret: configured"))
	} else {
		fmt.Println(errorStyle.Render("✗ Admin secret: missing KALTURA_ADMIN_SECRET"))
	}

	printSetting("Session user", cfg.UserID, false)
	printSetting("GCP project", cfg.GCPProject, false)
	printSetting("GCS bucket", cfg.GCSBucket, false)

	fmt.Println()
	if err := cfg.Validate(); err != nil {
		fmt.Println(warnStyle.Render(err.Error()))
		fmt.Println(infoStyle.Render("  Run: kaltura-uploader setup"))
	}
	return nil
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := loadService(ctx)
	if err != nil {
		return err
	}

	return checkConnection(ctx, service)
}

func checkConnection(ctx context.Context, service *app.Service) error {
	cfg := service.Config()
	return runWithSpinner(ctx, fmt.Sprintf("Connecting to %s as partner %d", cfg.ServiceURL, cfg.PartnerID), service.Client().Connect)
}

func printSetting(name, value string, required bool) {
	switch {
	case value != "":
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s: %s", name, value)))
	case required:
		fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s: not set", name)))
	default:
		fmt.Println(infoStyle.Render(fmt.Sprintf("○ %s: not configured (optional)", name)))
	}
}

func nonZero(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}
