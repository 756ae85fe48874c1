package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"kaltura-uploader/internal/app"
	"kaltura-uploader/pkg/config"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var envKeys = []string{
	"KALTURA_SERVICE_URL",
	"KALTURA_PARTNER_ID",
	"KALTURA_ADMIN_SECRET",
	"KALTURA_USER_ID",
	"KALTURA_PLAYER_UICONF",
	"GOOGLE_CLOUD_PROJECT",
	"GCS_BUCKET",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long:  `Collect Kaltura partner credentials and optional Google Cloud settings into .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("Kaltura Uploader Setup"))

	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureKaltura(env); err != nil {
		return err
	}
	if err := configureGCP(env); err != nil {
		return err
	}
	if err := writeEnvFile(".env", env); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created .env file"))

	var verify bool
	if err := huh.NewConfirm().
		Title("Verify the credentials now?").
		Description("Opens a session with the configured partner").
		Value(&verify).
		Run(); err != nil {
		return err
	}

	if verify {
		ctx := cmd.Context()
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		if err := checkConnection(ctx, app.BuildService(cfg)); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Connection failed: %v", err)))
			fmt.Println(infoStyle.Render("You can retry later with: kaltura-uploader auth check"))
		}
	}

	printNextSteps()
	return nil
}

func configureKaltura(env map[string]string) error {
	var serviceURL, partnerID, secret, userID, uiconf string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Kaltura service URL").
				Placeholder("https://www.kaltura.com").
				Value(&serviceURL).
				Validate(validURL),
			huh.NewInput().
				Title("Partner ID").
				Value(&partnerID).
				Validate(positiveInt("Partner ID")),
			huh.NewInput().
				Title("Admin secret").
				Description("Leave empty to read it from Secret Manager").
				EchoMode(huh.EchoModePassword).
				Value(&secret),
			huh.NewInput().
				Title("Session user id").
				Placeholder("kaltura-uploader").
				Value(&userID),
			huh.NewInput().
				Title("Player uiconf id").
				Description("The player widget used in returned links").
				Value(&uiconf).
				Validate(positiveInt("Player uiconf id")),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["KALTURA_SERVICE_URL"] = strings.TrimSpace(serviceURL)
	env["KALTURA_PARTNER_ID"] = strings.TrimSpace(partnerID)
	env["KALTURA_ADMIN_SECRET"] = strings.TrimSpace(secret)
	env["KALTURA_USER_ID"] = strings.TrimSpace(userID)
	env["KALTURA_PLAYER_UICONF"] = strings.TrimSpace(uiconf)
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("For Secret Manager credentials and uploads from GCS buckets (optional)").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	var project, bucket string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Cloud project").
				Value(&project).
				Validate(required("Google Cloud project")),
			huh.NewInput().
				Title("Default GCS bucket").
				Description("Used for gs:///path references (optional)").
				Value(&bucket),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["GOOGLE_CLOUD_PROJECT"] = strings.TrimSpace(project)
	env["GCS_BUCKET"] = strings.TrimSpace(bucket)

	if env["KALTURA_ADMIN_SECRET"] == "" {
		fmt.Println(infoStyle.Render(`
The admin secret will be read from Secret Manager. Create it with:
  gcloud secrets create kaltura-admin-secret --data-file=-
`))
	}
	return nil
}

// writeEnvFile quotes values so secrets containing '#', spaces or quotes
// read back unchanged.
func writeEnvFile(path string, env map[string]string) error {
	values := make(map[string]string, len(envKeys))
	for _, key := range envKeys {
		if val := env[key]; val != "" {
			values[key] = val
		}
	}
	content, err := godotenv.Marshal(values)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Check settings: kaltura-uploader auth status")
	fmt.Println("  2. Upload a file:  kaltura-uploader upload ./lecture.mp4")
	fmt.Println("  3. Serve the repository: kaltura-uploader serve")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func positiveInt(field string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", field)
		}
		return nil
	}
}

func validURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL such as https://www.kaltura.com")
	}
	return nil
}

// runWithSpinner returns the action's error, or the spinner's own when it is
// interrupted. Interrupting cancels the context handed to fn.
func runWithSpinner(ctx context.Context, title string, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := spinner.New().
		Title(title).
		Context(ctx).
		ActionWithErr(fn).
		Run(); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
