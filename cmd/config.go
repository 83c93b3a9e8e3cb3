package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure JIRA connection settings",
	Long:  `Interactively set up JIRA URL, email, and API token. Settings are saved to ~/.burndown.yaml. Team sync policies already in the file are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		existing, _ := config.Load(cfgFile)

		// URL
		defaultURL := existing.URL
		if defaultURL != "" {
			fmt.Printf("JIRA URL [%s]: ", defaultURL)
		} else {
			fmt.Print("JIRA URL (e.g., https://your-org.atlassian.net): ")
		}
		url, _ := reader.ReadString('\n')
		url = strings.TrimSpace(url)
		if url == "" {
			url = defaultURL
		}

		// Email
		defaultEmail := existing.Email
		if defaultEmail != "" {
			fmt.Printf("Email [%s]: ", defaultEmail)
		} else {
			fmt.Print("Email: ")
		}
		email, _ := reader.ReadString('\n')
		email = strings.TrimSpace(email)
		if email == "" {
			email = defaultEmail
		}

		// Token (masked input)
		fmt.Print("API Token (input hidden): ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // newline after hidden input
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			token = existing.Token
		}

		// Timezone for calendar-day matching
		defaultTZ := existing.Timezone
		if defaultTZ != "" {
			fmt.Printf("Timezone [%s]: ", defaultTZ)
		} else {
			fmt.Print("Timezone (e.g., Europe/Vienna, empty for local): ")
		}
		tz, _ := reader.ReadString('\n')
		tz = strings.TrimSpace(tz)
		if tz == "" {
			tz = defaultTZ
		}

		cfg := existing
		cfg.URL = url
		cfg.Email = email
		cfg.Token = token
		cfg.Timezone = tz

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		if len(cfg.Teams) == 0 {
			fmt.Println("No teams configured yet. Add a 'teams' list to the file before running 'burndown sync'.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
