package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
	"github.com/dt-pm-tools/burndown-sync/internal/markdown"
	"github.com/dt-pm-tools/burndown-sync/internal/store"
	"github.com/spf13/cobra"
)

var (
	syncTeam   string
	syncDryRun bool
	syncShow   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <sprint-id>",
	Short: "Recompute a sprint burndown from JIRA",
	Long: `Finds the issues of the sprint's fix version in JIRA, recomputes the planned
goal and redistributes burned and unplanned effort over the sprint days.

The sprint is saved and the run recorded unless --dry-run is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		st, loc, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		sprint, err := st.GetSprint(ctx, args[0])
		if err != nil {
			return err
		}

		teamName := sprint.Team
		if syncTeam != "" {
			teamName = syncTeam
		}
		team, err := appConfig.Team(teamName)
		if err != nil {
			return err
		}

		client := jira.NewClient(appConfig)
		user, err := client.Authenticate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Authenticated as %s\n", user.DisplayName)

		syncer := burndown.NewSyncer(client, nil)
		syncer.Workers = appConfig.Workers
		syncer.Location = loc

		started := time.Now()
		report, syncErr := syncer.SyncSprint(ctx, team, sprint)

		if syncDryRun {
			if syncErr != nil {
				return syncErr
			}
			fmt.Fprintf(os.Stderr, "Dry run: sprint %s not saved\n", sprint.ID)
		} else {
			if syncErr == nil {
				syncErr = st.SaveSprint(ctx, sprint)
			}
			if _, err := st.RecordSyncRun(ctx, store.NewSyncRun(sprint.ID, started, report, syncErr)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			if syncErr != nil {
				return syncErr
			}
		}

		fmt.Printf("Synced sprint %s (version %q): %d issues, planned %g\n",
			sprint.ID, report.Version, report.Fetched, report.Planned)
		if n := len(report.Events); n > 0 {
			fmt.Printf("%d issue(s) need attention:\n", n)
			for _, e := range report.Events {
				fmt.Printf("  %s\n", e.Message)
			}
		}

		if syncShow {
			md, err := markdown.MarshalSprint(sprint, report)
			if err != nil {
				return fmt.Errorf("converting to markdown: %w", err)
			}
			fmt.Println()
			fmt.Print(md)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncTeam, "team", "", "team policy to use instead of the sprint's team")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute without saving")
	syncCmd.Flags().BoolVar(&syncShow, "show", false, "print the resulting burndown as markdown")
	rootCmd.AddCommand(syncCmd)
}
