package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
	"github.com/dt-pm-tools/burndown-sync/internal/markdown"
	"github.com/spf13/cobra"
)

var (
	sprintTeam      string
	sprintStart     string
	sprintDays      int
	sprintWeekends  bool
	sprintOutputDir string
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Manage sprints in the local database",
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create <sprint-id>",
	Short: "Create a sprint with one bucket per sprint day",
	Long:  `Creates a sprint in the local database. Buckets start at --start and cover --days days; weekends are skipped unless --weekends is set.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadLocalConfig(); err != nil {
			return err
		}
		team, err := appConfig.Team(sprintTeam)
		if err != nil {
			return err
		}

		st, loc, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		start, err := time.ParseInLocation("2006-01-02", sprintStart, loc)
		if err != nil {
			return fmt.Errorf("invalid --start %q (want YYYY-MM-DD): %w", sprintStart, err)
		}

		sprint, err := burndown.NewSprint(args[0], team.Name, start, sprintDays, sprintWeekends)
		if err != nil {
			return err
		}
		if err := st.CreateSprint(context.Background(), sprint); err != nil {
			return err
		}

		last := sprint.Efforts[len(sprint.Efforts)-1].Date
		fmt.Printf("Created sprint %s for team %s: %d days, %s to %s\n",
			sprint.ID, sprint.Team, len(sprint.Efforts), start.Format("2006-01-02"), last.Format("2006-01-02"))
		return nil
	},
}

var sprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadLocalConfig(); err != nil {
			return err
		}
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sprints, err := st.ListSprints(context.Background())
		if err != nil {
			return err
		}
		if len(sprints) == 0 {
			fmt.Println("No sprints. Create one with 'burndown sprint create'.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SPRINT\tTEAM\tDAYS\tPLANNED\tLAST SYNC")
		for _, s := range sprints {
			synced := "never"
			if s.SyncedAt != nil {
				synced = s.SyncedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%s\n", s.ID, s.Team, s.Days, s.Planned, synced)
		}
		return w.Flush()
	},
}

var sprintShowCmd = &cobra.Command{
	Use:   "show <sprint-id>",
	Short: "Render a sprint burndown as markdown",
	Long:  `Renders the stored burndown of a sprint as markdown with YAML frontmatter. Writes to stdout by default, or to a file with --output-dir.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadLocalConfig(); err != nil {
			return err
		}
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sprint, err := st.GetSprint(context.Background(), args[0])
		if err != nil {
			return err
		}

		md, err := markdown.MarshalSprint(sprint, nil)
		if err != nil {
			return fmt.Errorf("converting to markdown: %w", err)
		}

		if sprintOutputDir != "" {
			if err := os.MkdirAll(sprintOutputDir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			filename := filepath.Join(sprintOutputDir, "sprint-"+sprint.ID+".md")
			if err := os.WriteFile(filename, []byte(md), 0644); err != nil {
				return fmt.Errorf("writing file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Written to %s\n", filename)
		} else {
			fmt.Print(md)
		}
		return nil
	},
}

func init() {
	sprintCreateCmd.Flags().StringVar(&sprintTeam, "team", "", "configured team the sprint belongs to")
	sprintCreateCmd.Flags().StringVar(&sprintStart, "start", "", "first sprint day (YYYY-MM-DD)")
	sprintCreateCmd.Flags().IntVar(&sprintDays, "days", 10, "number of sprint days")
	sprintCreateCmd.Flags().BoolVar(&sprintWeekends, "weekends", false, "include Saturdays and Sundays")
	sprintCreateCmd.MarkFlagRequired("team")
	sprintCreateCmd.MarkFlagRequired("start")

	sprintShowCmd.Flags().StringVar(&sprintOutputDir, "output-dir", "", "write output to <dir>/sprint-<ID>.md instead of stdout")

	sprintCmd.AddCommand(sprintCreateCmd, sprintListCmd, sprintShowCmd)
	rootCmd.AddCommand(sprintCmd)
}
