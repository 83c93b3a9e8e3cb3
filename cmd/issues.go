package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
	"github.com/dt-pm-tools/burndown-sync/internal/jira"
	"github.com/dt-pm-tools/burndown-sync/internal/store"
	"github.com/spf13/cobra"
)

var issuesTeam string

var issuesCmd = &cobra.Command{
	Use:   "issues <sprint-id>",
	Short: "Show how each issue of a sprint is valued",
	Long:  `Fetches the issues of the sprint's fix version and prints the effort, unplanned flag and resolution date a sync would use. Nothing is saved.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		ctx := context.Background()
		sprintID := args[0]

		teamName := issuesTeam
		if teamName == "" {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			sprint, err := st.GetSprint(ctx, sprintID)
			st.Close()
			if errors.Is(err, store.ErrSprintNotFound) {
				return fmt.Errorf("%w (pass --team for sprints not in the database)", err)
			}
			if err != nil {
				return err
			}
			teamName = sprint.Team
		}
		team, err := appConfig.Team(teamName)
		if err != nil {
			return err
		}

		client := jira.NewClient(appConfig)
		version := burndown.FormatVersion(team.VersionScheme, sprintID)
		keys, err := client.FindSprintIssues(ctx, team.ProjectKey, version)
		if err != nil {
			return fmt.Errorf("finding issues of %q: %w", version, err)
		}
		if len(keys) == 0 {
			fmt.Printf("No issues found for version %q\n", version)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tEFFORT\tUNPLANNED\tRESOLVED\tSUMMARY")
		for _, key := range keys {
			issue, err := client.GetIssue(ctx, key)
			if err != nil {
				return fmt.Errorf("fetching issue %s: %w", key, err)
			}
			if issue == nil {
				fmt.Fprintf(w, "%s\t-\t-\t-\t(not found)\n", key)
				continue
			}

			var effort string
			if v, err := burndown.EffortValue(team, issue); err != nil {
				effort = "invalid"
			} else {
				effort = fmt.Sprintf("%g", v)
			}

			unplanned := "no"
			if team.Unplanned && burndown.IsUnplanned(team, issue) {
				unplanned = "yes"
			}

			resolved := "-"
			if issue.Fields.Resolution != nil && issue.Fields.ResolutionDate != nil && !issue.Fields.ResolutionDate.IsZero() {
				resolved = issue.Fields.ResolutionDate.Format("2006-01-02 15:04")
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", issue.Key, effort, unplanned, resolved, issue.Fields.Summary)
		}
		return w.Flush()
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesTeam, "team", "", "team policy to use (default: the stored sprint's team)")
	rootCmd.AddCommand(issuesCmd)
}
