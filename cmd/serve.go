package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/dt-pm-tools/burndown-sync/internal/jira"
	"github.com/dt-pm-tools/burndown-sync/internal/web"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sprint API over HTTP",
	Long:  `Starts an HTTP server exposing stored sprints and a sync endpoint (POST /api/sprints/{id}/sync).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		logger := log.New(os.Stderr, "[web] ", log.LstdFlags)
		srv, err := web.NewServer(appConfig, st, jira.NewClient(appConfig), logger)
		if err != nil {
			return err
		}

		logger.Printf("Listening on %s", serveAddr)
		if err := http.ListenAndServe(serveAddr, srv.Router); err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
