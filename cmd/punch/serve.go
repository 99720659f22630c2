package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/backup"
	"github.com/sitedesk/punchlist/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serves the JSON API. Callers identify themselves with the X-User-ID and
X-Superuser headers; put an authenticating proxy in front for real
deployments.

When run inside an initialized project, a periodic backup scheduler
runs alongside the server using the configured interval.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")

		if punchDir != "" && cfg != nil {
			interval := time.Duration(cfg.GetBackupIntervalMins()) * time.Minute
			sched := backup.NewScheduler(rawStore.UnderlyingDB(), cfg.BackupPath(punchDir), interval, 10)
			sched.Start()
			defer sched.Stop()
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewServer(svc),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-rootCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		fmt.Printf("Listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			FatalError("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8484", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
