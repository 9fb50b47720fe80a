// Package cli implements schedulectl, a terminal client for the scheduling
// server.
package cli

import (
	"bufio"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomwright0/dustin-schedule/client"
	"github.com/tomwright0/dustin-schedule/cooldown"
	"github.com/tomwright0/dustin-schedule/internal/config"
)

const (
	serverURLEnvVar = "DUSTIN_SERVER_URL"
	sessionEnvVar   = "DUSTIN_SESSION"
)

// NewRootCommand builds the schedulectl command tree.
func NewRootCommand() *cobra.Command {
	var (
		serverURL = config.GetEnv(serverURLEnvVar, "http://localhost:3000")
		session   = config.GetEnv(sessionEnvVar, "")
		cooldownD = cooldown.DefaultDuration
		timeout   = 30 * time.Second
		app       *App
	)

	root := &cobra.Command{
		Use:          "schedulectl",
		Short:        "Schedule housekeeping events on the shared calendar",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app = NewApp(client.New(serverURL,
				client.WithSession(session),
				client.WithGate(cooldown.NewGate(cooldownD)),
				client.WithHTTPClient(&http.Client{Timeout: timeout}),
			))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", serverURL, "server base URL (env "+serverURLEnvVar+")")
	root.PersistentFlags().StringVar(&session, "session", session, "value of the "+client.SessionCookieName+" cookie (env "+sessionEnvVar+")")
	root.PersistentFlags().DurationVar(&cooldownD, "cooldown", cooldownD, "minimum interval between scheduling requests")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "HTTP request timeout")

	var eventType, at string
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Create a Vacuum Only or Full Clean event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Schedule(cmd.Context(), eventType, at)
		},
	}
	scheduleCmd.Flags().StringVar(&eventType, "type", "vacuum", "event type: vacuum|full")
	scheduleCmd.Flags().StringVar(&at, "at", "now", "start time, ISO-8601 (UTC when no zone is given)")

	root.AddCommand(
		scheduleCmd,
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the session is signed in",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Status(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "signin",
			Short: "Print the browser sign-in URL",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.SignIn(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Destroy the server session",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Logout(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "embed-url",
			Short: "Print the calendar embed URL",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.EmbedURL(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Interactive shell sharing one cooldown across submissions",
			RunE: func(cmd *cobra.Command, args []string) error {
				runREPL(cmd.Context(), app, bufio.NewScanner(os.Stdin))
				return nil
			},
		},
	)
	return root
}
