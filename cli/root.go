// Package cli is the nexto command line: the API server and a terminal
// client for it.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexto/auth"
	"nexto/client"
	"nexto/config"
)

type app struct {
	configPath string
	now        func() time.Time
	// httpClient overrides the client built from configuration.
	httpClient *http.Client
}

func newApp() *app {
	return &app{now: time.Now}
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	return newApp().rootCommand(version)
}

func (a *app) rootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "nexto",
		Short: "NexTo - tasks, calendar and insights",
		Long: `NexTo keeps a shared task list behind a small HTTP API.

Run "nexto serve" to start the API, then use the other commands as its client.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "config file; the environment is used when it does not exist")

	root.AddCommand(
		a.serveCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.forgotPasswordCommand(),
		a.listCommand(),
		a.addCommand(),
		a.editCommand(),
		a.toggleCommand(),
		a.removeCommand(),
		a.clearCompletedCommand(),
		a.statsCommand(),
		a.insightsCommand(),
		a.calendarCommand(),
		a.achievementsCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) clientConfig() (config.ClientConfig, error) {
	return config.LoadClient(a.configPath)
}

func (a *app) sessions(cfg config.ClientConfig) *auth.Manager {
	return auth.NewManager(auth.Mock{}, auth.NewSessionStore(cfg.SessionFile))
}

func (a *app) apiClient(cfg config.ClientConfig) *client.Client {
	hc := a.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return client.New(cfg.ServerURL, hc)
}

// taskClient returns a client with the task list loaded. It refuses to run
// without a session.
func (a *app) taskClient(ctx context.Context) (*client.Client, error) {
	cfg, err := a.clientConfig()
	if err != nil {
		return nil, err
	}
	if _, err := a.sessions(cfg).Current(); err != nil {
		return nil, err
	}
	c := a.apiClient(cfg)
	if err := c.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return c, nil
}
