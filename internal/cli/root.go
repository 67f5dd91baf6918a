// Package cli holds the opsdesk command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/opsdesk/internal/config"
	"github.com/dukerupert/opsdesk/internal/logging"
)

type envKey struct{}

// env is what every subcommand needs after the root has loaded settings.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func withEnv(ctx context.Context, e *env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

func envFrom(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey{}).(*env)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return e, nil
}

func NewRootCmd(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "opsdesk",
		Short:        "opsdesk: team tasks, schedule and CRM follow-ups in one calendar",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("OPSDESK_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withEnv(ctx, &env{cfg: cfg, logger: logger}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (env: OPSDESK_CONFIG)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGridCmd())
	cmd.AddCommand(newUserCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
