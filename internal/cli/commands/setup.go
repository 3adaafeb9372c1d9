package commands

import (
	"log/slog"

	"github.com/leapstack-labs/statbank/internal/cli/config"
	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/pkg/api"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Client   *api.Client
}

// NewCommandContext creates a CommandContext with an API client and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	client := api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithLanguage(cfg.Language),
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
	)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Client:   client,
	}
}

// BuilderOptions returns the query options implied by the configuration.
// accept forces auto-accept on top of auto_accept_large.
func (c *CommandContext) BuilderOptions(confirmer query.Confirmer, accept bool) []query.Option {
	return []query.Option{
		query.WithSafetyThreshold(c.Cfg.SafetyRowThreshold),
		query.WithAutoAccept(accept || c.Cfg.AutoAcceptLarge),
		query.WithConfirmer(confirmer),
		query.WithLogger(c.Logger),
	}
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
