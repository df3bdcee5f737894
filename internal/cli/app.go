package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asad/sasfetch/internal/apperr"
	"github.com/asad/sasfetch/internal/azure"
	"github.com/asad/sasfetch/internal/config"
	"github.com/asad/sasfetch/internal/logging"
	"github.com/asad/sasfetch/internal/reports"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	client   *azure.ContainerClient
	resolver reports.DateResolver
}

// newApp loads and validates configuration, then builds the logger and the
// container client. No network calls are made here.
func newApp(cmd *cobra.Command) (*app, error) {
	envFile, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{
		EnvFile:  envFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "initialize logger", err)
	}

	resolver, err := reports.NewDateResolver(cfg.DateSource, cfg.DateLayout, cfg.DateMetadataKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "date source", err)
	}

	client, err := azure.NewContainerClient(cfg.SASURL, azure.Options{
		ConnectTimeout:  cfg.ConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		PageSize:        cfg.PageSize,
		IncludeMetadata: resolver.Source == reports.SourceMetadata,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		logging.String("command", cmd.Name()),
		logging.String("config", cfg.String()),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		resolver: resolver,
	}, nil
}

func (a *app) close() {
	// Sync on a terminal stderr can fail with EINVAL; nothing useful to do about it.
	_ = a.logger.Sync()
}

func pluralBlobs(n int) string {
	return fmt.Sprintf("%d blob(s)", n)
}
