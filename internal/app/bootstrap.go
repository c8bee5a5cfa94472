package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"dpt/internal/config"
	"dpt/internal/infrastructure"
)

// Bootstrap loads the configuration, resolves the directory layout and
// installs the process logger. An empty configPath searches the default
// locations. Command line tools call it once before doing anything else.
func Bootstrap(configPath string) (*config.Config, *config.Paths, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	base, err := config.GetPaths()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get paths: %w", err)
	}
	paths := base.Resolve(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(filepath.Base(cfg.Logging.FilePath))
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, paths, logger, nil
}
