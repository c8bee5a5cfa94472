package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
type Paths struct {
	ExecutableDir string
	DataDir       string
	DownloadsDir  string
	ConvertedDir  string
	ReportsDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return PathsFrom(filepath.Dir(exe)), nil
}

// PathsFrom lays out the directory tree under baseDir:
//
//	baseDir/
//	  ├── data/
//	  │   ├── downloads/   (ERP exports)
//	  │   ├── converted/   (csv produced from xlsx)
//	  │   └── reports/st/  (sku.csv, store.csv, brand.csv)
//	  └── logs/
func PathsFrom(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		DownloadsDir:  filepath.Join(dataDir, "downloads"),
		ConvertedDir:  filepath.Join(dataDir, "converted"),
		ReportsDir:    filepath.Join(dataDir, "reports", "st"),
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// Resolve applies configured overrides. Relative overrides are joined to the
// executable directory.
func (p *Paths) Resolve(cfg PathsConfig) *Paths {
	out := *p
	if cfg.DataDir != "" && cfg.DataDir != "data" {
		out.DataDir = p.abs(cfg.DataDir)
		out.DownloadsDir = filepath.Join(out.DataDir, "downloads")
		out.ConvertedDir = filepath.Join(out.DataDir, "converted")
		out.ReportsDir = filepath.Join(out.DataDir, "reports", "st")
	}
	if cfg.LogsDir != "" && cfg.LogsDir != "logs" {
		out.LogsDir = p.abs(cfg.LogsDir)
	}
	return &out
}

func (p *Paths) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ExecutableDir, path)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.DownloadsDir,
		p.ConvertedDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetDownloadPath returns the path for a downloaded file
func (p *Paths) GetDownloadPath(filename string) string {
	return filepath.Join(p.DownloadsDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved layout
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("downloads", p.DownloadsDir),
			slog.String("converted", p.ConvertedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
