package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsFrom(t *testing.T) {
	base := t.TempDir()
	p := PathsFrom(base)

	assert.Equal(t, base, p.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "data", "downloads"), p.DownloadsDir)
	assert.Equal(t, filepath.Join(base, "data", "converted"), p.ConvertedDir)
	assert.Equal(t, filepath.Join(base, "data", "reports", "st"), p.ReportsDir)
	assert.Equal(t, filepath.Join(base, "logs", "dpt.log"), p.GetLogPath("dpt.log"))
	assert.Equal(t, filepath.Join(base, "data", "reports", "st", "sku.csv"), p.GetReportPath("sku.csv"))
}

func TestPaths_Resolve(t *testing.T) {
	base := t.TempDir()
	abs := t.TempDir()

	tests := []struct {
		name        string
		cfg         PathsConfig
		wantData    string
		wantLogs    string
		wantReports string
	}{
		{
			name:        "defaults keep layout",
			cfg:         PathsConfig{DataDir: "data", LogsDir: "logs"},
			wantData:    filepath.Join(base, "data"),
			wantLogs:    filepath.Join(base, "logs"),
			wantReports: filepath.Join(base, "data", "reports", "st"),
		},
		{
			name:        "relative override",
			cfg:         PathsConfig{DataDir: "work"},
			wantData:    filepath.Join(base, "work"),
			wantLogs:    filepath.Join(base, "logs"),
			wantReports: filepath.Join(base, "work", "reports", "st"),
		},
		{
			name:        "absolute override",
			cfg:         PathsConfig{DataDir: abs, LogsDir: abs},
			wantData:    abs,
			wantLogs:    abs,
			wantReports: filepath.Join(abs, "reports", "st"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathsFrom(base).Resolve(tt.cfg)
			assert.Equal(t, tt.wantData, p.DataDir)
			assert.Equal(t, tt.wantLogs, p.LogsDir)
			assert.Equal(t, tt.wantReports, p.ReportsDir)
		})
	}
}

func TestPaths_EnsureDirectories(t *testing.T) {
	p := PathsFrom(t.TempDir())
	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.DataDir, p.DownloadsDir, p.ConvertedDir, p.ReportsDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
