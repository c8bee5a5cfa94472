package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
  output: console
aggregate:
  encoding: GBK
  strict: true
  warehouses: [1, 2, 3, 4, 5, 6, 7]
st:
  field_mid: 物料编码
  field_sid: 门店编码
range:
  range_jmj_local: ["100", "200-299"]
  range_outer_warehouse: ["9000-9999"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "GB18030", cfg.Aggregate.Encoding)
	assert.False(t, cfg.Aggregate.Strict)
	assert.Len(t, cfg.Aggregate.Warehouses, 7)
	assert.Equal(t, "00117", cfg.JDE.Company)
	assert.Equal(t, "#User", cfg.Locator.UsernameField)
	assert.NoError(t, cfg.validate())
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name:    "yaml overrides defaults",
			content: sampleYAML,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "GBK", cfg.Aggregate.Encoding)
				assert.True(t, cfg.Aggregate.Strict)
				assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7}, cfg.Aggregate.Warehouses)
				assert.Equal(t, "物料编码", cfg.ST["field_mid"])
				assert.Equal(t, []string{"100", "200-299"}, cfg.Range["range_jmj_local"])
				assert.Equal(t, 8080, cfg.Server.Port)
			},
		},
		{
			name:    "env overrides yaml",
			content: sampleYAML,
			env: map[string]string{
				"DPT_AGGREGATE_ENCODING": "UTF8",
				"DPT_AGGREGATE_STRICT":   "false",
				"DPT_SERVER_PORT":        "9090",
				"DPT_JDE_TIMEOUT":        "90s",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "UTF8", cfg.Aggregate.Encoding)
				assert.False(t, cfg.Aggregate.Strict)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 90*time.Second, cfg.JDE.Timeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "unknown encoding rejected",
			content: "aggregate:\n  encoding: LATIN1\n",
			wantErr: true,
		},
		{
			name:    "warehouse list must have seven ids",
			content: "aggregate:\n  warehouses: [1, 2]\n",
			wantErr: true,
		},
		{
			name:    "invalid port from env",
			env:     map[string]string{"DPT_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: "logging: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.content != "" {
				path = writeConfig(t, tt.content)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_DefaultLogFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  file_path: \"\"\npaths:\n  logs_dir: var/log\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("var/log", "dpt.log"), cfg.Logging.FilePath)
}
