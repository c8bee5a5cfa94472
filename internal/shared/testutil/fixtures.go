package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"dpt/internal/config"
)

// STHeader is the header row matching Fields.
const STHeader = "mid,sid,wid,mname,sname,qt,at,dt\n"

// Fields maps every ST field key to a short header name.
func Fields() map[string]string {
	return map[string]string{
		"field_mid":   "mid",
		"field_sid":   "sid",
		"field_wid":   "wid",
		"field_mname": "mname",
		"field_sname": "sname",
		"field_qt":    "qt",
		"field_at":    "at",
		"field_dt":    "dt",
	}
}

// Ranges defines every range list, with stores 100-199 local jmj and the
// rest empty.
func Ranges() map[string][]string {
	return map[string][]string{
		"range_jmj_local":       {"100-199"},
		"range_tey_local":       nil,
		"range_lkd_local":       nil,
		"range_son_local":       nil,
		"range_nws_local":       nil,
		"range_jmj":             nil,
		"range_tey":             nil,
		"range_lkd":             nil,
		"range_son":             nil,
		"range_nws":             nil,
		"range_outer_warehouse": nil,
	}
}

// Config is the default configuration with the fixture tables and UTF8
// input. The process-global metrics exporter and the rate limiter are off.
func Config() *config.Config {
	cfg := config.Default()
	cfg.Aggregate.Encoding = "UTF8"
	cfg.Convert.Encoding = "UTF8"
	cfg.Telemetry.MetricsEnabled = false
	cfg.Security.RateLimit.Enabled = false
	cfg.ST = Fields()
	cfg.Range = Ranges()
	return cfg
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
