package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/charset"
	"dpt/internal/config"
	"dpt/internal/convert"
)

func TestConverterOptions(t *testing.T) {
	cfg := config.ConvertConfig{Sheet: "Sheet1", Encoding: "GBK", Workers: 2}

	tests := []struct {
		name     string
		sheet    string
		encoding string
		workers  int
		want     convert.Options
		wantErr  bool
	}{
		{
			name: "config defaults",
			want: convert.Options{Sheet: "Sheet1", Encoding: charset.GBK, Workers: 2},
		},
		{
			name:     "flags override",
			sheet:    "Data",
			encoding: "UTF8",
			workers:  8,
			want:     convert.Options{Sheet: "Data", Encoding: charset.UTF8, Workers: 8},
		},
		{
			name:     "unknown encoding",
			encoding: "latin1",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := converterOptions(cfg, tt.sheet, tt.encoding, tt.workers)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []convert.Result{{Source: "a.xlsx", Output: "a.csv", Rows: 3}})

	assert.Equal(t, "a.xlsx -> a.csv (3 rows)\n1 workbooks converted\n", buf.String())
}
