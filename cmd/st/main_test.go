package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/config"
	"dpt/internal/operations"
	"dpt/internal/st"
)

func TestBuildRequest(t *testing.T) {
	paths := config.PathsFrom("/opt/dpt")

	tests := []struct {
		name    string
		args    []string
		dir     string
		strict  string
		want    operations.OperationRequest
		wantErr bool
	}{
		{
			name: "defaults to downloads",
			want: operations.OperationRequest{Dir: paths.DownloadsDir},
		},
		{
			name: "explicit files",
			args: []string{"a.csv", "b.xlsx"},
			want: operations.OperationRequest{Inputs: []string{"a.csv", "b.xlsx"}},
		},
		{
			name: "directory",
			dir:  "/tmp/in",
			want: operations.OperationRequest{Dir: "/tmp/in"},
		},
		{name: "files and directory", args: []string{"a.csv"}, dir: "/tmp/in", wantErr: true},
		{name: "bad strict", strict: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildRequest(tt.args, tt.dir, "", "", tt.strict, paths)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRequest_Strict(t *testing.T) {
	req, err := buildRequest(nil, "/in", "/out", "GBK", "false", config.PathsFrom("/opt/dpt"))
	require.NoError(t, err)
	require.NotNil(t, req.Strict)
	assert.False(t, *req.Strict)
	assert.Equal(t, "GBK", req.Encoding)
	assert.Equal(t, "/out", req.OutDir)
}

func TestPrintSummary(t *testing.T) {
	state := operations.NewOperationState(operations.OperationRequest{ID: "x"})
	state.SetStep(operations.StepIDAggregate, operations.NewStepState(operations.StepIDAggregate, operations.StepNameAggregate))
	state.SetContext(operations.ContextKeyResult, &st.Result{Stats: st.Stats{Files: 2, RowsRead: 10, Aggregated: 9, Skipped: 1}})
	state.SetContext(operations.ContextKeyReports, []string{"/r/sku.csv"})

	var buf bytes.Buffer
	printSummary(&buf, state)

	out := buf.String()
	assert.Contains(t, out, "aggregate")
	assert.Contains(t, out, "files 2, rows read 10, aggregated 9, skipped 1")
	assert.Contains(t, out, "/r/sku.csv")
	assert.NotContains(t, out, "run ")
}
