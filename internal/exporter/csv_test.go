package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/config"
)

func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths := config.PathsFrom(t.TempDir())
	return NewCSVWriter(paths), paths
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)
	abs := filepath.Join(t.TempDir(), "x.csv")

	assert.Equal(t, abs, writer.resolvePath(abs))
	assert.Equal(t, filepath.Join(paths.ReportsDir, "sku.csv"), writer.resolvePath("sku.csv"))
	assert.Equal(t, filepath.Join(paths.DownloadsDir, "st.csv"), writer.resolvePath("downloads/st.csv"))

	bare := NewCSVWriter(nil)
	assert.Equal(t, "x.csv", bare.resolvePath("x.csv"))
}

func TestStreamWriter(t *testing.T) {
	writer, _ := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "stream.csv")

	sw, err := writer.CreateStreamWriter(path, []string{"id", "name"})
	require.NoError(t, err)
	require.NoError(t, sw.WriteRecord([]string{"1", `say "hi"`}))
	require.NoError(t, sw.WriteRecord([]string{"2", "plain"}))
	assert.Equal(t, 2, sw.Rows())
	assert.Equal(t, path, sw.Path())
	require.NoError(t, sw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFid,name\r\n1,\"say \"\"hi\"\"\"\r\n2,plain\r\n", string(data))
}
