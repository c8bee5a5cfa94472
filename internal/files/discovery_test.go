package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dpt/internal/errors"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestNewDiscovery(t *testing.T) {
	discovery := NewDiscovery("/test/base")
	assert.Equal(t, "/test/base", discovery.basePath)
}

func TestDiscovery_FindFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		exts  []string
		want  []string
	}{
		{
			name:  "csv only, sorted by name",
			files: []string{"b.csv", "a.CSV", "c.xlsx", "notes.txt"},
			exts:  []string{ExtCSV},
			want:  []string{"a.CSV", "b.csv"},
		},
		{
			name:  "csv and xlsx",
			files: []string{"b.csv", "a.xlsx", "c.xls"},
			exts:  []string{ExtCSV, ExtXLSX},
			want:  []string{"a.xlsx", "b.csv"},
		},
		{
			name: "empty directory",
			exts: []string{ExtCSV},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, dir, f)
			}
			require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))
			touch(t, filepath.Join(dir, "nested.csv"), "deep.csv")

			found, err := NewDiscovery("").FindFiles(dir, tt.exts...)
			require.NoError(t, err)

			var names []string
			for _, f := range found {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDiscovery_RelativeToBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "downloads"), 0755))
	touch(t, filepath.Join(base, "downloads"), "st.xlsx")

	d := NewDiscovery(base)
	found, err := d.FindExcelFiles("downloads")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{filepath.Join(base, "downloads", "st.xlsx")}, Paths(found))

	csvs, err := d.FindCSVFiles("downloads")
	require.NoError(t, err)
	assert.Empty(t, csvs)
}

func TestDiscovery_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindCSVFiles("nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestFilterModifiedSince(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "old", ModTime: now.Add(-time.Hour)},
		{Name: "new", ModTime: now},
		{Name: "mid", ModTime: now.Add(-time.Minute)},
	}

	recent := FilterModifiedSince(files, now.Add(-time.Minute))
	assert.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].Name)
	assert.Equal(t, "mid", recent[1].Name)

	assert.Empty(t, FilterModifiedSince(files, now.Add(time.Second)))
}
