package files

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "dpt/internal/errors"
)

// Recognised export extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindExcelFiles lists the .xlsx workbooks in dir.
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	return d.FindFiles(dir, ExtXLSX)
}

// FindCSVFiles lists the .csv files in dir.
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.FindFiles(dir, ExtCSV)
}

// FindFiles lists the regular files directly inside dir whose extension
// matches one of exts, ignoring case. Results are sorted by name.
func (d *Discovery) FindFiles(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fullPath)
		}
		return nil, apperrors.NewIOError("failed to read directory "+fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Paths returns the paths of files in order.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// FilterModifiedSince keeps the files modified at or after since.
func FilterModifiedSince(files []FileInfo, since time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if !file.ModTime.Before(since) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
