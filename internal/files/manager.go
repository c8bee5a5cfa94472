package files

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
)

// Manager provides file management operations
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.resolvePath(path))
	return err == nil
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	slog.Info("Copying file",
		slog.String("src_path", srcPath),
		slog.String("dst_path", dstPath))

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return apperrors.NewIOError("failed to create destination directory", err)
	}

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return apperrors.NewIOError("failed to open source file", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstPath)
	if err != nil {
		return apperrors.NewIOError("failed to create destination file", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return apperrors.NewIOError("failed to copy file content", err)
	}

	return dstFile.Sync()
}

// MoveFile moves a file from source to destination
func (m *Manager) MoveFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	slog.Info("Moving file",
		slog.String("src_path", srcPath),
		slog.String("dst_path", dstPath))

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return apperrors.NewIOError("failed to create destination directory", err)
	}

	// Rename is atomic on the same filesystem.
	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	if err := m.CopyFile(srcPath, dstPath); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

// DeleteFile deletes a file
func (m *Manager) DeleteFile(path string) error {
	fullPath := m.resolvePath(path)
	slog.Debug("Deleting file", slog.String("full_path", fullPath))
	return os.Remove(fullPath)
}

// TempFile creates a scratch file in dir, or in the data directory when dir
// is empty. The caller removes it.
func (m *Manager) TempFile(dir, pattern string) (*os.File, error) {
	if dir == "" {
		dir = m.paths.DataDir
	} else {
		dir = m.resolvePath(dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewIOError("failed to create temp directory", err)
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, apperrors.NewIOError("failed to create temp file", err)
	}
	return f, nil
}

// WriteFile writes dst through a temp file next to it and renames it into
// place once write succeeds. On failure dst is left untouched.
func (m *Manager) WriteFile(dst string, write func(w io.Writer) error) error {
	dstPath := m.resolvePath(dst)

	tmp, err := m.TempFile(filepath.Dir(dstPath), "."+filepath.Base(dstPath)+"-*")
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(tmp)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = tmp.Chmod(0644)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := m.DeleteFile(tmp.Name()); rerr != nil {
			slog.Warn("Failed to remove temp file",
				slog.String("path", tmp.Name()),
				slog.String("error", rerr.Error()))
		}
		return err
	}
	return m.MoveFile(tmp.Name(), dstPath)
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	slashed := filepath.ToSlash(path)
	switch {
	case strings.HasPrefix(slashed, "downloads/"):
		return m.paths.GetDownloadPath(strings.TrimPrefix(slashed, "downloads/"))
	case strings.HasPrefix(slashed, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(slashed, "reports/"))
	case strings.HasPrefix(slashed, "converted/"):
		return filepath.Join(m.paths.ConvertedDir, strings.TrimPrefix(slashed, "converted/"))
	case strings.HasPrefix(slashed, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(slashed, "logs/"))
	default:
		return filepath.Join(m.paths.DataDir, path)
	}
}
