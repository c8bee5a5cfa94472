package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// CreateStreamWriter creates a BOM-prefixed CRLF stream and writes headers.
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	slog.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, apperrors.NewIOError("failed to create directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, apperrors.NewIOError("failed to create file", err)
	}

	if _, err := file.Write(utf8BOM); err != nil {
		file.Close()
		return nil, apperrors.NewIOError("failed to write BOM", err)
	}

	writer := csv.NewWriter(file)
	writer.UseCRLF = true

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, apperrors.NewIOError("failed to write headers", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return apperrors.NewIOError("failed to write record", err)
	}
	s.rows++
	return nil
}

// Path is the resolved file path.
func (s *StreamWriter) Path() string { return s.path }

// Rows is the number of records written so far.
func (s *StreamWriter) Rows() int { return s.rows }

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return apperrors.NewIOError("failed to flush csv", err)
	}
	if err := s.file.Close(); err != nil {
		return apperrors.NewIOError("failed to close csv", err)
	}
	return nil
}

// resolvePath maps a relative path to the reports directory, or to the
// downloads directory when it names one.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	if w.paths == nil {
		return filePath
	}
	if strings.HasPrefix(filepath.ToSlash(filePath), "downloads/") {
		return w.paths.GetDownloadPath(strings.TrimPrefix(filepath.ToSlash(filePath), "downloads/"))
	}
	return w.paths.GetReportPath(filePath)
}
