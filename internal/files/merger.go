package files

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	apperrors "dpt/internal/errors"
	"dpt/internal/infrastructure"
)

// MergeOptions control how inputs are concatenated.
type MergeOptions struct {
	// SkipHead drops this many leading lines of every input.
	SkipHead int
	// HeadOnce keeps the leading lines of the first input and applies
	// SkipHead to the rest only.
	HeadOnce bool
	// SkipTail drops this many trailing lines of every input.
	SkipTail int
	// EnsureCRLF terminates an input whose last kept line has no line
	// break with "\r\n".
	EnsureCRLF bool
}

// MergeStats summarises a merge.
type MergeStats struct {
	Files        int
	LinesWritten int
	LinesSkipped int
	BytesWritten int64
}

// Merger concatenates line-oriented files.
type Merger struct {
	opts   MergeOptions
	logger *slog.Logger
}

// NewMerger creates a merger with opts.
func NewMerger(opts MergeOptions) *Merger {
	return &Merger{opts: opts, logger: infrastructure.WithComponent(nil, "merger")}
}

// WithLogger sets the logger.
func (m *Merger) WithLogger(logger *slog.Logger) *Merger {
	m.logger = infrastructure.WithComponent(logger, "merger")
	return m
}

// MergeFiles writes the files at paths, in order, to w.
func (m *Merger) MergeFiles(ctx context.Context, w io.Writer, paths ...string) (MergeStats, error) {
	var stats MergeStats
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		f, err := os.Open(path)
		if err != nil {
			return stats, apperrors.NewIOError(fmt.Sprintf("open %s", path), err)
		}
		err = m.merge(w, f, i == 0, &stats)
		f.Close()
		if err != nil {
			return stats, fmt.Errorf("merge %s: %w", path, err)
		}
		m.logger.DebugContext(ctx, "file merged", slog.String("path", path))
	}

	m.logger.InfoContext(ctx, "merge complete",
		slog.Int("files", stats.Files),
		slog.Int("lines_written", stats.LinesWritten),
		slog.Int("lines_skipped", stats.LinesSkipped))
	return stats, nil
}

// Merge writes readers, in order, to w.
func (m *Merger) Merge(w io.Writer, readers ...io.Reader) (MergeStats, error) {
	var stats MergeStats
	for i, r := range readers {
		if err := m.merge(w, r, i == 0, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (m *Merger) merge(w io.Writer, r io.Reader, first bool, stats *MergeStats) error {
	br := bufio.NewReader(r)

	head := m.opts.SkipHead
	if first && m.opts.HeadOnce {
		head = 0
	}

	// tail holds the last SkipTail lines until it is known they are not
	// the end of the input.
	tail := make([][]byte, 0, m.opts.SkipTail+1)
	var last []byte

	emit := func(line []byte) error {
		n, err := w.Write(line)
		stats.BytesWritten += int64(n)
		if err != nil {
			return apperrors.NewIOError("write merged output", err)
		}
		stats.LinesWritten++
		last = line
		return nil
	}

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if head > 0 {
				head--
				stats.LinesSkipped++
			} else {
				tail = append(tail, line)
				if len(tail) > m.opts.SkipTail {
					if werr := emit(tail[0]); werr != nil {
						return werr
					}
					tail = tail[1:]
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return apperrors.NewIOError("read merge input", err)
		}
	}
	stats.LinesSkipped += len(tail)
	stats.Files++

	if m.opts.EnsureCRLF && last != nil && !bytes.HasSuffix(last, []byte("\n")) {
		n, err := io.WriteString(w, "\r\n")
		stats.BytesWritten += int64(n)
		if err != nil {
			return apperrors.NewIOError("write merged output", err)
		}
	}
	return nil
}
