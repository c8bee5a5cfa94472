// Package convert turns ERP workbooks into csv files the aggregator reads.
package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"dpt/internal/charset"
	apperrors "dpt/internal/errors"
	"dpt/internal/files"
	"dpt/internal/infrastructure"
	"dpt/internal/st"
)

// DefaultSheet is the worksheet ERP exports put their grid on.
const DefaultSheet = "Sheet1"

// Options configure a Converter.
type Options struct {
	Sheet    string
	Encoding charset.Encoding
	// Workers bounds concurrent conversions in ConvertDir. Zero means
	// runtime.NumCPU.
	Workers int
	Logger  *slog.Logger
}

// Result describes one converted workbook.
type Result struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Rows   int    `json:"rows"`
}

// Converter writes one worksheet of a workbook as csv.
type Converter struct {
	opts   Options
	logger *slog.Logger
}

// NewConverter applies defaults to opts.
func NewConverter(opts Options) *Converter {
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{opts: opts, logger: infrastructure.WithComponent(logger, "converter")}
}

// ConvertFile writes <outDir>/<stem>.csv from the workbook at path.
func (c *Converter) ConvertFile(ctx context.Context, path, outDir string) (Result, error) {
	res := Result{Source: path}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return res, apperrors.NewIOError(fmt.Sprintf("open workbook %s", path), err)
	}
	defer wb.Close()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return res, apperrors.NewIOError("failed to create output directory", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res.Output = filepath.Join(outDir, stem+".csv")

	out, err := os.Create(res.Output)
	if err != nil {
		return res, apperrors.NewIOError("failed to create csv", err)
	}

	res.Rows, err = c.Write(ctx, out, wb)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = apperrors.NewIOError("failed to close csv", cerr)
	}
	if err != nil {
		os.Remove(res.Output)
		return res, err
	}

	c.logger.InfoContext(ctx, "workbook converted",
		slog.String("source", path),
		slog.String("output", res.Output),
		slog.Int("rows", res.Rows))
	return res, nil
}

// Write streams the configured sheet of wb to w: comma separated cells,
// CRLF line endings, encoded in the configured charset.
func (c *Converter) Write(ctx context.Context, w io.Writer, wb *excelize.File) (int, error) {
	idx, err := wb.GetSheetIndex(c.opts.Sheet)
	if err != nil || idx < 0 {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("worksheet `%s`", c.opts.Sheet))
	}

	rows, err := wb.Rows(c.opts.Sheet)
	if err != nil {
		return 0, apperrors.NewIOError("read worksheet", err)
	}
	defer rows.Close()

	enc := c.opts.Encoding.NewWriter(w)
	bw := bufio.NewWriter(enc)

	n := 0
	for rows.Next() {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		cells, err := rows.Columns()
		if err != nil {
			return n, apperrors.NewIOError("read row", err)
		}
		if _, err := bw.WriteString(Line(cells)); err != nil {
			return n, apperrors.NewIOError("write csv", err)
		}
		n++
	}
	if err := rows.Error(); err != nil {
		return n, apperrors.NewIOError("read worksheet", err)
	}

	if err := bw.Flush(); err != nil {
		return n, apperrors.NewIOError("write csv", err)
	}
	if err := enc.Close(); err != nil {
		return n, apperrors.NewIOError("write csv", err)
	}
	return n, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Line renders one worksheet row terminated by "\r\n". Line breaks inside a
// cell become spaces so every row stays on one physical line.
func Line(cells []string) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		cell = lineBreaks.Replace(cell)
		b.WriteString(st.Quote(cell))
	}
	b.WriteString("\r\n")
	return b.String()
}

// ConvertDir converts every workbook in dir concurrently. The first failure
// cancels the remaining conversions.
func (c *Converter) ConvertDir(ctx context.Context, dir, outDir string) ([]Result, error) {
	workbooks, err := files.NewDiscovery("").FindExcelFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(workbooks) == 0 {
		c.logger.WarnContext(ctx, "no workbooks found", slog.String("dir", dir))
		return nil, nil
	}

	results := make([]Result, len(workbooks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for i, wb := range workbooks {
		g.Go(func() error {
			res, err := c.ConvertFile(gctx, wb.Path, outDir)
			if err != nil {
				return fmt.Errorf("convert %s: %w", wb.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
