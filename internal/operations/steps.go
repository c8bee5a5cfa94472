package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dpt/internal/charset"
	"dpt/internal/config"
	"dpt/internal/convert"
	"dpt/internal/exporter"
	"dpt/internal/files"
	"dpt/internal/infrastructure"
	"dpt/internal/st"
	"dpt/internal/storage"
)

// RunSink stores a finished aggregation.
type RunSink interface {
	SaveRun(ctx context.Context, run storage.Run, res *st.Result) (uuid.UUID, error)
}

// ConvertStep turns xlsx inputs into csv and collects the csv files to
// aggregate.
type ConvertStep struct {
	BaseStep
	converter *convert.Converter
	discovery *files.Discovery
	outDir    string
	logger    *slog.Logger
}

// NewConvertStep writes converted workbooks to outDir.
func NewConvertStep(converter *convert.Converter, outDir string, logger *slog.Logger) *ConvertStep {
	return &ConvertStep{
		BaseStep:  NewBaseStep(StepIDConvert, StepNameConvert),
		converter: converter,
		discovery: files.NewDiscovery(""),
		outDir:    outDir,
		logger:    logger,
	}
}

// Execute implements Step. It returns ErrSkipped when no workbook needed
// converting.
func (s *ConvertStep) Execute(ctx context.Context, state *OperationState) error {
	inputs := state.Request.Inputs
	if len(inputs) == 0 {
		if state.Request.Dir == "" {
			return NewValidationError(s.ID(), "no inputs and no input directory")
		}
		found, err := s.discovery.FindFiles(state.Request.Dir, files.ExtCSV, files.ExtXLSX)
		if err != nil {
			return err
		}
		if !state.Request.Since.IsZero() {
			found = files.FilterModifiedSince(found, state.Request.Since)
		}
		inputs = files.Paths(found)
	}
	if len(inputs) == 0 {
		return NewValidationError(s.ID(), "no .csv or .xlsx inputs found")
	}

	csvs := make([]string, 0, len(inputs))
	converted := 0
	for _, in := range inputs {
		if !strings.EqualFold(filepath.Ext(in), files.ExtXLSX) {
			csvs = append(csvs, in)
			continue
		}
		res, err := s.converter.ConvertFile(ctx, in, s.outDir)
		if err != nil {
			return stepError(s.ID(), "convert %s: %w", filepath.Base(in), err)
		}
		csvs = append(csvs, res.Output)
		converted++
	}

	state.SetContext(ContextKeyInputs, csvs)
	s.logger.DebugContext(ctx, "inputs collected",
		slog.Int("inputs", len(csvs)),
		slog.Int("converted", converted))
	if converted == 0 {
		return ErrSkipped
	}
	return nil
}

// AggregateStep feeds every input through one Aggregator.
type AggregateStep struct {
	BaseStep
	opts    st.Options
	metrics *infrastructure.BusinessMetrics
}

// NewAggregateStep uses opts unless the request overrides encoding or
// strictness.
func NewAggregateStep(opts st.Options, metrics *infrastructure.BusinessMetrics) *AggregateStep {
	return &AggregateStep{
		BaseStep: NewBaseStep(StepIDAggregate, StepNameAggregate),
		opts:     opts,
		metrics:  metrics,
	}
}

// Execute implements Step.
func (s *AggregateStep) Execute(ctx context.Context, state *OperationState) error {
	inputs := state.Inputs()
	if len(inputs) == 0 {
		return NewValidationError(s.ID(), "no csv inputs")
	}

	opts, err := s.options(state.Request)
	if err != nil {
		return NewValidationError(s.ID(), err.Error())
	}

	start := time.Now()
	agg := st.NewAggregator(opts)
	for _, path := range inputs {
		if err := feedFile(ctx, agg, path); err != nil {
			return err
		}
	}
	res, err := agg.Finish()
	if err != nil {
		return err
	}

	infrastructure.RecordAggregation(ctx, s.metrics,
		int64(res.Stats.RowsRead), int64(res.Stats.Aggregated),
		int64(res.Stats.Skipped), int64(res.Stats.ZeroQuantity),
		time.Since(start), opts.Strict)

	state.SetContext(ContextKeyResult, res)
	return nil
}

func (s *AggregateStep) options(req OperationRequest) (st.Options, error) {
	opts := s.opts
	if req.Encoding != "" {
		enc, err := charset.Parse(req.Encoding)
		if err != nil {
			return opts, err
		}
		opts.Encoding = enc
	}
	if req.Strict != nil {
		opts.Strict = *req.Strict
	}
	return opts, nil
}

func feedFile(ctx context.Context, agg *st.Aggregator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return agg.Feed(ctx, f, path)
}

// ExportStep writes the three report files.
type ExportStep struct {
	BaseStep
	writer *exporter.STReportWriter
}

// NewExportStep creates an export step around writer.
func NewExportStep(writer *exporter.STReportWriter) *ExportStep {
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, StepNameExport),
		writer:   writer,
	}
}

// Execute implements Step.
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	res := state.Result()
	if res == nil {
		return NewValidationError(s.ID(), "no aggregation result")
	}
	paths, err := s.writer.WriteAll(res, state.Request.OutDir)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyReports, paths)
	return nil
}

// PersistStep saves the result through a RunSink.
type PersistStep struct {
	BaseStep
	sink     RunSink
	encoding string
	strict   bool
}

// NewPersistStep creates a persist step. A nil sink makes the step a no-op.
func NewPersistStep(sink RunSink, encoding string, strict bool) *PersistStep {
	return &PersistStep{
		BaseStep: NewBaseStep(StepIDPersist, StepNamePersist),
		sink:     sink,
		encoding: encoding,
		strict:   strict,
	}
}

// Execute implements Step.
func (s *PersistStep) Execute(ctx context.Context, state *OperationState) error {
	if s.sink == nil {
		return ErrSkipped
	}
	res := state.Result()
	if res == nil {
		return NewValidationError(s.ID(), "no aggregation result")
	}

	run := storage.Run{
		Source:   strings.Join(state.Inputs(), ","),
		Encoding: s.encoding,
		Strict:   s.strict,
	}
	if state.Request.Encoding != "" {
		run.Encoding = state.Request.Encoding
	}
	if state.Request.Strict != nil {
		run.Strict = *state.Request.Strict
	}

	id, err := s.sink.SaveRun(ctx, run, res)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyRunID, id.String())
	return nil
}

// NewPipeline assembles the convert, aggregate, export and persist steps
// from cfg. sink may be nil.
func NewPipeline(cfg *config.Config, paths *config.Paths, sink RunSink, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := st.NewOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	convEnc, err := charset.Parse(cfg.Convert.Encoding)
	if err != nil {
		return nil, err
	}

	converter := convert.NewConverter(convert.Options{
		Sheet:    cfg.Convert.Sheet,
		Encoding: convEnc,
		Workers:  cfg.Convert.Workers,
		Logger:   logger,
	})
	writer := exporter.NewSTReportWriter(exporter.NewCSVWriter(paths), opts.Warehouses)

	return NewManager(logger, metrics,
		NewConvertStep(converter, paths.ConvertedDir, logger),
		NewAggregateStep(opts, metrics),
		NewExportStep(writer),
		NewPersistStep(sink, cfg.Aggregate.Encoding, cfg.Aggregate.Strict),
	), nil
}
