package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"dpt/internal/charset"
	apperrors "dpt/internal/errors"
	"dpt/internal/exporter"
	"dpt/internal/infrastructure"
	"dpt/internal/operations"
	"dpt/internal/st"
	"dpt/internal/storage"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// AggregateQuery holds the query parameters of an aggregation request.
type AggregateQuery struct {
	Encoding string `query:"encoding" validate:"omitempty,oneof=UTF8 UTF-8 GBK GB18030"`
	Strict   string `query:"strict" validate:"omitempty,boolean"`
}

// AggregateResponse is the body of a successful aggregation.
type AggregateResponse struct {
	RunID   string           `json:"run_id,omitempty"`
	Stats   st.Stats         `json:"stats"`
	Reports []exporter.Table `json:"reports"`
}

// STHandler aggregates uploaded ST exports.
type STHandler struct {
	opts      st.Options
	reports   *exporter.STReportWriter
	sink      operations.RunSink
	maxUpload int64
	validate  *validator.Validate
	errors    *apperrors.ErrorHandler
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewSTHandler creates a handler aggregating with opts. sink and metrics may
// be nil.
func NewSTHandler(opts st.Options, sink operations.RunSink, maxUpload int64, errHandler *apperrors.ErrorHandler, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *STHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})

	return &STHandler{
		opts:      opts,
		reports:   exporter.NewSTReportWriter(nil, opts.Warehouses),
		sink:      sink,
		maxUpload: maxUpload,
		validate:  v,
		errors:    errHandler,
		metrics:   metrics,
		logger:    logger.With(slog.String("handler", "st")),
	}
}

// Routes sets up the ST routes
func (h *STHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/aggregate", h.Aggregate)
	return r
}

// Aggregate handles POST /api/v1/st/aggregate
func (h *STHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := AggregateQuery{
		Encoding: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("encoding"))),
		Strict:   strings.TrimSpace(r.URL.Query().Get("strict")),
	}
	opts, err := h.options(q)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	if h.maxUpload > 0 {
		if r.ContentLength > h.maxUpload {
			h.errors.HandleError(w, r, apperrors.ErrPayloadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errors.HandleError(w, r, apperrors.ErrPayloadTooLarge)
			return
		}
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := r.MultipartForm.File["file"]
	if len(uploads) == 0 {
		h.errors.HandleError(w, r, apperrors.ErrValidation("file", "at least one file is required"))
		return
	}

	start := time.Now()
	agg := st.NewAggregator(opts)
	names := make([]string, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			h.errors.HandleError(w, r, apperrors.NewIOError(fmt.Sprintf("open upload %s", fh.Filename), err))
			return
		}
		err = agg.Feed(ctx, f, fh.Filename)
		f.Close()
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		names = append(names, fh.Filename)
	}

	res, err := agg.Finish()
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	infrastructure.RecordAggregation(ctx, h.metrics,
		int64(res.Stats.RowsRead), int64(res.Stats.Aggregated),
		int64(res.Stats.Skipped), int64(res.Stats.ZeroQuantity),
		time.Since(start), opts.Strict)

	resp := AggregateResponse{Stats: res.Stats, Reports: h.reports.Tables(res)}

	if h.sink != nil {
		id, err := h.sink.SaveRun(ctx, storage.Run{
			Source:   strings.Join(names, ","),
			Encoding: opts.Encoding.String(),
			Strict:   opts.Strict,
		}, res)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		resp.RunID = id.String()
	}

	h.logger.InfoContext(ctx, "upload aggregated",
		slog.Int("files", len(names)),
		slog.Int("rows_read", res.Stats.RowsRead),
		slog.Int("rows_skipped", res.Stats.Skipped),
		slog.String("run_id", resp.RunID))

	render.JSON(w, r, resp)
}

// options applies the query overrides to the configured options.
func (h *STHandler) options(q AggregateQuery) (st.Options, error) {
	opts := h.opts

	if err := h.validate.Struct(q); err != nil {
		return opts, validationError(err)
	}

	if q.Encoding != "" {
		enc, err := charset.Parse(q.Encoding)
		if err != nil {
			return opts, err
		}
		opts.Encoding = enc
	}
	if q.Strict != "" {
		strict, err := strconv.ParseBool(q.Strict)
		if err != nil {
			return opts, apperrors.ErrValidation("strict", err.Error())
		}
		opts.Strict = strict
	}
	return opts, nil
}
