package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "dpt/internal/errors"
	"dpt/internal/operations"
)

// Executor runs a pipeline request.
type Executor interface {
	Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationState, error)
}

// RunRequest is the optional body of a pipeline run. Inputs always come
// from the server's downloads directory.
type RunRequest struct {
	Encoding string `json:"encoding" validate:"omitempty,oneof=UTF8 UTF-8 GBK GB18030"`
	Strict   *bool  `json:"strict"`
}

// OperationsHandler starts pipeline runs in the background and reports
// their progress. Runs share the converted and report directories, so they
// execute one at a time in the order they were accepted.
type OperationsHandler struct {
	exec   Executor
	dir    string
	ctx    context.Context
	runs   *runRegistry
	slot   chan struct{}
	wg     sync.WaitGroup
	valid  *validator.Validate
	errors *apperrors.ErrorHandler
	logger *slog.Logger
}

// NewOperationsHandler creates a handler running exec over the exports in
// dir. Runs are bound to ctx, not to the request that started them.
func NewOperationsHandler(ctx context.Context, exec Executor, dir string, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *OperationsHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return &OperationsHandler{
		exec:   exec,
		dir:    dir,
		ctx:    ctx,
		runs:   newRunRegistry(),
		slot:   make(chan struct{}, 1),
		valid:  v,
		errors: errHandler,
		logger: logger.With(slog.String("handler", "operations")),
	}
}

// Routes sets up the operation routes
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// Start handles POST /api/v1/operations
func (h *OperationsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.valid.Struct(body); err != nil {
		h.errors.HandleError(w, r, validationError(err))
		return
	}

	req := operations.OperationRequest{
		ID:       uuid.NewString(),
		Dir:      h.dir,
		Encoding: body.Encoding,
		Strict:   body.Strict,
	}
	accepted := operations.OperationResponse{
		ID:     req.ID,
		Status: operations.OperationStatusPending,
	}
	h.runs.put(accepted)

	h.wg.Add(1)
	go h.run(req)

	h.logger.InfoContext(r.Context(), "operation accepted", slog.String("operation_id", req.ID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, accepted)
}

func (h *OperationsHandler) run(req operations.OperationRequest) {
	defer h.wg.Done()

	select {
	case h.slot <- struct{}{}:
	case <-h.ctx.Done():
		h.runs.put(operations.OperationResponse{
			ID:     req.ID,
			Status: operations.OperationStatusFailed,
			Error:  h.ctx.Err().Error(),
		})
		return
	}
	defer func() { <-h.slot }()

	h.runs.put(operations.OperationResponse{ID: req.ID, Status: operations.OperationStatusRunning})
	state, err := h.exec.Execute(h.ctx, req)
	if state == nil {
		resp := operations.OperationResponse{ID: req.ID, Status: operations.OperationStatusFailed}
		if err != nil {
			resp.Error = err.Error()
		}
		h.runs.put(resp)
		return
	}
	h.runs.put(operations.Response(state))
}

// Get handles GET /api/v1/operations/{id}
func (h *OperationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, ok := h.runs.get(id)
	if !ok {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError(fmt.Sprintf("operation %s", id)))
		return
	}
	render.JSON(w, r, resp)
}

// List handles GET /api/v1/operations
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.runs.list())
}

// Wait blocks until every started run has finished or ctx is done.
func (h *OperationsHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maxRuns bounds how many finished runs are remembered.
const maxRuns = 100

type runEntry struct {
	resp    operations.OperationResponse
	updated time.Time
}

type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]runEntry
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]runEntry)}
}

func (r *runRegistry) put(resp operations.OperationResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[resp.ID] = runEntry{resp: resp, updated: time.Now()}
	if len(r.runs) > maxRuns {
		r.evict()
	}
}

// evict drops the oldest finished run. Caller holds mu.
func (r *runRegistry) evict() {
	var oldest string
	var oldestAt time.Time
	for id, e := range r.runs {
		if status := e.resp.Status; status == operations.OperationStatusRunning || status == operations.OperationStatusPending {
			continue
		}
		if oldest == "" || e.updated.Before(oldestAt) {
			oldest, oldestAt = id, e.updated
		}
	}
	if oldest != "" {
		delete(r.runs, oldest)
	}
}

func (r *runRegistry) get(id string) (operations.OperationResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.runs[id]
	return e.resp, ok
}

// list returns every run, newest first.
func (r *runRegistry) list() []operations.OperationResponse {
	r.mu.RLock()
	entries := make([]runEntry, 0, len(r.runs))
	for _, e := range r.runs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].updated.After(entries[j].updated) })
	out := make([]operations.OperationResponse, len(entries))
	for i, e := range entries {
		out[i] = e.resp
	}
	return out
}

// validationError converts validator errors into a field-level API error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.InvalidRequestWithError(err)
	}
	fields := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("invalid value %q (%s)", fe.Value(), fe.Tag()),
		})
	}
	return apperrors.NewValidationErrors(fields)
}
