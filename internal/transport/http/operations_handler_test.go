package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dpt/internal/errors"
	"dpt/internal/operations"
)

type fakeExecutor struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	err     error
	reqs    []operations.OperationRequest
	active  int
	peak    int
}

func (f *fakeExecutor) Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationState, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.started != nil {
		f.started <- req.ID
	}
	if f.release != nil {
		<-f.release
	}
	state := operations.NewOperationState(req)
	state.Start()
	if f.err != nil {
		state.Fail(f.err)
		return state, f.err
	}
	state.Complete()
	return state, nil
}

func newOperationsRouter(h *OperationsHandler) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api/v1/operations", h.Routes())
	return r
}

func startOperation(t *testing.T, router http.Handler, body string) operations.OperationResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp operations.OperationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func getOperation(router http.Handler, id string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/operations/"+id, nil))
	return w
}

func TestOperationsHandler_Lifecycle(t *testing.T) {
	exec := &fakeExecutor{started: make(chan string, 1), release: make(chan struct{})}
	h := NewOperationsHandler(context.Background(), exec, "/data/downloads",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	accepted := startOperation(t, router, `{"encoding":"GBK","strict":true}`)
	require.NotEmpty(t, accepted.ID)
	assert.Equal(t, operations.OperationStatusPending, accepted.Status)
	assert.Equal(t, accepted.ID, <-exec.started)

	w := getOperation(router, accepted.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	close(exec.release)
	require.NoError(t, h.Wait(context.Background()))

	w = getOperation(router, accepted.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var done operations.OperationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, operations.OperationStatusCompleted, done.Status)

	require.Len(t, exec.reqs, 1)
	got := exec.reqs[0]
	assert.Equal(t, accepted.ID, got.ID)
	assert.Equal(t, "/data/downloads", got.Dir)
	assert.Equal(t, "GBK", got.Encoding)
	require.NotNil(t, got.Strict)
	assert.True(t, *got.Strict)
}

func TestOperationsHandler_Failure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("no inputs")}
	h := NewOperationsHandler(context.Background(), exec, "/data/downloads",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	accepted := startOperation(t, router, "")
	require.NoError(t, h.Wait(context.Background()))

	var resp operations.OperationResponse
	require.NoError(t, json.Unmarshal(getOperation(router, accepted.ID).Body.Bytes(), &resp))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, "no inputs", resp.Error)
}

func TestOperationsHandler_BadRequests(t *testing.T) {
	h := NewOperationsHandler(context.Background(), &fakeExecutor{}, "/data/downloads",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{"encoding":`, "INVALID_REQUEST"},
		{"bad encoding", `{"encoding":"latin1"}`, "encoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestOperationsHandler_NotFound(t *testing.T) {
	h := NewOperationsHandler(context.Background(), &fakeExecutor{}, "",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())

	w := getOperation(newOperationsRouter(h), "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperationsHandler_List(t *testing.T) {
	h := NewOperationsHandler(context.Background(), &fakeExecutor{}, "",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	first := startOperation(t, router, "")
	require.NoError(t, h.Wait(context.Background()))
	time.Sleep(2 * time.Millisecond)
	second := startOperation(t, router, "")
	require.NoError(t, h.Wait(context.Background()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []operations.OperationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestOperationsHandler_RunsOneAtATime(t *testing.T) {
	exec := &fakeExecutor{started: make(chan string, 3), release: make(chan struct{})}
	h := NewOperationsHandler(context.Background(), exec, "/data/downloads",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = startOperation(t, router, "").ID
	}

	first := <-exec.started
	select {
	case id := <-exec.started:
		t.Fatalf("operation %s started while %s was running", id, first)
	case <-time.After(50 * time.Millisecond):
	}

	pending := 0
	for _, id := range ids {
		if id == first {
			assert.Contains(t, getOperation(router, id).Body.String(), `"status":"running"`)
			continue
		}
		if strings.Contains(getOperation(router, id).Body.String(), `"status":"pending"`) {
			pending++
		}
	}
	assert.Equal(t, 2, pending)

	close(exec.release)
	require.NoError(t, h.Wait(context.Background()))

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Len(t, exec.reqs, 3)
	assert.Equal(t, 1, exec.peak)
	for _, id := range ids {
		var resp operations.OperationResponse
		require.NoError(t, json.Unmarshal(getOperation(router, id).Body.Bytes(), &resp))
		assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	}
}

func TestOperationsHandler_CancelledWhileQueued(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{started: make(chan string, 2), release: make(chan struct{})}
	h := NewOperationsHandler(ctx, exec, "/data/downloads",
		apperrors.NewErrorHandler(discardLogger(), false), discardLogger())
	router := newOperationsRouter(h)

	running := startOperation(t, router, "")
	require.Equal(t, running.ID, <-exec.started)
	queued := startOperation(t, router, "")

	cancel()
	close(exec.release)
	require.NoError(t, h.Wait(context.Background()))

	var resp operations.OperationResponse
	require.NoError(t, json.Unmarshal(getOperation(router, queued.ID).Body.Bytes(), &resp))
	if resp.Status == operations.OperationStatusFailed {
		assert.Equal(t, context.Canceled.Error(), resp.Error)
	} else {
		// The slot freed before the cancellation was observed.
		assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	}
}

func TestRunRegistry_Evicts(t *testing.T) {
	reg := newRunRegistry()
	reg.put(operations.OperationResponse{ID: "running", Status: operations.OperationStatusRunning})
	reg.put(operations.OperationResponse{ID: "queued", Status: operations.OperationStatusPending})
	for i := 0; i < maxRuns+5; i++ {
		reg.put(operations.OperationResponse{ID: fmt.Sprintf("run-%d", i), Status: operations.OperationStatusCompleted})
	}

	assert.LessOrEqual(t, len(reg.list()), maxRuns)
	_, ok := reg.get("running")
	assert.True(t, ok)
	_, ok = reg.get("queued")
	assert.True(t, ok)
}
