package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpt/internal/charset"
	apperrors "dpt/internal/errors"
	"dpt/internal/exporter"
	"dpt/internal/operations"
	"dpt/internal/st"
	"dpt/internal/storage"
)

const (
	testHeader = "mid,sid,wid,mname,sname,qt,at,dt\n"
	goodRows   = "1,100,11751,A,S1,5,50.0,2021/01/10\n" +
		"1,100,11751,A,S1,3,30.0,2021/01/12\n"
	badRows = "1,100,11751,A,S1,5,50.0,2021/01/10\n" +
		"2,100,11751,B,S1,abc,10,2021/01/10\n"
)

type fakeSink struct {
	id   uuid.UUID
	err  error
	runs []storage.Run
}

func (f *fakeSink) SaveRun(_ context.Context, run storage.Run, _ *st.Result) (uuid.UUID, error) {
	f.runs = append(f.runs, run)
	return f.id, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(t *testing.T) st.Options {
	t.Helper()
	table := make(map[string][]string)
	for _, key := range st.RangeKeys() {
		table[key] = nil
	}
	table["range_jmj_local"] = []string{"100-199"}
	ranges, err := st.ParseStoreRanges(table)
	require.NoError(t, err)

	return st.Options{
		Fields:     st.Fields{"mid", "sid", "wid", "mname", "sname", "qt", "at", "dt"},
		Ranges:     ranges,
		Warehouses: st.Warehouses{11751, 11752, 11753, 11754, 11755, 11756, 11759},
		Encoding:   charset.UTF8,
		Logger:     discardLogger(),
	}
}

func newTestServer(t *testing.T, sink *fakeSink, maxUpload int64) http.Handler {
	t.Helper()
	var s operations.RunSink
	if sink != nil {
		s = sink
	}
	h := NewSTHandler(testOptions(t), s, maxUpload, apperrors.NewErrorHandler(discardLogger(), false), nil, discardLogger())

	r := chi.NewRouter()
	r.Mount("/api/v1/st", h.Routes())
	return r
}

func uploadRequest(t *testing.T, query string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/st/aggregate"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSTHandler_Aggregate(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "", map[string]string{"a.csv": testHeader + goodRows}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.RunID)
	assert.Equal(t, 1, resp.Stats.Files)
	assert.Equal(t, 2, resp.Stats.RowsRead)
	assert.Equal(t, 2, resp.Stats.Aggregated)

	require.Len(t, resp.Reports, 3)
	assert.Equal(t, exporter.SKUFile, resp.Reports[0].Name)
	require.Len(t, resp.Reports[0].Rows, 1)
	assert.Equal(t, "1", resp.Reports[0].Rows[0][0])
	assert.Equal(t, exporter.StoreFile, resp.Reports[1].Name)
	assert.Equal(t, exporter.BrandFile, resp.Reports[2].Name)
}

func TestSTHandler_MultipleFiles(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "", map[string]string{
		"a.csv": testHeader + goodRows,
		"b.csv": testHeader + "2,100,11751,B,S1,1,10,2021/01/11\n",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Stats.Files)
	assert.Equal(t, 3, resp.Stats.Aggregated)
	assert.Len(t, resp.Reports[0].Rows, 2)
}

func TestSTHandler_StrictMalformed(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "?strict=true", map[string]string{"bad.csv": testHeader + badRows}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, apperrors.TypeMalformedData, body["type"])
	assert.Equal(t, "MALFORMED_DATA", body["error_code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), details["line"])
}

func TestSTHandler_LenientSkips(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "?strict=false&encoding=gbk", map[string]string{"bad.csv": testHeader + badRows}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Skipped)
	assert.Equal(t, 1, resp.Stats.Aggregated)
}

func TestSTHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		files  map[string]string
		status int
		field  string
	}{
		{"bad encoding", "?encoding=latin1", map[string]string{"a.csv": testHeader}, http.StatusBadRequest, "encoding"},
		{"bad strict", "?strict=maybe", map[string]string{"a.csv": testHeader}, http.StatusBadRequest, "strict"},
		{"no file", "", nil, http.StatusBadRequest, "file"},
	}

	srv := newTestServer(t, nil, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, uploadRequest(t, tt.query, tt.files))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, apperrors.TypeValidation, body["type"])
			assert.Contains(t, rec.Body.String(), `"`+tt.field+`"`)
		})
	}
}

func TestSTHandler_NotMultipart(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/st/aggregate", strings.NewReader("mid,sid"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSTHandler_PayloadTooLarge(t *testing.T) {
	srv := newTestServer(t, nil, 64)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "", map[string]string{"a.csv": testHeader + strings.Repeat(goodRows, 10)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestSTHandler_Persist(t *testing.T) {
	sink := &fakeSink{id: uuid.New()}
	srv := newTestServer(t, sink, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "?strict=1", map[string]string{"a.csv": testHeader + goodRows}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sink.id.String(), resp.RunID)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, storage.Run{Source: "a.csv", Encoding: "UTF8", Strict: true}, sink.runs[0])
}

func TestSTHandler_PersistFailure(t *testing.T) {
	sink := &fakeSink{err: apperrors.NewStorageError("failed to insert run", io.ErrUnexpectedEOF)}
	srv := newTestServer(t, sink, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "", map[string]string{"a.csv": testHeader + goodRows}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.TypeStorage, decode(t, rec)["type"])
}
