package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/api/middleware"
	"github.com/meteoboard/meteoboard/internal/api/models"
	"github.com/meteoboard/meteoboard/internal/api/response"
)

// withRequestID runs req through the RequestID middleware and returns the
// request as the handler saw it.
func withRequestID(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	return processed
}

func TestJSON(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodGet, "/v1/stations", http.NoBody))
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"name": "Montaudran"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-Id"), "req_"))
	assert.JSONEq(t, `{"name":"Montaudran"}`, rec.Body.String())
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusOK, nil)

	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Text(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusOK, []byte("DATE: 01/01/2025\n"))

	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "DATE: 01/01/2025\n", rec.Body.String())
}

func TestCreatedAndNoContent(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/stations", http.NoBody)

	rec := httptest.NewRecorder()
	response.Created(rec, req, "/v1/stations/X", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/stations/X", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	response.NoContent(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrors_UseRequestPath(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodGet, "/v1/stations/missing", http.NoBody))

	tests := []struct {
		write  func(http.ResponseWriter, *http.Request)
		status int
	}{
		{func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "d") }, http.StatusNotFound},
		{func(w http.ResponseWriter, r *http.Request) { response.Conflict(w, r, "d") }, http.StatusConflict},
		{func(w http.ResponseWriter, r *http.Request) { response.BadRequest(w, r, "d", nil) }, http.StatusBadRequest},
		{func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "d") }, http.StatusInternalServerError},
		{func(w http.ResponseWriter, r *http.Request) { response.BadGateway(w, r, "d") }, http.StatusBadGateway},
		{func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "d") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.write(rec, req)

		var p models.Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.status, p.Status)
		assert.Equal(t, "/v1/stations/missing", p.Instance)
		assert.Equal(t, middleware.GetRequestID(req.Context()), p.TraceID)
	}
}

func TestDecode(t *testing.T) {
	decode := func(body string) (models.UpdateURLRequest, error) {
		var dst models.UpdateURLRequest
		err := response.Decode(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)), &dst)
		return dst, err
	}

	got, err := decode(`{"url":"http://x"}`)
	require.NoError(t, err)
	assert.Equal(t, "http://x", got.URL)

	_, err = decode(``)
	assert.ErrorContains(t, err, "empty")
	_, err = decode(`{"url":`)
	assert.Error(t, err)
	_, err = decode(`{"link":"http://x"}`)
	assert.Error(t, err, "unknown fields are rejected")
	_, err = decode(`{"url":"a"} {"url":"b"}`)
	assert.Error(t, err)
}
