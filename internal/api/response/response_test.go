// internal/api/response/response_test.go
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"hello": "world"}, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestError_CoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadGateway, core.WrapError(core.ErrExportFailed, fmt.Errorf("kpis: boom")))

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "EXPORT_FAILED", resp.Error.Code)
	assert.Equal(t, "export failed", resp.Error.Message)
	assert.Equal(t, "kpis: boom", resp.Error.Cause)
}

func TestPaged(t *testing.T) {
	w := httptest.NewRecorder()

	Paged(w, []int{1, 2}, Page{Total: 12, Limit: 2, Offset: 4})

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta.Page)
	assert.Equal(t, Page{Total: 12, Limit: 2, Offset: 4}, *resp.Meta.Page)
}

func TestJSON_OmitsPage(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, nil)
	assert.NotContains(t, w.Body.String(), `"page"`)
}

func TestError_RelaysBackendStatus(t *testing.T) {
	w := httptest.NewRecorder()

	Fail(w, &client.APIError{Status: http.StatusServiceUnavailable, Message: "maintenance"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "API_STATUS", resp.Error.Code)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Error.Upstream)
	assert.Equal(t, "maintenance", resp.Error.Cause)
}

func TestError_GenericError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("some error"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Cause)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.WrapError(core.ErrBadRequest, errors.New("page")), http.StatusBadRequest},
		{core.ErrNoData, http.StatusNotFound},
		{core.WrapError(core.ErrTransport, errors.New("dial")), http.StatusBadGateway},
		{core.ErrExportFailed, http.StatusBadGateway},
		{core.ErrArchiveFailed, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestFail(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(w, core.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
