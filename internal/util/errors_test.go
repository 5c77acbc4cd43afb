package util_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{util.BadInput("x"), http.StatusBadRequest},
		{util.Validation("x", nil), http.StatusUnprocessableEntity},
		{util.NotFound("x"), http.StatusNotFound},
		{util.Unauthorized("x"), http.StatusUnauthorized},
		{util.Internal("x"), http.StatusInternalServerError},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, util.HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := util.Wrap(io.ErrUnexpectedEOF, "load records")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "internal: load records", err.Error())
}

func TestWriteErrorHidesForeignErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	util.WriteError(rec, errors.New("dial tcp 10.0.0.1:3306: refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")

	rec = httptest.NewRecorder()
	util.WriteError(rec, util.Validation("bad upload", []int{3}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"])
	assert.Equal(t, []any{3.0}, body["details"])
}

func TestNewBatchIDUnique(t *testing.T) {
	a, b := util.NewBatchID(), util.NewBatchID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
