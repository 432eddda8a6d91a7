package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogInvalid(t *testing.T) {
	w := httptest.NewRecorder()
	LogInvalid(w, "request.criteria", errors.New("date range is required"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date range is required\n", w.Body.String())
}

func TestLogNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	LogNotFound(w, "delete_response", "42")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteAttachment(w, "resumen.xlsx", "application/octet-stream", []byte("abc"))

	assert.NoError(t, err)
	assert.Equal(t, "application/octet-stream", w.Header().Get("content-type"))
	assert.Equal(t, `attachment; filename="resumen.xlsx"`, w.Header().Get("content-disposition"))
	assert.Equal(t, "3", w.Header().Get("content-length"))
	assert.Equal(t, "abc", w.Body.String())
}
