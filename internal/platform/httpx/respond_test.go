package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONWritesStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusServiceUnavailable, Health{Status: "degraded", Database: "unavailable"})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"degraded","database":"unavailable"}`, rr.Body.String())
}

func TestJSONOmitsEmptyDatabase(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, Health{Status: "ok"})
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
