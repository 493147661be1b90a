package history

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequiresSongID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil)
	r := gin.New()
	r.POST("/listening-history", h.record)

	for _, body := range []string{`{}`, `{"songId":""}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/listening-history", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCutoff(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.FixedZone("BST", 6*3600))
	s := &Service{now: func() time.Time { return fixed }}
	got := s.cutoff(180 * 24 * time.Hour)
	assert.Equal(t, time.Date(2025, 12, 3, 6, 0, 0, 0, time.UTC), got)
}
