package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	pkgcron "github.com/soundscape/server/internal/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBehindGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil)

	allow := true
	gate := func(c *gin.Context) {
		if !allow {
			c.AbortWithStatus(http.StatusForbidden)
		}
	}
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), func(*gin.Context) {}, gate)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/check", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["admin"])

	allow = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sched := pkgcron.New(nil)
	runs := 0
	sched.Register(pkgcron.Job{
		Name:     "presence_orphan_sweep",
		Interval: time.Hour,
		Fn: func(context.Context) error {
			runs++
			return nil
		},
	})
	h := NewHandler(nil, nil, sched)
	r := gin.New()
	open := func(*gin.Context) {}
	h.RegisterRoutes(r.Group("/api"), open, open)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/jobs/presence_orphan_sweep/run", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runs)

	var body struct {
		Data []pkgcron.ListItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, pkgcron.StatusFulfill, body.Data[0].Status)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/jobs/missing/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
