package album

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(t *testing.T, h *Handler, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	r := gin.New()
	r.POST("/albums", h.create)
	req := httptest.NewRequest(http.MethodPost, "/albums", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil)

	cases := map[string]map[string]string{
		"missing title":  {"artist": "Rahim"},
		"missing artist": {"title": "Monsoon"},
		"bad year":       {"title": "Monsoon", "artist": "Rahim", "releaseYear": "1850"},
		"year not int":   {"title": "Monsoon", "artist": "Rahim", "releaseYear": "soon"},
		"no cover":       {"title": "Monsoon", "artist": "Rahim", "releaseYear": "2024"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, postForm(t, h, fields).Code)
		})
	}
}
