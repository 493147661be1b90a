package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFromContextClampsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query string
		want  Query
	}{
		{"", Query{Page: 1, Size: DefaultSize}},
		{"?page=3&size=5", Query{Page: 3, Size: 5}},
		{"?page=-2&size=0", Query{Page: 1, Size: DefaultSize}},
		{"?page=abc&size=1000", Query{Page: 1, Size: MaxSize}},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/songs"+tc.query, nil)
		assert.Equal(t, tc.want, FromContext(c), tc.query)
	}
}

func TestMeta(t *testing.T) {
	q := Query{Page: 2, Size: 10}
	meta := Meta(q, 25)

	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, 3, meta.TotalPage)
	assert.True(t, meta.HasNextPage)
	assert.Equal(t, int64(10), q.Skip())

	last := Meta(Query{Page: 3, Size: 10}, 25)
	assert.False(t, last.HasNextPage)
}
