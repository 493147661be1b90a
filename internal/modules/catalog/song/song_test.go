package song

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTrendingKey(t *testing.T) {
	at := time.Date(2026, 7, 4, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	assert.Equal(t, "soundscape:trending:2026-07-05", trendingKey(at))
}

func TestOrderByIDs(t *testing.T) {
	songs := []models.Song{
		{Base: models.Base{ID: "a"}},
		{Base: models.Base{ID: "b"}},
		{Base: models.Base{ID: "c"}},
	}
	out := orderByIDs(songs, []string{"c", "missing", "a"})
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}

func TestListFilter(t *testing.T) {
	assert.Empty(t, listFilter(ListFilter{}))

	f := listFilter(ListFilter{Genre: "Pop"})
	assert.Equal(t, bson.M{"$regex": "^Pop$", "$options": "i"}, f["genre"])

	f = listFilter(ListFilter{Artist: "a1", Search: "love"})
	assert.NotContains(t, f, "$or")
	assert.Len(t, f["$and"], 2)
}

func TestSongFromForm(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parse := func(form url.Values) (*models.Song, error) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/songs", strings.NewReader(form.Encode()))
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return songFromForm(c)
	}

	song, err := parse(url.Values{"title": {"Tumi"}, "artist": {"Shironamhin"}, "albumId": {"al1"}, "duration": {"245"}})
	require.NoError(t, err)
	assert.Equal(t, "Tumi", song.Title)
	require.NotNil(t, song.AlbumID)
	assert.Equal(t, "al1", *song.AlbumID)
	assert.Equal(t, 245, song.Duration)

	song, err = parse(url.Values{"title": {"Tumi"}, "artist": {"X"}, "albumId": {"none"}})
	require.NoError(t, err)
	assert.Nil(t, song.AlbumID)

	_, err = parse(url.Values{"title": {"Tumi"}})
	assert.Error(t, err)

	_, err = parse(url.Values{"title": {"Tumi"}, "artist": {"X"}, "duration": {"long"}})
	assert.Error(t, err)
}
