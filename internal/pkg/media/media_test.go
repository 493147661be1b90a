package media

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	key := ObjectKey("/songs/", "My Track.MP3", now)
	assert.True(t, strings.HasPrefix(key, "songs/2026/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".mp3"), key)

	assert.True(t, strings.HasPrefix(ObjectKey("", "cover", now), "misc/2026/03/"))
}

func TestNewWithoutBucketIsDisabled(t *testing.T) {
	u, err := New(Options{})
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "songs", "a.mp3", strings.NewReader("x"), "audio/mpeg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewRejectsPartialCredentials(t *testing.T) {
	_, err := New(Options{Bucket: "media", Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	u, err := New(Options{Bucket: "media", Region: "eu-west-1", AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/k", u.(*s3Uploader).publicURL("k"))

	u, err = New(Options{Bucket: "media", Region: "auto", AccessKeyID: "a", SecretAccessKey: "b", Endpoint: "minio.local:9000"})
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local:9000/media/k", u.(*s3Uploader).publicURL("k"))

	u, err = New(Options{Bucket: "media", Region: "auto", AccessKeyID: "a", SecretAccessKey: "b", CustomDomain: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/k", u.(*s3Uploader).publicURL("k"))
}

type memUploader struct {
	folder, filename, contentType string
}

func (m *memUploader) Upload(_ context.Context, folder, filename string, _ io.Reader, contentType string) (string, error) {
	m.folder, m.filename, m.contentType = folder, filename, contentType
	return "https://cdn.example.com/" + folder + "/" + filename, nil
}

func TestUploadFormFile(t *testing.T) {
	fh := formFile(t, "track.mp3", "audio/mpeg")
	up := &memUploader{}

	url, err := UploadFormFile(context.Background(), up, "songs", fh, "audio/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/songs/track.mp3", url)
	assert.Equal(t, "audio/mpeg", up.contentType)

	_, err = UploadFormFile(context.Background(), up, "songs", formFile(t, "x.exe", "application/x-msdownload"), "audio/")
	assert.Error(t, err)

	_, err = UploadFormFile(context.Background(), up, "songs", nil)
	assert.Error(t, err)
}

func formFile(t *testing.T, name, contentType string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}
