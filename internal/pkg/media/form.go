package media

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
)

// UploadFormFile streams a multipart file to the media host. Files whose
// content type does not start with one of the allowed prefixes are rejected.
func UploadFormFile(ctx context.Context, u Uploader, folder string, fh *multipart.FileHeader, allowed ...string) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("file is required")
	}
	contentType := fh.Header.Get("Content-Type")
	if len(allowed) > 0 && !hasAnyPrefix(contentType, allowed) {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return u.Upload(ctx, folder, fh.Filename, f, contentType)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
