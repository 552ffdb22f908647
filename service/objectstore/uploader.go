package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jazbelrose/mylg-chat/tools/errs"
)

// HTTPUploader PUTs attachment bytes to an upload endpoint and derives the
// permanent public URL from the key. Matches object stores fronted by a
// simple signed-PUT gateway.
type HTTPUploader struct {
	uploadBase string
	publicBase string
	http       *http.Client
}

func NewHTTPUploader(uploadBase, publicBase string) *HTTPUploader {
	return &HTTPUploader{
		uploadBase: strings.TrimRight(uploadBase, "/"),
		publicBase: strings.TrimRight(publicBase, "/"),
		http:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	target := u.uploadBase + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(data))

	resp, err := u.http.Do(req)
	if err != nil {
		return "", errs.ErrUploadFailed.WithDetail(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errs.ErrUploadFailed.WithDetail(
			fmt.Sprintf("status %d: %s", resp.StatusCode, raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return u.publicBase + "/" + escapeKey(key), nil
}

// escapeKey escapes each path segment while keeping the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
