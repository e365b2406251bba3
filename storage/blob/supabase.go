// Package blob stores question attachments and hands back their public URL.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/question"
)

// SupabaseStore uploads to a public Supabase storage bucket.
type SupabaseStore struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

var _ question.Blobs = (*SupabaseStore)(nil)

func NewSupabaseStore(baseURL, key, bucket string) *SupabaseStore {
	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetAuthToken(key).
		SetHeader("apikey", key)
	return &SupabaseStore{client: client, baseURL: baseURL, bucket: bucket}
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func (s *SupabaseStore) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	object := escapePath(path)
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, object))
	if err != nil {
		return "", errors.Wrap(err, "uploading attachment")
	}
	if resp.IsError() {
		return "", errors.Errorf("uploading attachment: %s: %s", resp.Status(), resp.String())
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, object), nil
}
