package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/question"
)

var ErrInvalidPath = errors.New("invalid blob path")

// LocalStore writes attachments under a directory the API serves at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ question.Blobs = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Upload(ctx context.Context, path, _ string, body io.Reader) (string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + path))[1:]
	if clean == "" || clean != path {
		return "", errors.Wrap(ErrInvalidPath, path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(err, "creating attachment dir")
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating attachment")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", errors.Wrap(err, "writing attachment")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "writing attachment")
	}
	return s.baseURL + "/" + escapePath(clean), nil
}
