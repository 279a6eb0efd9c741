package objectclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/kodeks/internal/core"
)

// LocalClient stores objects as files under Root/bucket/key.
type LocalClient struct {
	Root string
}

func NewLocalClient(root string) *LocalClient {
	return &LocalClient{Root: root}
}

func (c *LocalClient) path(bucket, key string) (string, error) {
	p := filepath.Join(c.Root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(c.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes %s", key, c.Root)
	}
	return p, nil
}

func (c *LocalClient) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	p, err := c.path(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

func (c *LocalClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	p, err := c.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, core.ErrObjectNotFound)
	}
	return data, err
}

var _ core.ObjectClient = (*LocalClient)(nil)
