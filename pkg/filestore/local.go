package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"parley/pkg/logger"
)

// Local stores blobs under a directory on the serving host and returns
// /files/ URLs. It stands in for the real object-storage collaborator in
// single-node deployments.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create filestore dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *Local) Store(_ context.Context, data []byte, meta Metadata) (string, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(meta.Name); ext != "" && len(ext) <= 12 {
		name += ext
	}
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	logger.Debug("blob_stored", "path", path, "bytes", len(data), "owner", meta.Owner)
	return l.baseURL + "/files/" + name, nil
}

// Dir exposes the storage directory so the HTTP layer can serve it.
func (l *Local) Dir() string { return l.dir }
