package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domrepo "StockCast/internal/domain/repository"
	xhttp "StockCast/pkg/http"
)

// ArtifactStore reads model artifacts from the filesystem or over HTTP(S).
type ArtifactStore struct {
	baseDir string
	client  *xhttp.Client
}

var _ domrepo.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore resolves relative paths against baseDir.
func NewArtifactStore(baseDir string, client *xhttp.Client) *ArtifactStore {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &ArtifactStore{baseDir: baseDir, client: client}
}

func (s *ArtifactStore) Read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		b, err := s.client.GetBytes(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetch artifact: %w", err)
		}
		return b, nil
	}

	path := location
	if !filepath.IsAbs(path) && s.baseDir != "" {
		path = filepath.Join(s.baseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return b, nil
}
