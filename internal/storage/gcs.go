package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage downloads bucket objects into a local cache before upload.
type GCSStorage struct {
	client   *storage.Client
	cacheDir string
}

func NewGCSStorage(ctx context.Context, cacheDir string, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client:   client,
		cacheDir: cacheDir,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Fetch downloads the object unless a cached copy already exists.
func (s *GCSStorage) Fetch(ctx context.Context, ref Ref) (string, error) {
	if !ref.IsRemote() || ref.Key == "" {
		return "", fmt.Errorf("%s is not a GCS object", ref)
	}

	localPath, err := s.cachePath(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := s.download(ctx, ref, localPath); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", ref, err)
	}
	return localPath, nil
}

func (s *GCSStorage) List(ctx context.Context, ref Ref) ([]Ref, error) {
	if !ref.IsRemote() {
		return nil, fmt.Errorf("%s is not a GCS prefix", ref)
	}

	it := s.client.Bucket(ref.Bucket).Objects(ctx, &storage.Query{Prefix: ref.Key})

	var files []Ref
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		if strings.HasSuffix(attrs.Name, "/") || !IsVideo(attrs.Name) {
			continue
		}
		files = append(files, Ref{Bucket: ref.Bucket, Key: attrs.Name})
	}

	return files, nil
}

// cachePath maps an object to its cache file. Object names may contain ".."
// segments, so the result must stay inside cacheDir.
func (s *GCSStorage) cachePath(ref Ref) (string, error) {
	base, err := filepath.Abs(s.cacheDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache dir: %w", err)
	}

	localPath := filepath.Join(base, ref.Bucket, filepath.FromSlash(ref.Key))
	bucketDir := filepath.Join(base, ref.Bucket)
	if filepath.Dir(bucketDir) != base || !strings.HasPrefix(localPath, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%s escapes the download cache", ref)
	}
	return localPath, nil
}

func (s *GCSStorage) download(ctx context.Context, ref Ref, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	r, err := s.client.Bucket(ref.Bucket).Object(ref.Key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	// Partial downloads never land on the cache path.
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), localPath)
}
