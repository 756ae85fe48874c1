package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

const gcsScheme = "gs://"

// Ref points at a file either on local disk or in a GCS bucket.
type Ref struct {
	Bucket string
	Key    string
	Path   string
}

func (r Ref) IsRemote() bool {
	return r.Bucket != ""
}

func (r Ref) Name() string {
	if r.IsRemote() {
		return filepath.Base(r.Key)
	}
	return filepath.Base(r.Path)
}

func (r Ref) String() string {
	if r.IsRemote() {
		return gcsScheme + r.Bucket + "/" + r.Key
	}
	return r.Path
}

// ParseRef splits gs://bucket/key references from local paths.
func ParseRef(ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, fmt.Errorf("empty file reference")
	}

	if !strings.HasPrefix(ref, gcsScheme) {
		return Ref{Path: filepath.Clean(ref)}, nil
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(ref, gcsScheme), "/")
	if bucket == "" {
		return Ref{}, fmt.Errorf("missing bucket in %q", ref)
	}
	return Ref{Bucket: bucket, Key: key}, nil
}

// ParseRefInBucket is ParseRef with gs:///key resolving to bucket.
func ParseRefInBucket(ref, bucket string) (Ref, error) {
	trimmed := strings.TrimSpace(ref)
	if bucket != "" && strings.HasPrefix(trimmed, gcsScheme+"/") {
		trimmed = gcsScheme + bucket + strings.TrimPrefix(trimmed, gcsScheme)
	}
	return ParseRef(trimmed)
}

// Source makes files available on local disk for upload.
type Source interface {
	// Fetch returns a local path holding the referenced file.
	Fetch(ctx context.Context, ref Ref) (string, error)
	// List returns the video files under a directory or prefix.
	List(ctx context.Context, ref Ref) ([]Ref, error)
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
}

func IsVideo(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

var (
	_ Source = (*LocalStorage)(nil)
	_ Source = (*GCSStorage)(nil)
)
