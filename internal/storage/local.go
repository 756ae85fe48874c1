package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type LocalStorage struct{}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Fetch checks the file exists and hands its path back unchanged.
func (s *LocalStorage) Fetch(ctx context.Context, ref Ref) (string, error) {
	if ref.IsRemote() {
		return "", fmt.Errorf("%s is not a local file", ref)
	}

	info, err := os.Stat(ref.Path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", ref.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", ref.Path)
	}
	return ref.Path, nil
}

func (s *LocalStorage) List(ctx context.Context, ref Ref) ([]Ref, error) {
	entries, err := os.ReadDir(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []Ref
	for _, entry := range entries {
		if entry.IsDir() || !IsVideo(entry.Name()) {
			continue
		}
		files = append(files, Ref{Path: filepath.Join(ref.Path, entry.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
