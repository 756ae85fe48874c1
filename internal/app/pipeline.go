package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kaltura-uploader/internal/repository"
	"kaltura-uploader/internal/storage"
)

type Pipeline struct {
	service *Service
}

// UploadRequest carries the CLI equivalents of the file picker's form fields.
type UploadRequest struct {
	Ref       string
	Name      string
	ItemID    int64
	License   string
	Author    string
	SavePath  string
	Overwrite bool
}

type BatchItem struct {
	Ref    string             `json:"ref"`
	Result *repository.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

type BatchResult struct {
	Uploaded []BatchItem `json:"uploaded"`
	Failed   []BatchItem `json:"failed"`
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

// Upload materialises the referenced file locally and sends it through the
// repository plugin.
func (pipeline *Pipeline) Upload(ctx context.Context, req UploadRequest) (*repository.Result, error) {
	ref, err := storage.ParseRefInBucket(req.Ref, pipeline.service.cfg.GCSBucket)
	if err != nil {
		return nil, err
	}
	return pipeline.upload(ctx, ref, req)
}

func (pipeline *Pipeline) upload(ctx context.Context, ref storage.Ref, req UploadRequest) (*repository.Result, error) {
	src, err := pipeline.service.source(ctx, ref)
	if err != nil {
		return nil, err
	}

	path, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = ref.Name()
	}

	license := req.License
	if license == "" {
		license = pipeline.service.cfg.Repository.DefaultLicense
	}

	savePath := req.SavePath
	if savePath == "" {
		savePath = "/"
	}

	slog.Debug("Uploading file", "ref", ref.String(), "name", name)

	return pipeline.service.plugin.ProcessUpload(ctx, repository.UploadParams{
		FileName:      name,
		TempPath:      path,
		AcceptedTypes: []string{"*"},
		MaxBytes:      pipeline.service.cfg.Repository.MaxBytes,
		SavePath:      savePath,
		ItemID:        req.ItemID,
		License:       license,
		Author:        req.Author,
		Overwrite:     req.Overwrite,
	})
}

// Batch uploads every video under a directory or bucket prefix, one at a
// time. Failed uploads are collected and the run goes on; a connection
// failure ends it.
func (pipeline *Pipeline) Batch(ctx context.Context, req UploadRequest) (*BatchResult, error) {
	ref, err := storage.ParseRefInBucket(req.Ref, pipeline.service.cfg.GCSBucket)
	if err != nil {
		return nil, err
	}

	src, err := pipeline.service.source(ctx, ref)
	if err != nil {
		return nil, err
	}

	files, err := src.List(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no video files found in %s", ref)
	}

	slog.Info("Starting batch upload", "source", ref.String(), "files", len(files))

	result := &BatchResult{}
	var errs []error

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := req
		item.Name = ""
		slog.Info("Uploading", "file", file.Name(), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))

		uploaded, err := pipeline.upload(ctx, file, item)
		if err != nil {
			slog.Error("Upload failed", "file", file.String(), "error", err)
			result.Failed = append(result.Failed, BatchItem{Ref: file.String(), Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", file, err))

			if errors.Is(err, repository.ErrConnection) {
				return result, errors.Join(errs...)
			}
			continue
		}

		result.Uploaded = append(result.Uploaded, BatchItem{Ref: file.String(), Result: uploaded})
	}

	return result, errors.Join(errs...)
}
