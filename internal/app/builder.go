package app

import (
	"context"

	"kaltura-uploader/internal/kaltura"
	"kaltura-uploader/internal/repository"
	"kaltura-uploader/internal/storage"
	"kaltura-uploader/pkg/config"
	"kaltura-uploader/pkg/httputil"
)

func BuildService(cfg *config.Config) *Service {
	client := kaltura.NewClient(kaltura.Options{
		ServiceURL:    cfg.ServiceURL,
		PartnerID:     cfg.PartnerID,
		AdminSecret:   cfg.AdminSecret,
		UserID:        cfg.UserID,
		SessionLength: cfg.Kaltura.SessionLength,
		Timeout:       cfg.Kaltura.RequestTimeout,
		Retry: httputil.RetryConfig{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
	})

	plugin := repository.NewPlugin(client, repository.Options{
		Host:         cfg.ServiceURL,
		PartnerID:    cfg.PartnerID,
		PlayerUIConf: cfg.PlayerUIConf,
		UploadLabel:  cfg.Repository.UploadLabel,
		KeepOrphans:  cfg.Kaltura.KeepOrphans,
	})

	cacheDir := cfg.Storage.CacheDir

	return NewService(ServiceOptions{
		Config: cfg,
		Client: client,
		Plugin: plugin,
		Local:  storage.NewLocalStorage(),
		OpenRemote: func(ctx context.Context) (storage.Source, error) {
			gcs, err := storage.NewGCSStorage(ctx, cacheDir)
			if err != nil {
				return nil, err
			}
			return gcs, nil
		},
	})
}
