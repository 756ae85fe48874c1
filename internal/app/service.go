package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"kaltura-uploader/internal/kaltura"
	"kaltura-uploader/internal/repository"
	"kaltura-uploader/internal/storage"
	"kaltura-uploader/pkg/config"
)

// RemoteOpener creates the GCS source on first use, so local-only runs never
// need cloud credentials.
type RemoteOpener func(ctx context.Context) (storage.Source, error)

type Service struct {
	cfg    *config.Config
	client *kaltura.Client
	plugin *repository.Plugin
	local  storage.Source

	mu         sync.Mutex
	remote     storage.Source
	openRemote RemoteOpener
}

type ServiceOptions struct {
	Config     *config.Config
	Client     *kaltura.Client
	Plugin     *repository.Plugin
	Local      storage.Source
	Remote     storage.Source
	OpenRemote RemoteOpener
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:        opts.Config,
		client:     opts.Client,
		plugin:     opts.Plugin,
		local:      opts.Local,
		remote:     opts.Remote,
		openRemote: opts.OpenRemote,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Client() *kaltura.Client {
	return s.client
}

func (s *Service) Plugin() *repository.Plugin {
	return s.plugin
}

// Handler returns the HTTP surface, staging request bodies under tempDir.
func (s *Service) Handler(tempDir string) *repository.Handler {
	return repository.NewHandler(s.plugin, repository.ParamDefaults{
		License:  s.cfg.Repository.DefaultLicense,
		MaxBytes: s.cfg.Repository.MaxBytes,
	}, tempDir)
}

func (s *Service) source(ctx context.Context, ref storage.Ref) (storage.Source, error) {
	if !ref.IsRemote() {
		return s.local, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote != nil {
		return s.remote, nil
	}
	if s.openRemote == nil {
		return nil, fmt.Errorf("no remote storage configured for %s", ref)
	}

	remote, err := s.openRemote(ctx)
	if err != nil {
		return nil, err
	}
	s.remote = remote
	return remote, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closer, ok := s.remote.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
