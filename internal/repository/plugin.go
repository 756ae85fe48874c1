package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kaltura-uploader/internal/kaltura"
)

var (
	// ErrConnection means no session could be opened with the media service.
	ErrConnection = errors.New("unable to connect to Kaltura")
	// ErrProcessUpload means the media service did not produce a media entry.
	ErrProcessUpload = errors.New("error processing upload on the Kaltura side")
)

// MediaClient is the subset of the media service API an upload needs.
type MediaClient interface {
	Connect(ctx context.Context) error
	AddMediaEntry(ctx context.Context, entry kaltura.MediaEntry) (*kaltura.MediaEntry, error)
	AddUploadToken(ctx context.Context) (*kaltura.UploadToken, error)
	UploadFile(ctx context.Context, tokenID, path string) (*kaltura.UploadToken, error)
	AddContent(ctx context.Context, entryID string, resource kaltura.Resource) (*kaltura.MediaEntry, error)
	DeleteMediaEntry(ctx context.Context, entryID string) error
	DeleteUploadToken(ctx context.Context, tokenID string) error
}

type Plugin struct {
	client      MediaClient
	host        string
	partnerID   int
	uiconfID    int
	uploadLabel string
	keepOrphans bool
}

type Options struct {
	Host         string
	PartnerID    int
	PlayerUIConf int
	UploadLabel  string
	// KeepOrphans leaves a half-created entry on the service when a later
	// step fails instead of deleting it.
	KeepOrphans bool
}

func NewPlugin(client MediaClient, opts Options) *Plugin {
	if opts.UploadLabel == "" {
		opts.UploadLabel = defaultUploadLabel
	}
	return &Plugin{
		client:      client,
		host:        opts.Host,
		partnerID:   opts.PartnerID,
		uiconfID:    opts.PlayerUIConf,
		uploadLabel: opts.UploadLabel,
		keepOrphans: opts.KeepOrphans,
	}
}

// UploadParams describes one file handed over by the file picker.
type UploadParams struct {
	// FileName is the name the client declared for the uploaded file.
	FileName string
	// TempPath is the local temporary copy owned by the caller.
	TempPath      string
	SaveAs        string
	MaxBytes      int64
	AcceptedTypes []string
	SavePath      string
	ItemID        int64
	License       string
	Author        string
	Overwrite     bool
}

type Result struct {
	URL  string `json:"url"`
	ID   int64  `json:"id"`
	File string `json:"file"`
}

// ProcessUpload sends the file to the media service and returns a widget
// reference to it. Every call creates a new remote entry.
func (p *Plugin) ProcessUpload(ctx context.Context, params UploadParams) (*Result, error) {
	if err := p.client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	entry, err := p.client.AddMediaEntry(ctx, kaltura.MediaEntry{
		Name:      params.FileName,
		MediaType: kaltura.MediaTypeVideo,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: add media entry: %w", ErrProcessUpload, err)
	}

	log := slog.With("entry_id", entry.ID, "file", params.FileName)
	log.Debug("Media entry created")

	token, err := p.client.AddUploadToken(ctx)
	if err != nil {
		p.cleanup(ctx, entry.ID, "")
		return nil, fmt.Errorf("%w: add upload token: %w", ErrProcessUpload, err)
	}

	if _, err := p.client.UploadFile(ctx, token.ID, params.TempPath); err != nil {
		p.cleanup(ctx, entry.ID, token.ID)
		return nil, fmt.Errorf("%w: upload file: %w", ErrProcessUpload, err)
	}
	log.Debug("File uploaded", "token_id", token.ID)

	attached, err := p.client.AddContent(ctx, entry.ID, kaltura.UploadedFileTokenResource{Token: token.ID})
	if err != nil {
		p.cleanup(ctx, entry.ID, token.ID)
		return nil, fmt.Errorf("%w: add content: %w", ErrProcessUpload, err)
	}

	if !attached.IsMediaEntry() {
		p.cleanup(ctx, entry.ID, token.ID)
		return nil, ErrProcessUpload
	}

	log.Info("Upload attached to media entry", "item_id", params.ItemID)

	return &Result{
		URL:  WidgetURL(p.host, p.partnerID, p.uiconfID, attached.ID, attached.Name),
		ID:   params.ItemID,
		File: attached.Name,
	}, nil
}

// cleanup removes remote objects left behind by a failed upload. Failures
// are logged and otherwise ignored.
func (p *Plugin) cleanup(ctx context.Context, entryID, tokenID string) {
	if p.keepOrphans {
		slog.Warn("Leaving orphaned media entry", "entry_id", entryID, "token_id", tokenID)
		return
	}

	ctx = context.WithoutCancel(ctx)

	if tokenID != "" {
		if err := p.client.DeleteUploadToken(ctx, tokenID); err != nil {
			slog.Warn("Failed to delete upload token", "token_id", tokenID, "error", err)
		}
	}
	if err := p.client.DeleteMediaEntry(ctx, entryID); err != nil {
		slog.Warn("Failed to delete media entry", "entry_id", entryID, "error", err)
	}
}
