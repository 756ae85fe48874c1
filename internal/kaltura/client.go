package kaltura

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"kaltura-uploader/pkg/httputil"
)

const (
	defaultTimeout       = 10 * time.Minute
	defaultSessionLength = 3 * time.Hour
	userAgent            = "kaltura-uploader/1.0"
)

var ErrNoSecret = errors.New("kaltura admin secret not configured")

type Client struct {
	serviceURL    string
	partnerID     int
	secret        string
	userID        string
	sessionLength time.Duration

	httpClient    *http.Client
	sessionClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

type Options struct {
	ServiceURL    string
	PartnerID     int
	AdminSecret   string
	UserID        string
	SessionLength time.Duration
	Timeout       time.Duration
	Retry         httputil.RetryConfig
	HTTPClient    *http.Client
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SessionLength == 0 {
		opts.SessionLength = defaultSessionLength
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		serviceURL:    strings.TrimRight(opts.ServiceURL, "/"),
		partnerID:     opts.PartnerID,
		secret:        opts.AdminSecret,
		userID:        opts.UserID,
		sessionLength: opts.SessionLength,
		httpClient:    httpClient,
		sessionClient: httputil.NewRetryClient(httpClient, opts.Retry),
	}
}

// Connect makes sure a valid session exists, starting one if needed.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.session(ctx)
	return err
}

func (c *Client) AddMediaEntry(ctx context.Context, entry MediaEntry) (*MediaEntry, error) {
	entry.ObjectType = ObjectTypeMediaEntry
	var out MediaEntry
	if err := c.call(ctx, "media", "add", map[string]any{"entry": entry}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddUploadToken(ctx context.Context) (*UploadToken, error) {
	var out UploadToken
	params := map[string]any{
		"uploadToken": map[string]string{"objectType": ObjectTypeUploadToken},
	}
	if err := c.call(ctx, "uploadToken", "add", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile streams the file at path against an upload token in a single
// final chunk.
func (c *Client) UploadFile(ctx context.Context, tokenID, path string) (*UploadToken, error) {
	ks, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer func() { _ = file.Close() }()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(writer, file, map[string]string{
			"ks":            ks,
			"format":        "1",
			"uploadTokenId": tokenID,
			"resume":        "false",
			"finalChunk":    "true",
		}))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("uploadToken", "upload"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	body, err := c.do(c.httpClient, req, "uploadToken", "upload")
	_ = pr.Close()
	if err != nil {
		c.dropRejectedSession(err)
		return nil, err
	}

	var out UploadToken
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse uploadToken.upload response: %w", err)
	}
	return &out, nil
}

func writeUploadForm(writer *multipart.Writer, file *os.File, fields map[string]string) error {
	for _, key := range []string{"ks", "format", "uploadTokenId", "resume", "finalChunk"} {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return err
		}
	}

	part, err := writer.CreateFormFile("fileData", filepath.Base(file.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}

	return writer.Close()
}

// AddContent attaches a resource to an entry. The returned object is decoded
// as a media entry without checking its type; callers decide if it is valid.
func (c *Client) AddContent(ctx context.Context, entryID string, resource Resource) (*MediaEntry, error) {
	var out MediaEntry
	params := map[string]any{
		"entryId":  entryID,
		"resource": resource,
	}
	if err := c.call(ctx, "media", "addContent", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMediaEntry(ctx context.Context, entryID string) error {
	return c.call(ctx, "media", "delete", map[string]any{"entryId": entryID}, nil)
}

func (c *Client) DeleteUploadToken(ctx context.Context, tokenID string) error {
	return c.call(ctx, "uploadToken", "delete", map[string]any{"uploadTokenId": tokenID}, nil)
}

func (c *Client) call(ctx context.Context, service, action string, params map[string]any, out any) error {
	ks, err := c.session(ctx)
	if err != nil {
		return err
	}

	params["ks"] = ks
	err = c.post(ctx, c.httpClient, service, action, params, out)
	c.dropRejectedSession(err)
	return err
}

// dropRejectedSession forgets the cached KS once the server refuses it, so
// the next call starts a fresh session.
func (c *Client) dropRejectedSession(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.sessionRejected() {
		c.resetSession()
	}
}

func (c *Client) post(ctx context.Context, client *http.Client, service, action string, params map[string]any, out any) error {
	params["format"] = 1

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s.%s params: %w", service, action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(service, action), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	body, err := c.do(client, req, service, action)
	if err != nil {
		return err
	}

	body = bytes.TrimSpace(body)
	if out == nil || len(body) == 0 || string(body) == "null" {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s.%s response: %w", service, action, err)
	}
	return nil
}

func (c *Client) do(client *http.Client, req *http.Request, service, action string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s.%s: %w", service, action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s response: %w", service, action, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kaltura %s.%s: unexpected status %s", service, action, resp.Status)
	}

	if apiErr := parseException(body); apiErr != nil {
		apiErr.Service = service
		apiErr.Action = action
		return nil, apiErr
	}

	return body, nil
}

func parseException(body []byte) *APIError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var envelope exceptionEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if envelope.ObjectType != ObjectTypeAPIException {
		return nil
	}
	return &APIError{Code: envelope.Code, Message: envelope.Message}
}

func (c *Client) endpoint(service, action string) string {
	return fmt.Sprintf("%s/api_v3/service/%s/action/%s?format=1", c.serviceURL, service, action)
}
