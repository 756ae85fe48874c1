package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"kaltura-uploader/internal/kaltura"
)

// mockMediaClient records calls and lets each test override single steps.
type mockMediaClient struct {
	calls []string

	connectFunc    func(ctx context.Context) error
	addEntryFunc   func(ctx context.Context, entry kaltura.MediaEntry) (*kaltura.MediaEntry, error)
	addTokenFunc   func(ctx context.Context) (*kaltura.UploadToken, error)
	uploadFunc     func(ctx context.Context, tokenID, path string) (*kaltura.UploadToken, error)
	addContentFunc func(ctx context.Context, entryID string, resource kaltura.Resource) (*kaltura.MediaEntry, error)
	deleteErr      error

	entries int
	names   map[string]string
}

func (m *mockMediaClient) Connect(ctx context.Context) error {
	m.calls = append(m.calls, "connect")
	if m.connectFunc != nil {
		return m.connectFunc(ctx)
	}
	return nil
}

func (m *mockMediaClient) AddMediaEntry(ctx context.Context, entry kaltura.MediaEntry) (*kaltura.MediaEntry, error) {
	m.calls = append(m.calls, "media.add")
	if m.addEntryFunc != nil {
		return m.addEntryFunc(ctx, entry)
	}
	m.entries++
	entry.ID = "0_entry" + strconv.Itoa(m.entries)
	entry.ObjectType = kaltura.ObjectTypeMediaEntry
	if m.names == nil {
		m.names = make(map[string]string)
	}
	m.names[entry.ID] = entry.Name
	return &entry, nil
}

func (m *mockMediaClient) AddUploadToken(ctx context.Context) (*kaltura.UploadToken, error) {
	m.calls = append(m.calls, "uploadToken.add")
	if m.addTokenFunc != nil {
		return m.addTokenFunc(ctx)
	}
	return &kaltura.UploadToken{ID: "tok_1"}, nil
}

func (m *mockMediaClient) UploadFile(ctx context.Context, tokenID, path string) (*kaltura.UploadToken, error) {
	m.calls = append(m.calls, "uploadToken.upload")
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, tokenID, path)
	}
	return &kaltura.UploadToken{ID: tokenID}, nil
}

func (m *mockMediaClient) AddContent(ctx context.Context, entryID string, resource kaltura.Resource) (*kaltura.MediaEntry, error) {
	m.calls = append(m.calls, "media.addContent")
	if m.addContentFunc != nil {
		return m.addContentFunc(ctx, entryID, resource)
	}
	return &kaltura.MediaEntry{
		ObjectType: kaltura.ObjectTypeMediaEntry,
		ID:         entryID,
		Name:       m.names[entryID],
		MediaType:  kaltura.MediaTypeVideo,
	}, nil
}

func (m *mockMediaClient) DeleteMediaEntry(ctx context.Context, entryID string) error {
	m.calls = append(m.calls, "media.delete")
	return m.deleteErr
}

func (m *mockMediaClient) DeleteUploadToken(ctx context.Context, tokenID string) error {
	m.calls = append(m.calls, "uploadToken.delete")
	return m.deleteErr
}

func testPlugin(client MediaClient, keepOrphans bool) *Plugin {
	return NewPlugin(client, Options{
		Host:         "https://media.example.com/",
		PartnerID:    101,
		PlayerUIConf: 202,
		KeepOrphans:  keepOrphans,
	})
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestProcessUploadSuccess(t *testing.T) {
	client := &mockMediaClient{}
	plugin := testPlugin(client, false)

	result, err := plugin.ProcessUpload(context.Background(), UploadParams{
		FileName: "lecture.mp4",
		TempPath: "/tmp/upload-123",
		ItemID:   77,
	})
	if err != nil {
		t.Fatalf("ProcessUpload() error: %v", err)
	}

	wantURL := "https://media.example.com/index.php/kwidget/wid/_101/uiconf_id/202/entry_id/0_entry1/v/flash#lecture.mp4"
	if result.URL != wantURL {
		t.Errorf("URL = %q, want %q", result.URL, wantURL)
	}
	if result.ID != 77 {
		t.Errorf("ID = %d, want 77", result.ID)
	}
	if result.File != "lecture.mp4" {
		t.Errorf("File = %q, want lecture.mp4", result.File)
	}

	want := []string{"connect", "media.add", "uploadToken.add", "uploadToken.upload", "media.addContent"}
	if !equalCalls(client.calls, want) {
		t.Errorf("calls = %v, want %v", client.calls, want)
	}
}

func TestProcessUploadSendsVideoEntryAndToken(t *testing.T) {
	var gotEntry kaltura.MediaEntry
	var gotPath, gotToken string
	var gotResource kaltura.Resource

	client := &mockMediaClient{}
	client.addEntryFunc = func(ctx context.Context, entry kaltura.MediaEntry) (*kaltura.MediaEntry, error) {
		gotEntry = entry
		return &kaltura.MediaEntry{ObjectType: kaltura.ObjectTypeMediaEntry, ID: "0_abc", Name: entry.Name}, nil
	}
	client.addTokenFunc = func(ctx context.Context) (*kaltura.UploadToken, error) {
		return &kaltura.UploadToken{ID: "tok_xyz"}, nil
	}
	client.uploadFunc = func(ctx context.Context, tokenID, path string) (*kaltura.UploadToken, error) {
		gotToken, gotPath = tokenID, path
		return &kaltura.UploadToken{ID: tokenID}, nil
	}
	client.addContentFunc = func(ctx context.Context, entryID string, resource kaltura.Resource) (*kaltura.MediaEntry, error) {
		gotResource = resource
		return &kaltura.MediaEntry{ObjectType: kaltura.ObjectTypeMediaEntry, ID: entryID, Name: "clip.mov"}, nil
	}

	_, err := testPlugin(client, false).ProcessUpload(context.Background(), UploadParams{
		FileName: "clip.mov",
		TempPath: "/tmp/phpXYZ",
	})
	if err != nil {
		t.Fatalf("ProcessUpload() error: %v", err)
	}

	if gotEntry.Name != "clip.mov" || gotEntry.MediaType != kaltura.MediaTypeVideo {
		t.Errorf("entry = %+v, want video named clip.mov", gotEntry)
	}
	if gotToken != "tok_xyz" || gotPath != "/tmp/phpXYZ" {
		t.Errorf("upload = (%q, %q), want (tok_xyz, /tmp/phpXYZ)", gotToken, gotPath)
	}
	if res, ok := gotResource.(kaltura.UploadedFileTokenResource); !ok || res.Token != "tok_xyz" {
		t.Errorf("resource = %#v, want token resource for tok_xyz", gotResource)
	}
}

func TestProcessUploadConnectionFailure(t *testing.T) {
	remoteErr := errors.New("dial tcp: connection refused")
	client := &mockMediaClient{
		connectFunc: func(ctx context.Context) error { return remoteErr },
	}

	_, err := testPlugin(client, false).ProcessUpload(context.Background(), UploadParams{FileName: "a.mp4"})

	if !errors.Is(err, ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
	if !errors.Is(err, remoteErr) {
		t.Errorf("error = %v, want it to wrap the remote cause", err)
	}
	if errors.Is(err, ErrProcessUpload) {
		t.Error("connection failure must not be reported as a processing failure")
	}
	if !equalCalls(client.calls, []string{"connect"}) {
		t.Errorf("calls = %v, want only connect", client.calls)
	}
}

func TestProcessUploadInvalidAttachResponse(t *testing.T) {
	tests := []struct {
		name     string
		response *kaltura.MediaEntry
	}{
		{name: "nilObject", response: nil},
		{name: "otherObjectType", response: &kaltura.MediaEntry{ObjectType: "KalturaDataEntry", ID: "0_x"}},
		{name: "missingObjectType", response: &kaltura.MediaEntry{ID: "0_x"}},
		{name: "missingID", response: &kaltura.MediaEntry{ObjectType: kaltura.ObjectTypeMediaEntry}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockMediaClient{
				addContentFunc: func(ctx context.Context, entryID string, resource kaltura.Resource) (*kaltura.MediaEntry, error) {
					return tt.response, nil
				},
			}

			result, err := testPlugin(client, false).ProcessUpload(context.Background(), UploadParams{FileName: "a.mp4"})
			if !errors.Is(err, ErrProcessUpload) {
				t.Fatalf("error = %v, want ErrProcessUpload", err)
			}
			if result != nil {
				t.Errorf("result = %+v, want nil", result)
			}
		})
	}
}

func TestProcessUploadStepFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(m *mockMediaClient)
		keep      bool
		wantCalls []string
	}{
		{
			name: "addEntryFails",
			setup: func(m *mockMediaClient) {
				m.addEntryFunc = func(context.Context, kaltura.MediaEntry) (*kaltura.MediaEntry, error) { return nil, boom }
			},
			wantCalls: []string{"connect", "media.add"},
		},
		{
			name: "addTokenFailsDeletesEntry",
			setup: func(m *mockMediaClient) {
				m.addTokenFunc = func(context.Context) (*kaltura.UploadToken, error) { return nil, boom }
			},
			wantCalls: []string{"connect", "media.add", "uploadToken.add", "media.delete"},
		},
		{
			name: "uploadFailsDeletesTokenAndEntry",
			setup: func(m *mockMediaClient) {
				m.uploadFunc = func(context.Context, string, string) (*kaltura.UploadToken, error) { return nil, boom }
			},
			wantCalls: []string{"connect", "media.add", "uploadToken.add", "uploadToken.upload", "uploadToken.delete", "media.delete"},
		},
		{
			name: "addContentFailsDeletesTokenAndEntry",
			setup: func(m *mockMediaClient) {
				m.addContentFunc = func(context.Context, string, kaltura.Resource) (*kaltura.MediaEntry, error) { return nil, boom }
			},
			wantCalls: []string{"connect", "media.add", "uploadToken.add", "uploadToken.upload", "media.addContent", "uploadToken.delete", "media.delete"},
		},
		{
			name: "keepOrphansSkipsCleanup",
			setup: func(m *mockMediaClient) {
				m.addContentFunc = func(context.Context, string, kaltura.Resource) (*kaltura.MediaEntry, error) { return nil, boom }
			},
			keep:      true,
			wantCalls: []string{"connect", "media.add", "uploadToken.add", "uploadToken.upload", "media.addContent"},
		},
		{
			name: "cleanupErrorsAreIgnored",
			setup: func(m *mockMediaClient) {
				m.uploadFunc = func(context.Context, string, string) (*kaltura.UploadToken, error) { return nil, boom }
				m.deleteErr = errors.New("delete failed")
			},
			wantCalls: []string{"connect", "media.add", "uploadToken.add", "uploadToken.upload", "uploadToken.delete", "media.delete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockMediaClient{}
			tt.setup(client)

			_, err := testPlugin(client, tt.keep).ProcessUpload(context.Background(), UploadParams{FileName: "a.mp4"})
			if !errors.Is(err, ErrProcessUpload) {
				t.Fatalf("error = %v, want ErrProcessUpload", err)
			}
			if !errors.Is(err, boom) {
				t.Errorf("error = %v, want it to wrap the step error", err)
			}
			if !equalCalls(client.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", client.calls, tt.wantCalls)
			}
		})
	}
}

func TestProcessUploadIsNotIdempotent(t *testing.T) {
	client := &mockMediaClient{}
	plugin := testPlugin(client, false)
	params := UploadParams{FileName: "same.mp4", TempPath: "/tmp/same"}

	first, err := plugin.ProcessUpload(context.Background(), params)
	if err != nil {
		t.Fatalf("first ProcessUpload() error: %v", err)
	}
	second, err := plugin.ProcessUpload(context.Background(), params)
	if err != nil {
		t.Fatalf("second ProcessUpload() error: %v", err)
	}

	if client.entries != 2 {
		t.Errorf("entries created = %d, want 2", client.entries)
	}
	if first.URL == second.URL {
		t.Errorf("both uploads returned %q, want distinct entries", first.URL)
	}
}
