package repository

import (
	"encoding/json"
	"testing"
)

func TestListingIsAlwaysUploadForm(t *testing.T) {
	plugin := NewPlugin(&mockMediaClient{}, Options{})

	tests := []struct {
		name string
		path string
		page string
	}{
		{name: "empty", path: "", page: ""},
		{name: "root", path: "/", page: "1"},
		{name: "nested", path: "/a/b/c", page: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plugin.Listing(tt.path, tt.page)

			if !got.NoLogin || !got.NoSearch || !got.NoRefresh {
				t.Errorf("flags = %+v, want nologin, nosearch and norefresh set", got)
			}
			if got.DynLoad {
				t.Error("DynLoad = true, want false")
			}
			if got.List == nil || len(got.List) != 0 {
				t.Errorf("List = %v, want empty non-nil list", got.List)
			}
			if got.Upload.Label != "Attachment" || got.Upload.ID != "repo-form" {
				t.Errorf("Upload = %+v, want Attachment/repo-form", got.Upload)
			}
		})
	}
}

func TestListingJSON(t *testing.T) {
	plugin := NewPlugin(&mockMediaClient{}, Options{})

	data, err := json.Marshal(plugin.Listing("", ""))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"nologin":true,"nosearch":true,"norefresh":true,"list":[],"dynload":false,"upload":{"label":"Attachment","id":"repo-form"}}`
	if string(data) != want {
		t.Errorf("Listing JSON =\n%s\nwant\n%s", data, want)
	}
}

func TestListingCustomLabel(t *testing.T) {
	plugin := NewPlugin(&mockMediaClient{}, Options{UploadLabel: "Video"})

	if got := plugin.Listing("", "").Upload.Label; got != "Video" {
		t.Errorf("Label = %q, want Video", got)
	}
}

func TestPrintLoginMatchesListing(t *testing.T) {
	plugin := NewPlugin(&mockMediaClient{}, Options{})

	login, _ := json.Marshal(plugin.PrintLogin())
	listing, _ := json.Marshal(plugin.Listing("/x", "3"))
	if string(login) != string(listing) {
		t.Errorf("PrintLogin() = %s, want %s", login, listing)
	}
}

func TestSupportedReturnTypes(t *testing.T) {
	client := &mockMediaClient{}
	got := NewPlugin(client, Options{}).SupportedReturnTypes()

	if got != FileExternal {
		t.Errorf("SupportedReturnTypes() = %v, want external", got)
	}
	if got&FileInternal != 0 || got&FileReference != 0 || got&FileControlledLink != 0 {
		t.Errorf("SupportedReturnTypes() = %d, want only the external bit", got)
	}
	if len(client.calls) != 0 {
		t.Errorf("calls = %v, want no remote calls", client.calls)
	}
}

func TestReturnTypeValues(t *testing.T) {
	tests := []struct {
		rt   ReturnType
		want int
		name string
	}{
		{FileExternal, 1, "external"},
		{FileInternal, 2, "internal"},
		{FileReference, 4, "reference"},
		{FileControlledLink, 8, "controlled_link"},
		{ReturnType(3), 3, "unknown"},
	}

	for _, tt := range tests {
		if int(tt.rt) != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, int(tt.rt), tt.want)
		}
		if tt.rt.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.rt.String(), tt.name)
		}
	}
}
