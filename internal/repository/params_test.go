package repository

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseUploadParams(t *testing.T) {
	defaults := ParamDefaults{License: "allrightsreserved", MaxBytes: 1000}

	tests := []struct {
		name    string
		form    url.Values
		check   func(t *testing.T, p UploadParams)
		wantErr bool
	}{
		{
			name: "defaults",
			form: url.Values{},
			check: func(t *testing.T, p UploadParams) {
				if p.License != "allrightsreserved" {
					t.Errorf("License = %q", p.License)
				}
				if p.MaxBytes != 1000 {
					t.Errorf("MaxBytes = %d", p.MaxBytes)
				}
				if p.SavePath != "/" {
					t.Errorf("SavePath = %q", p.SavePath)
				}
				if len(p.AcceptedTypes) != 1 || p.AcceptedTypes[0] != "*" {
					t.Errorf("AcceptedTypes = %v", p.AcceptedTypes)
				}
				if p.ItemID != 0 || p.Overwrite {
					t.Errorf("ItemID = %d, Overwrite = %v", p.ItemID, p.Overwrite)
				}
			},
		},
		{
			name: "allFields",
			form: url.Values{
				"itemid":           {"991"},
				"license":          {"cc"},
				"author":           {" Ada "},
				"title":            {"renamed.mp4"},
				"savepath":         {"sub/dir/"},
				"overwrite":        {"true"},
				"accepted_types[]": {".mp4", ".mov"},
			},
			check: func(t *testing.T, p UploadParams) {
				if p.ItemID != 991 {
					t.Errorf("ItemID = %d", p.ItemID)
				}
				if p.License != "cc" || p.Author != "Ada" || p.SaveAs != "renamed.mp4" {
					t.Errorf("License/Author/SaveAs = %q/%q/%q", p.License, p.Author, p.SaveAs)
				}
				if p.SavePath != "/sub/dir/" {
					t.Errorf("SavePath = %q", p.SavePath)
				}
				if !p.Overwrite {
					t.Error("Overwrite = false")
				}
				if strings.Join(p.AcceptedTypes, ",") != ".mp4,.mov" {
					t.Errorf("AcceptedTypes = %v", p.AcceptedTypes)
				}
			},
		},
		{
			name: "smallerMaxBytesWins",
			form: url.Values{"maxbytes": {"10"}},
			check: func(t *testing.T, p UploadParams) {
				if p.MaxBytes != 10 {
					t.Errorf("MaxBytes = %d, want 10", p.MaxBytes)
				}
			},
		},
		{
			name: "largerMaxBytesIgnored",
			form: url.Values{"maxbytes": {"5000"}},
			check: func(t *testing.T, p UploadParams) {
				if p.MaxBytes != 1000 {
					t.Errorf("MaxBytes = %d, want 1000", p.MaxBytes)
				}
			},
		},
		{
			name: "savePathTraversalCleaned",
			form: url.Values{"savepath": {"../../etc"}},
			check: func(t *testing.T, p UploadParams) {
				if p.SavePath != "/etc" {
					t.Errorf("SavePath = %q, want /etc", p.SavePath)
				}
			},
		},
		{name: "badItemID", form: url.Values{"itemid": {"abc"}}, wantErr: true},
		{name: "badMaxBytes", form: url.Values{"maxbytes": {"lots"}}, wantErr: true},
		{name: "badOverwrite", form: url.Values{"overwrite": {"maybe"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/repository/upload", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			got, err := ParseUploadParams(req, defaults)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUploadParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestUploadParamsAccepts(t *testing.T) {
	tests := []struct {
		name     string
		accepted []string
		file     string
		want     bool
	}{
		{name: "wildcard", accepted: []string{"*"}, file: "anything.bin", want: true},
		{name: "matchingExtension", accepted: []string{".mp4"}, file: "clip.mp4", want: true},
		{name: "caseInsensitive", accepted: []string{".MP4"}, file: "CLIP.Mp4", want: true},
		{name: "otherExtension", accepted: []string{".mp4", ".mov"}, file: "notes.pdf", want: false},
		{name: "noExtension", accepted: []string{".mp4"}, file: "README", want: false},
		{name: "emptyList", accepted: nil, file: "clip.mp4", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := UploadParams{AcceptedTypes: tt.accepted}
			if got := p.Accepts(tt.file); got != tt.want {
				t.Errorf("Accepts(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}
