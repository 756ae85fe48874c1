package repository

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// ParamDefaults fills in optional request parameters the client left out.
type ParamDefaults struct {
	License  string
	MaxBytes int64
}

// ParseUploadParams reads the optional upload parameters from a parsed form.
// File name and temporary path are left for the caller to fill in.
func ParseUploadParams(r *http.Request, defaults ParamDefaults) (UploadParams, error) {
	if r.Form == nil {
		if err := r.ParseMultipartForm(defaultMemoryLimit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return UploadParams{}, fmt.Errorf("parse form: %w", err)
		}
	}

	params := UploadParams{
		AcceptedTypes: acceptedTypes(r),
		SavePath:      cleanSavePath(r.FormValue("savepath")),
		License:       defaults.License,
		Author:        strings.TrimSpace(r.FormValue("author")),
		SaveAs:        strings.TrimSpace(r.FormValue("title")),
		MaxBytes:      defaults.MaxBytes,
	}

	if v := r.FormValue("itemid"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return UploadParams{}, fmt.Errorf("itemid must be an integer: %w", err)
		}
		params.ItemID = id
	}

	if v := strings.TrimSpace(r.FormValue("license")); v != "" {
		params.License = v
	}

	if v := r.FormValue("overwrite"); v != "" {
		overwrite, err := parseBool(v)
		if err != nil {
			return UploadParams{}, err
		}
		params.Overwrite = overwrite
	}

	if v := r.FormValue("maxbytes"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return UploadParams{}, fmt.Errorf("maxbytes must be an integer: %w", err)
		}
		if n > 0 && (params.MaxBytes <= 0 || n < params.MaxBytes) {
			params.MaxBytes = n
		}
	}

	return params, nil
}

func acceptedTypes(r *http.Request) []string {
	var types []string
	for _, key := range []string{"accepted_types[]", "accepted_types"} {
		for _, v := range r.Form[key] {
			if v = strings.TrimSpace(v); v != "" {
				types = append(types, v)
			}
		}
	}
	if len(types) == 0 {
		return []string{"*"}
	}
	return types
}

func cleanSavePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if cleaned != "/" && strings.HasSuffix(p, "/") {
		cleaned += "/"
	}
	return cleaned
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("overwrite must be a boolean, got %q", v)
	}
}

// Accepts reports whether a file name matches the accepted types. Entries
// are either "*" or extensions such as ".mp4".
func (params UploadParams) Accepts(fileName string) bool {
	ext := strings.ToLower(path.Ext(fileName))
	for _, t := range params.AcceptedTypes {
		t = strings.ToLower(t)
		if t == "*" || t == ext {
			return true
		}
	}
	return false
}
