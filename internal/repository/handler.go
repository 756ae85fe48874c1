package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

const (
	uploadField        = "repo_upload_file"
	defaultMemoryLimit = 32 << 20
	formOverhead       = 1 << 20
)

const (
	codeBadRequest      = "bad_request"
	codeTypeNotAccepted = "type_not_accepted"
	codeFileTooLarge    = "file_too_large"
	codeConnection      = "connection"
	codeProcessUpload   = "process_upload"
	codeInternal        = "internal"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler exposes the plugin to a file picker over HTTP. It plays the part
// of the host: it owns the temporary copy of every upload.
type Handler struct {
	plugin   *Plugin
	defaults ParamDefaults
	tempDir  string
}

func NewHandler(plugin *Plugin, defaults ParamDefaults, tempDir string) *Handler {
	return &Handler{
		plugin:   plugin,
		defaults: defaults,
		tempDir:  tempDir,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repository/listing", h.HandleListing)
	mux.HandleFunc("GET /repository/returntypes", h.HandleReturnTypes)
	mux.HandleFunc("POST /repository/upload", h.HandleUpload)
	return mux
}

// HandleListing handles GET /repository/listing
func (h *Handler) HandleListing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.plugin.Listing(q.Get("path"), q.Get("page")))
}

// HandleReturnTypes handles GET /repository/returntypes
func (h *Handler) HandleReturnTypes(w http.ResponseWriter, r *http.Request) {
	rt := h.plugin.SupportedReturnTypes()
	writeJSON(w, http.StatusOK, map[string]any{
		"returntypes": int(rt),
		"type":        rt.String(),
	})
}

// HandleUpload handles POST /repository/upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.defaults.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.defaults.MaxBytes+formOverhead)
	}

	if err := r.ParseMultipartForm(defaultMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, "upload exceeds the size limit")
			return
		}
		h.writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("%s is required", uploadField))
		return
	}
	defer func() { _ = file.Close() }()

	params, err := ParseUploadParams(r, h.defaults)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	params.FileName = header.Filename

	if !params.Accepts(header.Filename) {
		h.writeError(w, http.StatusBadRequest, codeTypeNotAccepted, fmt.Sprintf("%s is not an accepted file type", header.Filename))
		return
	}
	if params.MaxBytes > 0 && header.Size > params.MaxBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, fmt.Sprintf("file exceeds %d bytes", params.MaxBytes))
		return
	}

	tempPath, err := h.stage(file, header.Filename)
	if err != nil {
		slog.Error("Failed to stage upload", "error", err)
		h.writeError(w, http.StatusInternalServerError, codeInternal, "failed to store upload")
		return
	}
	defer func() { _ = os.Remove(tempPath) }()
	params.TempPath = tempPath

	result, err := h.plugin.ProcessUpload(r.Context(), params)
	switch {
	case errors.Is(err, ErrConnection):
		slog.Error("Upload failed", "file", params.FileName, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, codeConnection, ErrConnection.Error())
		return
	case err != nil:
		slog.Error("Upload failed", "file", params.FileName, "error", err)
		h.writeError(w, http.StatusBadGateway, codeProcessUpload, ErrProcessUpload.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) stage(src io.Reader, name string) (string, error) {
	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
