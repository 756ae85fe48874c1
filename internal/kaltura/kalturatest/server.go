// Package kalturatest provides an in-memory media service speaking the
// api_v3 JSON protocol, for tests.
package kalturatest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"kaltura-uploader/internal/kaltura"
)

type Server struct {
	*httptest.Server

	PartnerID int
	Secret    string

	mu       sync.Mutex
	calls    []string
	sessions map[string]bool
	entries  map[string]*kaltura.MediaEntry
	tokens   map[string][]byte
	nextID   int

	failSession       bool
	failActions       map[string]string
	contentObjectType string
}

func NewServer(partnerID int, secret string) *Server {
	s := &Server{
		PartnerID:   partnerID,
		Secret:      secret,
		sessions:    make(map[string]bool),
		entries:     make(map[string]*kaltura.MediaEntry),
		tokens:      make(map[string][]byte),
		failActions: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api_v3/service/{service}/action/{action}", s.handle)
	s.Server = httptest.NewServer(mux)
	return s
}

// FailSession makes session.start return an exception.
func (s *Server) FailSession(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSession = fail
}

// FailAction makes "service.action" return an exception with code.
// An empty code clears the failure.
func (s *Server) FailAction(name, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == "" {
		delete(s.failActions, name)
		return
	}
	s.failActions[name] = code
}

// RespondToAddContentWith overrides the objectType returned by media.addContent.
func (s *Server) RespondToAddContentWith(objectType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentObjectType = objectType
}

// Calls returns the "service.action" names received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) CallCount(name string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (s *Server) Entry(id string) (*kaltura.MediaEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *Server) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Server) TokenData(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.tokens[id]
	return data, ok
}

func (s *Server) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service") + "." + r.PathValue("action")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)

	params, err := readParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if code, ok := s.failActions[name]; ok {
		writeException(w, code, "forced failure")
		return
	}

	if name != "session.start" && !s.sessions[stringParam(params, "ks")] {
		writeException(w, "INVALID_KS", "invalid session")
		return
	}

	switch name {
	case "session.start":
		s.sessionStart(w, params)
	case "media.add":
		s.mediaAdd(w, params)
	case "uploadToken.add":
		s.nextID++
		id := fmt.Sprintf("tok_%d", s.nextID)
		s.tokens[id] = nil
		writeJSON(w, kaltura.UploadToken{ObjectType: kaltura.ObjectTypeUploadToken, ID: id})
	case "uploadToken.upload":
		s.uploadTokenUpload(w, r, params)
	case "media.addContent":
		s.mediaAddContent(w, params)
	case "media.delete":
		delete(s.entries, stringParam(params, "entryId"))
		writeJSON(w, nil)
	case "uploadToken.delete":
		delete(s.tokens, stringParam(params, "uploadTokenId"))
		writeJSON(w, nil)
	default:
		writeException(w, "SERVICE_FORBIDDEN", "unknown action "+name)
	}
}

func (s *Server) sessionStart(w http.ResponseWriter, params map[string]json.RawMessage) {
	var partnerID int
	_ = json.Unmarshal(params["partnerId"], &partnerID)

	if s.failSession || stringParam(params, "secret") != s.Secret || partnerID != s.PartnerID {
		writeException(w, "START_SESSION_ERROR", "Error while starting session for partner")
		return
	}

	s.nextID++
	ks := fmt.Sprintf("ks_%d", s.nextID)
	s.sessions[ks] = true
	writeJSON(w, ks)
}

func (s *Server) mediaAdd(w http.ResponseWriter, params map[string]json.RawMessage) {
	var entry kaltura.MediaEntry
	if err := json.Unmarshal(params["entry"], &entry); err != nil {
		writeException(w, "MISSING_MANDATORY_PARAMETER", "entry")
		return
	}

	s.nextID++
	entry.ID = fmt.Sprintf("0_%06d", s.nextID)
	entry.ObjectType = kaltura.ObjectTypeMediaEntry
	entry.PartnerID = s.PartnerID
	entry.Status = "-1"
	s.entries[entry.ID] = &entry
	writeJSON(w, entry)
}

func (s *Server) uploadTokenUpload(w http.ResponseWriter, r *http.Request, params map[string]json.RawMessage) {
	id := stringParam(params, "uploadTokenId")
	if _, ok := s.tokens[id]; !ok {
		writeException(w, "UPLOAD_TOKEN_NOT_FOUND", "upload token not found")
		return
	}

	file, header, err := r.FormFile("fileData")
	if err != nil {
		writeException(w, "MISSING_MANDATORY_PARAMETER", "fileData")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.tokens[id] = data

	writeJSON(w, kaltura.UploadToken{
		ObjectType:       kaltura.ObjectTypeUploadToken,
		ID:               id,
		FileName:         header.Filename,
		FileSize:         float64(len(data)),
		UploadedFileSize: float64(len(data)),
		Status:           2,
	})
}

func (s *Server) mediaAddContent(w http.ResponseWriter, params map[string]json.RawMessage) {
	entry, ok := s.entries[stringParam(params, "entryId")]
	if !ok {
		writeException(w, "ENTRY_ID_NOT_FOUND", "entry not found")
		return
	}

	var resource struct {
		ObjectType string `json:"objectType"`
		Token      string `json:"token"`
	}
	_ = json.Unmarshal(params["resource"], &resource)
	if data, ok := s.tokens[resource.Token]; !ok || len(data) == 0 {
		writeException(w, "UPLOADED_FILE_NOT_FOUND_BY_TOKEN", "token has no content")
		return
	}

	entry.Status = "0"
	out := *entry
	if s.contentObjectType != "" {
		out.ObjectType = s.contentObjectType
	}
	writeJSON(w, out)
}

func readParams(r *http.Request) (map[string]json.RawMessage, error) {
	params := make(map[string]json.RawMessage)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				raw, _ := json.Marshal(values[0])
				params[key] = raw
			}
		}
		return params, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		return nil, err
	}
	return params, nil
}

func stringParam(params map[string]json.RawMessage, key string) string {
	var v string
	_ = json.Unmarshal(params[key], &v)
	return v
}

func writeException(w http.ResponseWriter, code, message string) {
	writeJSON(w, map[string]string{
		"objectType": kaltura.ObjectTypeAPIException,
		"code":       code,
		"message":    message,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
