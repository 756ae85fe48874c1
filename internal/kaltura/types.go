package kaltura

import (
	"encoding/json"
	"fmt"
)

type MediaType int

const (
	MediaTypeVideo MediaType = 1
	MediaTypeImage MediaType = 2
	MediaTypeAudio MediaType = 5
)

const (
	ObjectTypeMediaEntry   = "KalturaMediaEntry"
	ObjectTypeUploadToken  = "KalturaUploadToken"
	ObjectTypeAPIException = "KalturaAPIException"

	objectTypeUploadedFileTokenResource = "KalturaUploadedFileTokenResource"
)

// SessionTypeAdmin is the session.start type for partner admin sessions.
const SessionTypeAdmin = 2

type MediaEntry struct {
	ObjectType string    `json:"objectType,omitempty"`
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name"`
	MediaType  MediaType `json:"mediaType"`
	PartnerID  int       `json:"partnerId,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// IsMediaEntry reports whether the decoded object is a usable media entry.
func (e *MediaEntry) IsMediaEntry() bool {
	return e != nil && e.ObjectType == ObjectTypeMediaEntry && e.ID != ""
}

type UploadToken struct {
	ObjectType       string  `json:"objectType,omitempty"`
	ID               string  `json:"id"`
	FileName         string  `json:"fileName,omitempty"`
	FileSize         float64 `json:"fileSize,omitempty"`
	UploadedFileSize float64 `json:"uploadedFileSize,omitempty"`
	Status           int     `json:"status,omitempty"`
}

// Resource is content that can be attached to an entry with media.addContent.
type Resource interface {
	resourceType() string
}

type UploadedFileTokenResource struct {
	Token string
}

func (UploadedFileTokenResource) resourceType() string {
	return objectTypeUploadedFileTokenResource
}

func (r UploadedFileTokenResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ObjectType string `json:"objectType"`
		Token      string `json:"token"`
	}{
		ObjectType: r.resourceType(),
		Token:      r.Token,
	})
}

// APIError is an exception object returned by the media service.
type APIError struct {
	Service string
	Action  string
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kaltura %s.%s: %s: %s", e.Service, e.Action, e.Code, e.Message)
}

func (e *APIError) sessionRejected() bool {
	return e.Code == "INVALID_KS" || e.Code == "EXPIRED_KS"
}

type exceptionEnvelope struct {
	ObjectType string `json:"objectType"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}
