package repository

const (
	defaultUploadLabel = "Attachment"
	uploadFormID       = "repo-form"
)

// Listing tells the file picker which panels to show. This repository only
// ever shows an upload form.
type Listing struct {
	NoLogin   bool        `json:"nologin"`
	NoSearch  bool        `json:"nosearch"`
	NoRefresh bool        `json:"norefresh"`
	List      []any       `json:"list"`
	DynLoad   bool        `json:"dynload"`
	Upload    UploadField `json:"upload"`
}

type UploadField struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Listing returns the same upload-only descriptor for every path and page.
func (p *Plugin) Listing(path, page string) Listing {
	return Listing{
		NoLogin:   true,
		NoSearch:  true,
		NoRefresh: true,
		List:      []any{},
		DynLoad:   false,
		Upload: UploadField{
			Label: p.uploadLabel,
			ID:    uploadFormID,
		},
	}
}

// PrintLogin shows the upload form in place of a login form.
func (p *Plugin) PrintLogin() Listing {
	return p.Listing("", "")
}

// ReturnType is a bit set of the ways a repository can hand files back.
type ReturnType int

const (
	FileExternal ReturnType = 1 << iota
	FileInternal
	FileReference
	FileControlledLink
)

func (t ReturnType) String() string {
	switch t {
	case FileExternal:
		return "external"
	case FileInternal:
		return "internal"
	case FileReference:
		return "reference"
	case FileControlledLink:
		return "controlled_link"
	default:
		return "unknown"
	}
}

// SupportedReturnTypes reports that uploads are links to remotely hosted
// media, never copies kept by the host.
func (p *Plugin) SupportedReturnTypes() ReturnType {
	return FileExternal
}
