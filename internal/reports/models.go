package reports

import "time"

// BlobRecord is one entry of a container listing.
// Records are built from a single listing response and never modified.
type BlobRecord struct {
	// Name is the blob name (path) within its container. Unique within one listing.
	Name string `json:"name" yaml:"name"`

	// LastModified is when the blob was last written, as reported by the service.
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`

	// Size is the blob content length in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Metadata holds the blob's custom key-value pairs. Only populated when requested.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DownloadResult describes the outcome for one blob of a batch.
type DownloadResult struct {
	Record BlobRecord
	// Path is the local file written. Empty on failure.
	Path  string
	Bytes int64
	Err   error
}

// OK reports whether the blob was written.
func (r DownloadResult) OK() bool {
	return r.Err == nil
}
