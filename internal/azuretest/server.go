// Package azuretest runs an in-process HTTP server that answers the subset
// of the Blob Storage REST API used by sasfetch: container listing with
// continuation markers and blob download, behind a SAS signature check.
package azuretest

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Signature is the sig value the server accepts.
const Signature = "test-signature"

// Blob is one stored object.
type Blob struct {
	Name         string
	Content      []byte
	LastModified time.Time
	Metadata     map[string]string
}

// Server is a fake container endpoint. Routes:
//   - GET /{container}?restype=container&comp=list - list blobs
//   - GET /{container}/{blobName} - download blob
type Server struct {
	*httptest.Server

	Container string

	mu       sync.Mutex
	blobs    map[string]Blob
	requests []string
	failures map[string]int
	rawList  []byte
}

// NewServer starts a server for one container. Close it when done.
func NewServer(containerName string) *Server {
	s := &Server{
		Container: containerName,
		blobs:     make(map[string]Blob),
		failures:  make(map[string]int),
	}

	router := chi.NewRouter()
	router.Use(s.recordRequest)
	router.Use(s.checkSignature)
	router.Get("/{container}", s.handleListBlobs)
	router.Get("/{container}/*", s.handleGetBlob)

	s.Server = httptest.NewServer(router)
	return s
}

// SASURL returns the container URL with a valid signature.
func (s *Server) SASURL() string {
	return fmt.Sprintf("%s/%s?sv=2022-11-02&sp=rl&sig=%s", s.URL, s.Container, Signature)
}

// Put stores a blob, replacing any blob of the same name.
func (s *Server) Put(b Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[b.Name] = b
}

// FailBlob makes downloads of name answer with status.
func (s *Server) FailBlob(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = status
}

// SetRawListResponse replaces the listing body with raw bytes.
func (s *Server) SetRawListResponse(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawList = body
}

// Requests returns "METHOD path?query" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sig") != Signature {
			s.writeError(w, http.StatusForbidden, "AuthenticationFailed", "Signature did not match")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleListBlobs serves GET /{container}?restype=container&comp=list.
// maxresults and marker page through blobs sorted by name.
func (s *Server) handleListBlobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("restype") != "container" || q.Get("comp") != "list" {
		s.writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue", "Expected restype=container&comp=list")
		return
	}
	if chi.URLParam(r, "container") != s.Container {
		s.writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}

	s.mu.Lock()
	raw := s.rawList
	names := make([]string, 0, len(s.blobs))
	for name := range s.blobs {
		names = append(names, name)
	}
	blobs := make(map[string]Blob, len(s.blobs))
	for k, v := range s.blobs {
		blobs[k] = v
	}
	s.mu.Unlock()

	if raw != nil {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}

	sort.Strings(names)

	start := 0
	if marker := q.Get("marker"); marker != "" {
		start = sort.SearchStrings(names, marker)
	}
	end := len(names)
	maxResults, _ := strconv.Atoi(q.Get("maxresults"))
	if maxResults > 0 && start+maxResults < end {
		end = start + maxResults
	}

	result := enumerationResults{
		ServiceEndpoint: s.URL + "/",
		ContainerName:   s.Container,
		Marker:          q.Get("marker"),
	}
	if maxResults > 0 {
		result.MaxResults = maxResults
	}
	withMetadata := q.Get("include") == "metadata"
	for _, name := range names[start:end] {
		b := blobs[name]
		item := blobItem{
			Name: name,
			Properties: blobProperties{
				LastModified:  b.LastModified.UTC().Format(http.TimeFormat),
				ETag:          fmt.Sprintf("\"0x%X\"", b.LastModified.UnixNano()),
				ContentLength: int64(len(b.Content)),
				ContentType:   "application/octet-stream",
				BlobType:      "BlockBlob",
			},
		}
		if withMetadata && len(b.Metadata) > 0 {
			item.Metadata = &blobMetadata{}
			keys := make([]string, 0, len(b.Metadata))
			for k := range b.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				item.Metadata.Items = append(item.Metadata.Items, metadataItem{
					XMLName: xml.Name{Local: k},
					Value:   b.Metadata[k],
				})
			}
		}
		result.Blobs = append(result.Blobs, item)
	}
	if end < len(names) {
		result.NextMarker = names[end]
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(result)
}

// handleGetBlob serves GET /{container}/{blobName}.
func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || name == "" {
		s.writeError(w, http.StatusBadRequest, "InvalidUri", "Invalid blob name")
		return
	}

	s.mu.Lock()
	b, ok := s.blobs[name]
	status, failing := s.failures[name]
	s.mu.Unlock()

	if failing {
		s.writeError(w, status, http.StatusText(status), "Injected failure")
		return
	}
	if !ok || chi.URLParam(r, "container") != s.Container {
		s.writeError(w, http.StatusNotFound, "BlobNotFound", "The specified blob does not exist.")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(b.Content)))
	w.Header().Set("Last-Modified", b.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("x-ms-blob-type", "BlockBlob")
	for key, value := range b.Metadata {
		w.Header().Set("x-ms-meta-"+key, value)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b.Content)
}

// writeError writes an error response in the storage service's XML format.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("x-ms-error-code", code)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s<Error><Code>%s</Code><Message>%s</Message></Error>", xml.Header, code, message)
}

type enumerationResults struct {
	XMLName         xml.Name   `xml:"EnumerationResults"`
	ServiceEndpoint string     `xml:"ServiceEndpoint,attr"`
	ContainerName   string     `xml:"ContainerName,attr"`
	Marker          string     `xml:"Marker,omitempty"`
	MaxResults      int        `xml:"MaxResults,omitempty"`
	Blobs           []blobItem `xml:"Blobs>Blob"`
	NextMarker      string     `xml:"NextMarker"`
}

type blobItem struct {
	Name       string         `xml:"Name"`
	Properties blobProperties `xml:"Properties"`
	Metadata   *blobMetadata  `xml:"Metadata,omitempty"`
}

type blobProperties struct {
	LastModified  string `xml:"Last-Modified"`
	ETag          string `xml:"Etag"`
	ContentLength int64  `xml:"Content-Length"`
	ContentType   string `xml:"Content-Type"`
	BlobType      string `xml:"BlobType"`
}

type blobMetadata struct {
	Items []metadataItem
}

type metadataItem struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}
