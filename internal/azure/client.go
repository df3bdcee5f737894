// Package azure lists and reads blobs of a single container addressed by a
// SAS URL, using the azblob container client without a credential.
package azure

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/asad/sasfetch/internal/apperr"
	"github.com/asad/sasfetch/internal/config"
	"github.com/asad/sasfetch/internal/logging"
	"github.com/asad/sasfetch/internal/reports"
)

// Options tunes the container client.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// PageSize is sent as maxresults; 0 lets the service choose.
	PageSize int

	// IncludeMetadata asks the listing to return each blob's metadata.
	IncludeMetadata bool

	// Transport overrides the HTTP client. Tests use it to reach httptest servers.
	Transport policy.Transporter
}

// ContainerClient talks to one container. It performs no retries.
type ContainerClient struct {
	client  *container.Client
	opts    Options
	logger  logging.Logger
	display string
}

// NewContainerClient builds a client from a full container SAS URL.
func NewContainerClient(sasURL string, opts Options, logger logging.Logger) (*ContainerClient, error) {
	if err := config.ValidateSASURL(sasURL); err != nil {
		return nil, err
	}
	u, _ := url.Parse(sasURL)
	if u.Query().Get("sig") == "" {
		logger.Warn("SAS URL has no signature; relying on anonymous access",
			logging.String("container_url", config.Redact(sasURL)),
		)
	}

	transport := opts.Transport
	if transport == nil {
		transport = newHTTPClient(opts.ConnectTimeout, opts.ReadTimeout)
	}

	client, err := container.NewClientWithNoCredential(sasURL, &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Transport: transport,
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "create container client", err)
	}

	return &ContainerClient{
		client:  client,
		opts:    opts,
		logger:  logger,
		display: config.Redact(sasURL),
	}, nil
}

// newHTTPClient bounds connection setup and the wait for response headers,
// but not the body, so large blobs can stream for as long as they need.
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: readTimeout,
			MaxIdleConnsPerHost:   2,
		},
	}
}

// URL returns the container URL without the SAS query string.
func (c *ContainerClient) URL() string {
	return c.display
}

// List returns every blob in the container in service order, following
// continuation markers.
func (c *ContainerClient) List(ctx context.Context) ([]reports.BlobRecord, error) {
	listOpts := &container.ListBlobsFlatOptions{
		Include: container.ListBlobsInclude{Metadata: c.opts.IncludeMetadata},
	}
	if c.opts.PageSize > 0 {
		listOpts.MaxResults = to.Ptr(int32(c.opts.PageSize))
	}

	pager := c.client.NewListBlobsFlatPager(listOpts)

	records := make([]reports.BlobRecord, 0)
	pages := 0
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			err = classify("list blobs", err)
			c.logger.Error("failed to list blobs",
				logging.String("container_url", c.display),
				logging.Int("page", pages+1),
				logging.ErrorField(err),
			)
			return nil, err
		}
		pages++

		if resp.Segment == nil {
			continue
		}
		for _, item := range resp.Segment.BlobItems {
			if item == nil || item.Name == nil || *item.Name == "" {
				continue
			}
			records = append(records, toRecord(item))
		}
	}

	c.logger.Debug("listed container",
		logging.String("container_url", c.display),
		logging.Int("pages", pages),
		logging.Int("blobs", len(records)),
	)
	return records, nil
}

// Open starts a GET for the named blob. The caller closes the body.
func (c *ContainerClient) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := c.client.NewBlobClient(name).DownloadStream(ctx, nil)
	if err != nil {
		return nil, classify("download "+name, err)
	}
	return resp.Body, nil
}

func toRecord(item *container.BlobItem) reports.BlobRecord {
	rec := reports.BlobRecord{Name: *item.Name}
	if props := item.Properties; props != nil {
		if props.LastModified != nil {
			rec.LastModified = props.LastModified.UTC()
		}
		if props.ContentLength != nil {
			rec.Size = *props.ContentLength
		}
	}
	if len(item.Metadata) > 0 {
		rec.Metadata = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			if v != nil {
				rec.Metadata[k] = *v
			}
		}
	}
	return rec
}

// classify maps SDK errors onto error kinds. HTTP statuses and transport
// failures are network errors; anything else means the body did not decode.
// Request URLs carried by transport errors lose their SAS query string.
func classify(op string, err error) error {
	var respErr *azcore.ResponseError
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &respErr):
		return apperr.New(apperr.KindNetwork, op, "HTTP %d %s", respErr.StatusCode, statusText(respErr))
	case errors.As(err, &urlErr):
		return apperr.Wrap(apperr.KindNetwork, op, &url.Error{
			Op:  urlErr.Op,
			URL: config.Redact(urlErr.URL),
			Err: urlErr.Err,
		})
	case errors.As(err, &netErr),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Wrap(apperr.KindNetwork, op, err)
	default:
		return apperr.Wrap(apperr.KindParse, op, err)
	}
}

func statusText(respErr *azcore.ResponseError) string {
	if respErr.ErrorCode != "" {
		return respErr.ErrorCode
	}
	return http.StatusText(respErr.StatusCode)
}
