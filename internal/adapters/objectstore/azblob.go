package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"formdata/internal/core/formdata"
	"formdata/internal/core/sinks"
	perr "formdata/internal/platform/errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"
)

// BlobAPI is the subset of the azblob client the storage calls
type BlobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	URL() string
}

// AzureConfig configures the blob storage
type AzureConfig struct {
	Container string
	// Prefix is a virtual directory inside the container
	Prefix string
	// BlockSize and Concurrency tune UploadStream; zero keeps the sdk defaults
	BlockSize   int64
	Concurrency int
}

// NewAzureClient creates a shared key client from a standard connection string.
// Plain http endpoints (Azurite) are allowed to carry the credential
func NewAzureClient(connectionString string) (*azblob.Client, error) {
	if connectionString == "" {
		return nil, perr.InvalidOptionf("azure connection string is required")
	}
	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if accountName == "" || accountKey == "" {
		return nil, perr.InvalidOptionf("account name and key are required in the connection string")
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var clientOpts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		clientOpts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				InsecureAllowCredentialWithHTTP: true,
			},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return client, nil
}

func parseConnectionString(connectionString string) map[string]string {
	params := make(map[string]string)
	for part := range strings.SplitSeq(connectionString, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		params[key] = value
	}
	return params
}

// Azure stores each upload as a block blob
type Azure struct {
	formdata.NopHooks

	api BlobAPI
	cfg AzureConfig

	mu            sync.Mutex
	containerInit bool
}

// NewAzure builds the storage over api
func NewAzure(api BlobAPI, cfg AzureConfig) (*Azure, error) {
	if cfg.Container == "" {
		return nil, perr.InvalidOptionf("container name is required")
	}
	return &Azure{api: api, cfg: cfg}, nil
}

// Name implements formdata.Storage
func (a *Azure) Name() string { return "azblob" }

// NewSink implements formdata.Storage
func (a *Azure) NewSink() formdata.Sink { return azureSink{st: a} }

// ensureContainer creates the container once; an existing container counts as created
func (a *Azure) ensureContainer(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.containerInit {
		return nil
	}
	_, err := a.api.CreateContainer(ctx, a.cfg.Container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to ensure container: %w", err)
	}
	a.containerInit = true
	return nil
}

func (a *Azure) blobURL(name string) string {
	return strings.TrimRight(a.api.URL(), "/") + "/" + url.PathEscape(a.cfg.Container) + "/" + escapePath(name)
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

type azureSink struct {
	formdata.NopHooks
	st *Azure
}

func (k azureSink) Save(ctx context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := sinks.NewMeter(r)
	if err := k.st.ensureContainer(ctx); err != nil {
		return formdata.StoredFile{}, m.Fail(err, "azure container %s", k.st.cfg.Container)
	}

	name := path.Join(k.st.cfg.Prefix, uuid.NewString()+filepath.Ext(info.Filename))
	_, err := k.st.api.UploadStream(ctx, k.st.cfg.Container, name, m, &azblob.UploadStreamOptions{
		BlockSize:   k.st.cfg.BlockSize,
		Concurrency: k.st.cfg.Concurrency,
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(info.MimeType),
		},
		Metadata: map[string]*string{
			"filename": to.Ptr(url.QueryEscape(info.Filename)),
		},
	})
	if err != nil || m.Err() != nil {
		return formdata.StoredFile{}, m.Fail(err, "azure upload %s", name)
	}
	return m.Stored(path.Base(name), k.st.blobURL(name), info), nil
}

var _ formdata.Storage = (*Azure)(nil)
