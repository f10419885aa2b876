package sink

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"sales-dashboard/internal/domain"
)

// AzureSink uploads artifacts to an Azure Blob Storage container.
type AzureSink struct {
	client    *azblob.Client
	account   string
	container string
	prefix    string
}

// NewAzureSink creates a sink writing under az://container/prefix with
// shared-key authentication.
func NewAzureSink(accountName, accountKey, container, prefix string) (*AzureSink, error) {
	if accountName == "" || accountKey == "" {
		return nil, domain.ErrValidation("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for az:// destinations")
	}
	if container == "" {
		return nil, domain.ErrValidation("Azure container is required")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzureSink{
		client:    client,
		account:   accountName,
		container: container,
		prefix:    prefix,
	}, nil
}

// Persist streams the artifact into a block blob and returns its az:// URI.
func (s *AzureSink) Persist(ctx context.Context, a domain.ExportArtifact) (string, error) {
	key, err := objectKey(s.prefix, a.Filename)
	if err != nil {
		return "", err
	}

	ct := contentType(a)
	_, err = s.client.UploadStream(ctx, s.container, key, a.Body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return "", fmt.Errorf("upload az://%s/%s to account %s: %w", s.container, key, s.account, err)
	}
	return fmt.Sprintf("az://%s/%s", s.container, key), nil
}
