package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Archiver persists successful extractions outside the process, so results
// survive a restart even though the in-memory ledger does not. Archival is
// best effort: a failed upload never fails the extraction.
type Archiver interface {
	ArchiveExtraction(ctx context.Context, chatID int64, handle, text string) error
}

type azureArchiver struct {
	client    *azblob.Client
	container string
}

// NewAzureArchiver creates a blob-storage archiver.
func NewAzureArchiver(accountName, accountKey, container string) (Archiver, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureArchiver{client: client, container: container}, nil
}

// ArchiveExtraction uploads the extracted text as a UTF-8 text blob named
// by conversation, handle and timestamp.
func (a *azureArchiver) ArchiveExtraction(ctx context.Context, chatID int64, handle, text string) error {
	blobName := fmt.Sprintf("%d/%s-%s.txt", chatID, handle, time.Now().UTC().Format("20060102T150405Z"))

	_, err := a.client.UploadBuffer(ctx, a.container, blobName, []byte(text), nil)
	if err != nil {
		return fmt.Errorf("archive upload failed: %w", err)
	}
	return nil
}

// NopArchiver discards everything. Used when no storage account is
// configured.
type NopArchiver struct{}

func (NopArchiver) ArchiveExtraction(ctx context.Context, chatID int64, handle, text string) error {
	return nil
}
